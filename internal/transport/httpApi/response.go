package httpApi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/KotFed0t/fondos_backoffice/internal/ledger"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/internal/service/importService"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/go-chi/chi/v5"
)

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errStatus(err)

	rqID := utils.GetRequestIDFromCtx(r.Context())
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", slog.String("rqID", rqID), slog.String("path", r.URL.Path), slog.String("err", err.Error()))
	} else {
		slog.Debug("request rejected", slog.String("rqID", rqID), slog.Int("status", status), slog.String("err", err.Error()))
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Success: false, Error: msg})
}

// writePartial reports a commit that stopped halfway: data carries what was
// imported and what was not.
func writePartial(w http.ResponseWriter, data any, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_ = json.NewEncoder(w).Encode(response{Success: false, Data: data, Error: err.Error()})
}

func errStatus(err error) int {
	var (
		validationErr *service.ValidationError
		exceedsErr    *ledger.ExceedsAvailableError
		partialErr    *importService.PartialCommitError
		badRequestErr *badRequestError
	)

	switch {
	case errors.As(err, &partialErr):
		return http.StatusMultiStatus
	case errors.As(err, &validationErr), errors.As(err, &badRequestErr),
		errors.Is(err, service.ErrEmptyLedger), errors.Is(err, ledger.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, ledger.ErrUnknownInstrument):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSnapshotExists), errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict
	case errors.As(err, &exceedsErr), errors.Is(err, ledger.ErrNothingAvailable),
		errors.Is(err, service.ErrFundClientMismatch), errors.Is(err, service.ErrNoValidRows):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrStorageDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// badRequestError covers malformed payloads that never reach a service.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		return badRequest("malformed request body: %s", err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s", name)
	}
	return id, nil
}

// optionalIDQuery returns 0 when the query parameter is absent.
func optionalIDQuery(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s", name)
	}
	return id, nil
}
