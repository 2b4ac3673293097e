package httpApi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/fondos_backoffice/internal/csvImport"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/internal/service/importService"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
)

const (
	uploadField = "archivo"
	xlsxMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ImportService interface {
	ImportHoldings(ctx context.Context, req model.ImportRequest) (model.ImportSummary, error)
	ImportPrices(ctx context.Context, req model.PriceImportRequest) (model.ImportSummary, error)
	Preview(ctx context.Context, sessionID string, req model.PreviewRequest) (importService.PreviewResult, error)
	Ledger(ctx context.Context, sessionID string) (importService.LedgerView, error)
	Allocate(ctx context.Context, sessionID, instrumentID string, fundID int64, quantity decimal.Decimal) (importService.LedgerView, error)
	AllocateAll(ctx context.Context, sessionID, instrumentID string, fundID int64) (importService.LedgerView, error)
	Deallocate(ctx context.Context, sessionID, instrumentID string, fundID int64) (importService.LedgerView, error)
	ResetLedger(ctx context.Context, sessionID string) error
	Commit(ctx context.Context, sessionID string, clientID int64) (importService.CommitResult, error)
}

type RateService interface {
	Current(ctx context.Context) (model.ExchangeRate, error)
}

type PerformanceService interface {
	GenerateSnapshot(ctx context.Context, fundID int64, periodStart, periodEnd time.Time) (model.FundSnapshot, error)
	Snapshots(ctx context.Context, fundID int64) ([]model.FundSnapshot, error)
	Report(ctx context.Context, clientID int64) ([]byte, string, error)
	ExportReport(ctx context.Context, clientID int64) (string, error)
}

type BackofficeService interface {
	CreateClient(ctx context.Context, req model.NewClientRequest) (model.Client, error)
	Clients(ctx context.Context) ([]model.Client, error)
	Client(ctx context.Context, clientID int64) (model.Client, error)
	CreateFund(ctx context.Context, req model.NewFundRequest) (model.Fund, error)
	Funds(ctx context.Context, clientID int64) ([]model.Fund, error)
	RecordLiquidityMovement(ctx context.Context, req model.LiquidityMovementRequest) (model.LiquidityMovement, error)
	LiquidityMovements(ctx context.Context, clientID int64) ([]model.LiquidityMovement, error)
	AssignCash(ctx context.Context, req model.CashAssignmentRequest) error
}

type Controller struct {
	imports        ImportService
	rates          RateService
	performance    PerformanceService
	backoffice     BackofficeService
	maxUploadBytes int64
}

func NewController(
	imports ImportService,
	rates RateService,
	performance PerformanceService,
	backoffice BackofficeService,
	maxUploadBytes int64,
) *Controller {
	return &Controller{
		imports:        imports,
		rates:          rates,
		performance:    performance,
		backoffice:     backoffice,
		maxUploadBytes: maxUploadBytes,
	}
}

func (ctrl *Controller) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ImportHoldings accepts either the JSON submission payload or a multipart
// form carrying the statement as a csv or xlsx file.
func (ctrl *Controller) ImportHoldings(w http.ResponseWriter, r *http.Request) {
	var req model.ImportRequest

	if isMultipart(r) {
		text, err := ctrl.uploadedText(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.CsvText = text
		if req.ClientID, err = formInt(r, "cliente_id"); err != nil {
			writeError(w, r, err)
			return
		}
		if req.FundID, err = formInt(r, "fondo_id"); err != nil {
			writeError(w, r, err)
			return
		}
		if req.ExchangeRate, err = formDecimal(r, "tipo_cambio"); err != nil {
			writeError(w, r, err)
			return
		}
		req.PurchaseDate = r.FormValue("fecha_compra")
	} else if err := ctrl.decodeLimited(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := ctrl.imports.ImportHoldings(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (ctrl *Controller) PreviewImport(w http.ResponseWriter, r *http.Request) {
	var req model.PreviewRequest

	if isMultipart(r) {
		text, err := ctrl.uploadedText(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.CsvText = text
		if req.ExchangeRate, err = formDecimal(r, "tipo_cambio"); err != nil {
			writeError(w, r, err)
			return
		}
		req.PurchaseDate = r.FormValue("fecha_compra")
	} else if err := ctrl.decodeLimited(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := ctrl.imports.Preview(r.Context(), utils.GetSessionIDFromCtx(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (ctrl *Controller) ImportPrices(w http.ResponseWriter, r *http.Request) {
	var req model.PriceImportRequest
	if err := ctrl.decodeLimited(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := ctrl.imports.ImportPrices(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type allocationRequest struct {
	InstrumentID string          `json:"especie_id"`
	FundID       int64           `json:"fondo_id"`
	Quantity     decimal.Decimal `json:"cantidad"`
}

type commitRequest struct {
	ClientID int64 `json:"cliente_id"`
}

func (ctrl *Controller) GetLedger(w http.ResponseWriter, r *http.Request) {
	view, err := ctrl.imports.Ledger(r.Context(), utils.GetSessionIDFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (ctrl *Controller) Allocate(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := ctrl.imports.Allocate(r.Context(), utils.GetSessionIDFromCtx(r.Context()), req.InstrumentID, req.FundID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (ctrl *Controller) AllocateAll(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := ctrl.imports.AllocateAll(r.Context(), utils.GetSessionIDFromCtx(r.Context()), req.InstrumentID, req.FundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (ctrl *Controller) Deallocate(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := ctrl.imports.Deallocate(r.Context(), utils.GetSessionIDFromCtx(r.Context()), req.InstrumentID, req.FundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (ctrl *Controller) ResetLedger(w http.ResponseWriter, r *http.Request) {
	if err := ctrl.imports.ResetLedger(r.Context(), utils.GetSessionIDFromCtx(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (ctrl *Controller) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := ctrl.imports.Commit(r.Context(), utils.GetSessionIDFromCtx(r.Context()), req.ClientID)
	var partialErr *importService.PartialCommitError
	switch {
	case errors.As(err, &partialErr):
		writePartial(w, result, err)
	case err != nil:
		writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (ctrl *Controller) ExchangeRate(w http.ResponseWriter, r *http.Request) {
	rate, err := ctrl.rates.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (ctrl *Controller) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	fundID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.SnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	start, err := time.Parse(importService.DateLayout, req.PeriodStart)
	if err != nil {
		writeError(w, r, service.NewValidationError("desde", "expected "+importService.DateLayout))
		return
	}
	end, err := time.Parse(importService.DateLayout, req.PeriodEnd)
	if err != nil {
		writeError(w, r, service.NewValidationError("hasta", "expected "+importService.DateLayout))
		return
	}

	snapshot, err := ctrl.performance.GenerateSnapshot(r.Context(), fundID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snapshot)
}

func (ctrl *Controller) Snapshots(w http.ResponseWriter, r *http.Request) {
	fundID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	snapshots, err := ctrl.performance.Snapshots(r.Context(), fundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// FundsReport returns the workbook as an attachment, or uploads it and returns
// the link when upload=true.
func (ctrl *Controller) FundsReport(w http.ResponseWriter, r *http.Request) {
	clientID, err := optionalIDQuery(r, "cliente_id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if upload, _ := strconv.ParseBool(r.URL.Query().Get("upload")); upload {
		link, err := ctrl.performance.ExportReport(r.Context(), clientID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"link": link})
		return
	}

	fileBytes, ext, err := ctrl.performance.Report(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename := fmt.Sprintf("reporte_fondos_%s%s", time.Now().Format("20060102"), ext)
	w.Header().Set("Content-Type", xlsxMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fileBytes)
}

func (ctrl *Controller) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req model.NewClientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	client, err := ctrl.backoffice.CreateClient(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (ctrl *Controller) Clients(w http.ResponseWriter, r *http.Request) {
	clients, err := ctrl.backoffice.Clients(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (ctrl *Controller) Client(w http.ResponseWriter, r *http.Request) {
	clientID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	client, err := ctrl.backoffice.Client(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (ctrl *Controller) CreateFund(w http.ResponseWriter, r *http.Request) {
	clientID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.NewFundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.ClientID = clientID

	fund, err := ctrl.backoffice.CreateFund(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fund)
}

func (ctrl *Controller) Funds(w http.ResponseWriter, r *http.Request) {
	clientID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	funds, err := ctrl.backoffice.Funds(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, funds)
}

func (ctrl *Controller) RecordLiquidityMovement(w http.ResponseWriter, r *http.Request) {
	clientID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.LiquidityMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.ClientID = clientID

	mv, err := ctrl.backoffice.RecordLiquidityMovement(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mv)
}

func (ctrl *Controller) LiquidityMovements(w http.ResponseWriter, r *http.Request) {
	clientID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	movements, err := ctrl.backoffice.LiquidityMovements(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (ctrl *Controller) AssignCash(w http.ResponseWriter, r *http.Request) {
	fundID, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.CashAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.FundID = fundID

	if err := ctrl.backoffice.AssignCash(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (ctrl *Controller) decodeLimited(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, ctrl.maxUploadBytes)
	return decodeJSON(r, dst)
}

// uploadedText reads the statement file from a multipart form. Spreadsheets
// are flattened to semicolon separated text.
func (ctrl *Controller) uploadedText(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, ctrl.maxUploadBytes)
	if err := r.ParseMultipartForm(ctrl.maxUploadBytes); err != nil {
		return "", badRequest("invalid upload: %s", err)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", badRequest("missing file field %q", uploadField)
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return "", badRequest("cannot read upload: %s", err)
	}

	if strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		text, err := csvImport.TextFromXLSX(buf.Bytes())
		if err != nil {
			return "", service.NewValidationError(uploadField, err.Error())
		}
		return text, nil
	}
	return buf.String(), nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func formInt(r *http.Request, name string) (int64, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s", name)
	}
	return v, nil
}

func formDecimal(r *http.Request, name string) (decimal.Decimal, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, badRequest("invalid %s", name)
	}
	return v, nil
}
