package importService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/csvImport"
	"github.com/KotFed0t/fondos_backoffice/internal/ledger"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
)

type InstrumentView struct {
	ledger.Instrument
	Available decimal.Decimal `json:"disponible"`
}

type LedgerView struct {
	Instruments []InstrumentView    `json:"especies"`
	Allocations []ledger.Allocation `json:"asignaciones"`
}

type PreviewResult struct {
	Ledger LedgerView              `json:"distribucion"`
	Stats  model.ImportStats       `json:"estadisticas"`
	Errors []model.ImportLineError `json:"errores"`
}

// Preview parses a consolidated holdings file in the background and loads the
// aggregated positions into the session's ledger, dropping any previous
// allocations.
func (s *ImportService) Preview(ctx context.Context, sessionID string, req model.PreviewRequest) (result PreviewResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ImportService.Preview"

	slog.Debug("Preview start", slog.String("rqID", rqID), slog.String("op", op), slog.String("sessionID", sessionID))
	defer func() {
		slog.Debug("Preview finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("sessionID", sessionID))
	}()

	if strings.TrimSpace(req.CsvText) == "" {
		return PreviewResult{}, service.NewValidationError("csvText", "must not be empty")
	}
	if !req.ExchangeRate.IsPositive() {
		return PreviewResult{}, service.NewValidationError("tipo_cambio", "must be greater than zero")
	}
	if _, err := time.Parse(DateLayout, req.PurchaseDate); err != nil {
		return PreviewResult{}, service.NewValidationError("fecha_compra", "expected format "+DateLayout)
	}

	var job csvImport.JobResult
	select {
	case job = <-csvImport.StartParse(req.CsvText, csvImport.SchemaHoldings):
	case <-ctx.Done():
		return PreviewResult{}, ctx.Err()
	}
	if job.Err != nil {
		return PreviewResult{}, parseError(job.Err)
	}

	positions, rejected := csvImport.Aggregate(job.Result.Holdings)
	normalized, err := csvImport.Normalize(positions, req.ExchangeRate)
	if err != nil {
		return PreviewResult{}, service.NewValidationError("tipo_cambio", err.Error())
	}

	result.Stats = statsFrom(job.Result.Stats)
	result.Errors = append(job.Result.Errors, rejected...)
	result.Stats.ErrorLines = len(result.Errors)
	result.Stats.Instruments = len(normalized)

	if len(normalized) == 0 {
		return result, service.ErrNoValidRows
	}

	l := ledger.New(s.store, sessionID)
	if err := l.Load(ctx, ledger.InstrumentsFromPositions(normalized, req.PurchaseDate)); err != nil {
		slog.Error("got error from ledger.Load", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return PreviewResult{}, err
	}

	result.Ledger, err = view(l)
	return result, err
}

func (s *ImportService) Ledger(ctx context.Context, sessionID string) (LedgerView, error) {
	l, err := s.restore(ctx, sessionID)
	if err != nil {
		return LedgerView{}, err
	}
	return view(l)
}

func (s *ImportService) Allocate(ctx context.Context, sessionID, instrumentID string, fundID int64, quantity decimal.Decimal) (LedgerView, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ImportService.Allocate"

	slog.Debug("Allocate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("instrumentID", instrumentID), slog.Int64("fundID", fundID), slog.String("quantity", quantity.String()))

	if err := s.checkFund(ctx, fundID); err != nil {
		return LedgerView{}, err
	}

	l, err := s.restore(ctx, sessionID)
	if err != nil {
		return LedgerView{}, err
	}

	if err := l.Allocate(ctx, instrumentID, fundID, quantity); err != nil {
		slog.Info("allocation rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return LedgerView{}, err
	}

	return view(l)
}

func (s *ImportService) AllocateAll(ctx context.Context, sessionID, instrumentID string, fundID int64) (LedgerView, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ImportService.AllocateAll"

	slog.Debug("AllocateAll start", slog.String("rqID", rqID), slog.String("op", op), slog.String("instrumentID", instrumentID), slog.Int64("fundID", fundID))

	if err := s.checkFund(ctx, fundID); err != nil {
		return LedgerView{}, err
	}

	l, err := s.restore(ctx, sessionID)
	if err != nil {
		return LedgerView{}, err
	}

	if _, err := l.AllocateAll(ctx, instrumentID, fundID); err != nil {
		slog.Info("allocation rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return LedgerView{}, err
	}

	return view(l)
}

func (s *ImportService) Deallocate(ctx context.Context, sessionID, instrumentID string, fundID int64) (LedgerView, error) {
	l, err := s.restore(ctx, sessionID)
	if err != nil {
		return LedgerView{}, err
	}

	if err := l.Deallocate(ctx, instrumentID, fundID); err != nil {
		return LedgerView{}, err
	}

	return view(l)
}

func (s *ImportService) ResetLedger(ctx context.Context, sessionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("ResetLedger", slog.String("rqID", rqID), slog.String("sessionID", sessionID))

	return ledger.New(s.store, sessionID).Reset(ctx)
}

func (s *ImportService) restore(ctx context.Context, sessionID string) (*ledger.Ledger, error) {
	l := ledger.New(s.store, sessionID)
	if err := l.Restore(ctx); err != nil {
		slog.Error("failed to restore ledger", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("sessionID", sessionID), slog.String("err", err.Error()))
		return nil, err
	}
	return l, nil
}

func (s *ImportService) checkFund(ctx context.Context, fundID int64) error {
	if fundID <= 0 {
		return service.NewValidationError("fondo_id", "must be greater than zero")
	}
	_, err := s.repo.GetFund(ctx, fundID)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("fund %d: %w", fundID, service.ErrNotFound)
	}
	return err
}

func view(l *ledger.Ledger) (LedgerView, error) {
	instruments := l.Instruments()
	v := LedgerView{
		Instruments: make([]InstrumentView, 0, len(instruments)),
		Allocations: l.Allocations(),
	}
	for _, inst := range instruments {
		available, err := l.Available(inst.ID)
		if err != nil {
			return LedgerView{}, err
		}
		v.Instruments = append(v.Instruments, InstrumentView{Instrument: inst, Available: available})
	}
	return v, nil
}
