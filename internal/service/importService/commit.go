package importService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/fondos_backoffice/internal/csvImport"
	"github.com/KotFed0t/fondos_backoffice/internal/ledger"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
)

// FundBatch is the import submitted for a single fund on commit.
type FundBatch struct {
	FundID  int64
	Request model.ImportRequest
}

type FundImportResult struct {
	FundID  int64               `json:"fondo_id"`
	Summary model.ImportSummary `json:"resultado"`
}

type FundFailure struct {
	FundID int64  `json:"fondo_id"`
	Reason string `json:"error"`
}

type CommitResult struct {
	Completed []FundImportResult `json:"completados"`
	Failed    *FundFailure       `json:"fallido,omitempty"`
	Pending   []int64            `json:"pendientes,omitempty"`
}

// PartialCommitError reports a commit that stopped at a failing fund. Funds
// before it stay committed and leave the ledger; funds after it were never
// submitted.
type PartialCommitError struct {
	Completed int
	Failed    int
	Pending   int
	FundID    int64
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("commit stopped at fund %d: %d funds imported, %d failed, %d not submitted: %s",
		e.FundID, e.Completed, e.Failed, e.Pending, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// Commit submits the session's allocations, one import per fund in fund id
// order. Each imported fund is released from the ledger, so a retry after a
// failure only submits the failed and pending funds. The ledger is cleared
// once every fund was imported.
func (s *ImportService) Commit(ctx context.Context, sessionID string, clientID int64) (result CommitResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ImportService.Commit"

	slog.Debug("Commit start", slog.String("rqID", rqID), slog.String("op", op), slog.String("sessionID", sessionID), slog.Int64("clientID", clientID))
	defer func() {
		slog.Debug("Commit finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("completed", len(result.Completed)))
	}()

	if clientID <= 0 {
		return CommitResult{}, service.NewValidationError("cliente_id", "must be greater than zero")
	}

	l, err := s.restore(ctx, sessionID)
	if err != nil {
		return CommitResult{}, err
	}
	if l.IsEmpty() {
		return CommitResult{}, service.ErrEmptyLedger
	}

	batches, err := BuildFundBatches(l, clientID)
	if err != nil {
		return CommitResult{}, err
	}

	result.Completed = make([]FundImportResult, 0, len(batches))
	for i, batch := range batches {
		summary, err := s.ImportHoldings(ctx, batch.Request)
		if err != nil {
			slog.Error("fund import failed during commit", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", batch.FundID), slog.String("err", err.Error()))

			result.Failed = &FundFailure{FundID: batch.FundID, Reason: err.Error()}
			for _, rest := range batches[i+1:] {
				result.Pending = append(result.Pending, rest.FundID)
			}
			partial := &PartialCommitError{
				Completed: len(result.Completed),
				Failed:    1,
				Pending:   len(result.Pending),
				FundID:    batch.FundID,
				Err:       err,
			}
			s.notify(ctx, partial.Error())
			return result, partial
		}
		result.Completed = append(result.Completed, FundImportResult{FundID: batch.FundID, Summary: summary})

		if err := l.ReleaseFund(ctx, batch.FundID); err != nil {
			slog.Error("failed to release committed fund from ledger", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", batch.FundID), slog.String("err", err.Error()))
		}
	}

	if err := l.Reset(ctx); err != nil {
		slog.Error("failed to reset ledger after commit", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	s.notify(ctx, commitMessage(clientID, result))
	return result, nil
}

// BuildFundBatches groups the ledger's allocations by fund and renders each
// group as a holdings file. The amount of a line is the instrument's weighted
// average price times the allocated quantity.
func BuildFundBatches(l *ledger.Ledger, clientID int64) ([]FundBatch, error) {
	var batches []FundBatch
	var sb *strings.Builder
	var current *FundBatch

	flush := func() {
		if current != nil {
			current.Request.CsvText = sb.String()
			batches = append(batches, *current)
		}
	}

	for _, a := range l.Allocations() {
		inst, ok := l.Instrument(a.InstrumentID)
		if !ok {
			return nil, fmt.Errorf("allocation of %s: %w", a.InstrumentID, ledger.ErrUnknownInstrument)
		}

		if current == nil || current.FundID != a.FundID {
			flush()
			current = &FundBatch{
				FundID: a.FundID,
				Request: model.ImportRequest{
					ClientID:     clientID,
					FundID:       a.FundID,
					ExchangeRate: a.ExchangeRate,
					PurchaseDate: a.Date,
				},
			}
			sb = &strings.Builder{}
			sb.WriteString(strings.Join(csvImport.HoldingsColumns, ";"))
			sb.WriteString("\n")
		}

		sb.WriteString(fmt.Sprintf("%s;%s;%s;%s\n", inst.Ticker, allocatedAmount(inst, a.Quantity).String(), a.Quantity.String(), inst.Currency))
	}
	flush()

	return batches, nil
}

func allocatedAmount(inst ledger.Instrument, quantity decimal.Decimal) decimal.Decimal {
	if quantity.Equal(inst.Quantity) {
		return inst.TotalAmount
	}
	return inst.WeightedAveragePrice.Mul(quantity).Round(2)
}

func commitMessage(clientID int64, result CommitResult) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Importación confirmada para cliente %d\n", clientID))
	for _, r := range result.Completed {
		sb.WriteString(fmt.Sprintf("Fondo %d: %d especies, %d movimientos\n", r.FundID, r.Summary.Stats.Instruments, r.Summary.Stats.MovementsStored))
	}
	return sb.String()
}

func (s *ImportService) notify(ctx context.Context, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		slog.Warn("failed to send notification", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}
}
