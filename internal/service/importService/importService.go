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
)

const DateLayout = "2006-01-02"

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetFund(ctx context.Context, fundID int64) (model.Fund, error)
	FindInstrumentTypesByTickers(ctx context.Context, tickers []string) ([]model.InstrumentType, error)
	InsertInstrumentTypes(ctx context.Context, newTypes []model.InstrumentType) ([]model.InstrumentType, error)
	InsertImport(ctx context.Context, run model.ImportRun) (int64, error)
	InsertMovements(ctx context.Context, movements []model.Movement) error
	UpsertPrices(ctx context.Context, prices []model.PriceRecord) error
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type ImportService struct {
	repo     Repository
	store    ledger.Store
	notifier Notifier
}

func New(repo Repository, store ledger.Store, notifier Notifier) *ImportService {
	return &ImportService{
		repo:     repo,
		store:    store,
		notifier: notifier,
	}
}

// ImportHoldings stores one fund's holdings file: instrument types, an import
// record, one movement per aggregated position and the purchase prices. All
// writes happen in a single transaction.
func (s *ImportService) ImportHoldings(ctx context.Context, req model.ImportRequest) (summary model.ImportSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ImportService.ImportHoldings"

	slog.Debug("ImportHoldings start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", req.FundID), slog.Int64("clientID", req.ClientID))
	defer func() {
		slog.Debug("ImportHoldings finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", req.FundID))
	}()

	purchaseDate, err := validateImportRequest(req)
	if err != nil {
		return model.ImportSummary{}, err
	}

	fund, err := s.repo.GetFund(ctx, req.FundID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ImportSummary{}, fmt.Errorf("fund %d: %w", req.FundID, service.ErrNotFound)
		}
		slog.Error("got error from repo.GetFund", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ImportSummary{}, err
	}
	if fund.ClientID != req.ClientID {
		return model.ImportSummary{}, fmt.Errorf("fund %d, client %d: %w", req.FundID, req.ClientID, service.ErrFundClientMismatch)
	}

	res, err := csvImport.ParseHoldings(req.CsvText)
	if err != nil {
		return model.ImportSummary{}, parseError(err)
	}

	positions, rejected := csvImport.Aggregate(res.Holdings)
	normalized, err := csvImport.Normalize(positions, req.ExchangeRate)
	if err != nil {
		return model.ImportSummary{}, service.NewValidationError("tipo_cambio", err.Error())
	}

	summary = model.ImportSummary{
		FundID:  req.FundID,
		Stats:   statsFrom(res.Stats),
		Details: detailsFrom(normalized),
		Errors:  append(res.Errors, rejected...),
	}
	summary.Stats.ErrorLines = len(summary.Errors)
	summary.Stats.Instruments = len(normalized)

	if len(normalized) == 0 {
		return summary, service.ErrNoValidRows
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		typeIDs, created, err := s.ensureInstrumentTypes(ctx, tickersOf(normalized), currencyOfPositions(normalized))
		if err != nil {
			return err
		}
		summary.Stats.NewInstruments = created

		importID, err := s.repo.InsertImport(ctx, model.ImportRun{
			ClientID:     req.ClientID,
			FundID:       req.FundID,
			ExchangeRate: req.ExchangeRate,
			PurchaseDate: purchaseDate,
			TotalLines:   res.Stats.TotalLines,
			ValidLines:   res.Stats.ValidLines,
		})
		if err != nil {
			return err
		}
		summary.ImportID = importID

		movements := make([]model.Movement, 0, len(normalized))
		prices := make([]model.PriceRecord, 0, len(normalized))
		for _, p := range normalized {
			typeID := typeIDs[p.Ticker]
			movements = append(movements, model.Movement{
				ImportID:         importID,
				FundID:           req.FundID,
				InstrumentTypeID: typeID,
				Quantity:         p.Quantity,
				Price:            p.WeightedAveragePrice,
				PriceUSD:         p.PriceUSD,
				Currency:         p.Currency,
				ExchangeRate:     p.ExchangeRate,
				Date:             purchaseDate,
			})
			prices = append(prices, model.PriceRecord{
				InstrumentTypeID: typeID,
				Date:             purchaseDate,
				Price:            p.WeightedAveragePrice,
				PriceUSD:         p.PriceUSD,
				Valuation:        p.TotalAmount,
				ExchangeRate:     p.ExchangeRate,
			})
		}

		if err := s.repo.InsertMovements(ctx, movements); err != nil {
			return err
		}
		summary.Stats.MovementsStored = len(movements)

		if err := s.repo.UpsertPrices(ctx, prices); err != nil {
			return err
		}
		summary.Stats.PricesStored = len(prices)
		return nil
	})
	if err != nil {
		slog.Error("import transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", req.FundID), slog.String("err", err.Error()))
		return model.ImportSummary{}, err
	}

	slog.Info("holdings imported",
		slog.String("rqID", rqID),
		slog.Int64("fundID", req.FundID),
		slog.Int64("importID", summary.ImportID),
		slog.Int("instruments", summary.Stats.Instruments),
		slog.Int("errors", summary.Stats.ErrorLines),
	)

	return summary, nil
}

// ImportPrices stores a prices file dated req.Date. Repeated symbols are
// averaged by csvImport.DedupPrices before anything is written.
func (s *ImportService) ImportPrices(ctx context.Context, req model.PriceImportRequest) (summary model.ImportSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ImportService.ImportPrices"

	slog.Debug("ImportPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ImportPrices finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if strings.TrimSpace(req.CsvText) == "" {
		return model.ImportSummary{}, service.NewValidationError("csvText", "must not be empty")
	}
	if !req.ExchangeRate.IsPositive() {
		return model.ImportSummary{}, service.NewValidationError("tipo_cambio", "must be greater than zero")
	}
	date, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return model.ImportSummary{}, service.NewValidationError("fecha", "expected format "+DateLayout)
	}

	res, err := csvImport.ParsePrices(req.CsvText)
	if err != nil {
		return model.ImportSummary{}, parseError(err)
	}

	quotes, err := csvImport.NormalizeQuotes(csvImport.DedupPrices(res.Prices), req.ExchangeRate)
	if err != nil {
		return model.ImportSummary{}, service.NewValidationError("tipo_cambio", err.Error())
	}

	summary = model.ImportSummary{
		Stats:   statsFrom(res.Stats),
		Details: make([]model.ImportDetail, 0, len(quotes)),
		Errors:  res.Errors,
	}
	summary.Stats.Instruments = len(quotes)
	for _, q := range quotes {
		summary.Details = append(summary.Details, model.ImportDetail{
			Ticker:               q.Symbol,
			TotalAmount:          q.Valuation,
			WeightedAveragePrice: q.Price,
			PriceUSD:             q.PriceUSD,
			Currency:             q.Currency,
			SourceLines:          q.SourceLines,
		})
	}

	if len(quotes) == 0 {
		return summary, service.ErrNoValidRows
	}

	currencies := make(map[string]model.Currency, len(quotes))
	tickers := make([]string, 0, len(quotes))
	for _, q := range quotes {
		tickers = append(tickers, q.Symbol)
		currencies[q.Symbol] = q.Currency
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		typeIDs, created, err := s.ensureInstrumentTypes(ctx, tickers, currencies)
		if err != nil {
			return err
		}
		summary.Stats.NewInstruments = created

		prices := make([]model.PriceRecord, 0, len(quotes))
		for _, q := range quotes {
			prices = append(prices, model.PriceRecord{
				InstrumentTypeID: typeIDs[q.Symbol],
				Date:             date,
				Price:            q.Price,
				PriceUSD:         q.PriceUSD,
				Valuation:        q.Valuation,
				ExchangeRate:     q.ExchangeRate,
			})
		}
		if err := s.repo.UpsertPrices(ctx, prices); err != nil {
			return err
		}
		summary.Stats.PricesStored = len(prices)
		return nil
	})
	if err != nil {
		slog.Error("prices transaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ImportSummary{}, err
	}

	return summary, nil
}

// ensureInstrumentTypes returns the id of every ticker, inserting the
// unknown ones in one batch. created is the number of inserted tickers.
func (s *ImportService) ensureInstrumentTypes(ctx context.Context, tickers []string, currencies map[string]model.Currency) (ids map[string]int64, created int, err error) {
	existing, err := s.repo.FindInstrumentTypesByTickers(ctx, tickers)
	if err != nil {
		return nil, 0, err
	}

	ids = make(map[string]int64, len(tickers))
	for _, t := range existing {
		ids[t.Ticker] = t.InstrumentTypeID
	}

	var missing []model.InstrumentType
	for _, ticker := range tickers {
		if _, ok := ids[ticker]; ok {
			continue
		}
		missing = append(missing, model.InstrumentType{Ticker: ticker, Currency: currencies[ticker]})
	}
	if len(missing) == 0 {
		return ids, 0, nil
	}

	inserted, err := s.repo.InsertInstrumentTypes(ctx, missing)
	if err != nil {
		return nil, 0, err
	}
	for _, t := range inserted {
		ids[t.Ticker] = t.InstrumentTypeID
	}

	for _, ticker := range tickers {
		if _, ok := ids[ticker]; !ok {
			return nil, 0, fmt.Errorf("instrument type %s was not stored", ticker)
		}
	}
	return ids, len(inserted), nil
}

func validateImportRequest(req model.ImportRequest) (time.Time, error) {
	if strings.TrimSpace(req.CsvText) == "" {
		return time.Time{}, service.NewValidationError("csvText", "must not be empty")
	}
	if req.ClientID <= 0 {
		return time.Time{}, service.NewValidationError("cliente_id", "must be greater than zero")
	}
	if req.FundID <= 0 {
		return time.Time{}, service.NewValidationError("fondo_id", "must be greater than zero")
	}
	if !req.ExchangeRate.IsPositive() {
		return time.Time{}, service.NewValidationError("tipo_cambio", "must be greater than zero")
	}
	date, err := time.Parse(DateLayout, req.PurchaseDate)
	if err != nil {
		return time.Time{}, service.NewValidationError("fecha_compra", "expected format "+DateLayout)
	}
	return date, nil
}

func parseError(err error) error {
	var formatErr *csvImport.UnrecognizedFormatError
	if errors.As(err, &formatErr) || errors.Is(err, csvImport.ErrEmptyInput) {
		return service.NewValidationError("csvText", err.Error())
	}
	return err
}

func statsFrom(st csvImport.Stats) model.ImportStats {
	return model.ImportStats{
		TotalLines:  st.TotalLines,
		ValidLines:  st.ValidLines,
		SkippedCash: st.SkippedCash,
		ErrorLines:  st.ErrorLines,
	}
}

func detailsFrom(positions []model.NormalizedPosition) []model.ImportDetail {
	details := make([]model.ImportDetail, 0, len(positions))
	for _, p := range positions {
		details = append(details, model.ImportDetail{
			Ticker:               p.Ticker,
			Quantity:             p.Quantity,
			TotalAmount:          p.TotalAmount,
			WeightedAveragePrice: p.WeightedAveragePrice,
			PriceUSD:             p.PriceUSD,
			Currency:             p.Currency,
			SourceLines:          p.SourceLines,
		})
	}
	return details
}

func tickersOf(positions []model.NormalizedPosition) []string {
	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	return tickers
}

func currencyOfPositions(positions []model.NormalizedPosition) map[string]model.Currency {
	currencies := make(map[string]model.Currency, len(positions))
	for _, p := range positions {
		currencies[p.Ticker] = p.Currency
	}
	return currencies
}
