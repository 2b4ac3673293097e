package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/converter/dbConverter"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/model/dbModel"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/jmoiron/sqlx"
)

func (r *Postgres) FindInstrumentTypesByTickers(ctx context.Context, tickers []string) (types []model.InstrumentType, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("FindInstrumentTypesByTickers start", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)))
	defer func() {
		if err != nil {
			slog.Error("FindInstrumentTypesByTickers failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("FindInstrumentTypesByTickers completed", slog.String("rqID", rqID), slog.Int("found", len(types)))
		}
	}()

	if len(tickers) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT instrument_type_id, ticker, currency FROM instrument_types WHERE ticker IN (?)`, tickers)
	if err != nil {
		return nil, err
	}

	q := r.txOrDb(ctx)
	var dbTypes []dbModel.InstrumentType
	err = q.SelectContext(ctx, &dbTypes, q.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	types = make([]model.InstrumentType, 0, len(dbTypes))
	for _, t := range dbTypes {
		types = append(types, dbConverter.ConvertInstrumentType(t))
	}
	return types, nil
}

// InsertInstrumentTypes inserts every ticker in one statement and returns the
// stored rows with their ids.
func (r *Postgres) InsertInstrumentTypes(ctx context.Context, newTypes []model.InstrumentType) (inserted []model.InstrumentType, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	sb := strings.Builder{}
	args := make([]any, 0, len(newTypes)*2)

	slog.Debug("InsertInstrumentTypes start", slog.String("rqID", rqID), slog.Int("count", len(newTypes)))
	defer func() {
		if err != nil {
			slog.Error("InsertInstrumentTypes failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertInstrumentTypes completed", slog.String("rqID", rqID))
		}
	}()

	if len(newTypes) == 0 {
		return nil, nil
	}

	sb.WriteString(`INSERT INTO instrument_types (ticker, currency) VALUES `)
	for i, t := range newTypes {
		args = append(args, t.Ticker, string(t.Currency))

		start := i*2 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d)", start, start+1))

		if i < len(newTypes)-1 {
			sb.WriteString(",")
		}
	}
	sb.WriteString(` RETURNING instrument_type_id, ticker, currency`)

	var dbTypes []dbModel.InstrumentType
	err = r.txOrDb(ctx).SelectContext(ctx, &dbTypes, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("insert instrument types: %w", repository.MapPgError(err))
	}

	inserted = make([]model.InstrumentType, 0, len(dbTypes))
	for _, t := range dbTypes {
		inserted = append(inserted, dbConverter.ConvertInstrumentType(t))
	}
	return inserted, nil
}

func (r *Postgres) InsertImport(ctx context.Context, run model.ImportRun) (importID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO imports(client_id, fund_id, exchange_rate, purchase_date, lines_total, lines_valid)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING import_id`

	slog.Debug("InsertImport start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertImport failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertImport completed", slog.String("rqID", rqID), slog.Int64("importID", importID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query,
		run.ClientID, run.FundID, run.ExchangeRate, run.PurchaseDate, run.TotalLines, run.ValidLines,
	).Scan(&importID)
	if err != nil {
		return 0, repository.MapPgError(err)
	}

	return importID, nil
}

func (r *Postgres) InsertMovements(ctx context.Context, movements []model.Movement) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	sb := strings.Builder{}
	args := make([]any, 0, len(movements)*9)

	slog.Debug("InsertMovements start", slog.String("rqID", rqID), slog.Int("count", len(movements)))
	defer func() {
		if err != nil {
			slog.Error("InsertMovements failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertMovements completed", slog.String("rqID", rqID))
		}
	}()

	if len(movements) == 0 {
		return nil
	}

	sb.WriteString(`INSERT INTO movements (import_id, fund_id, instrument_type_id, quantity, price, price_usd, currency, exchange_rate, movement_date) VALUES `)
	for i, m := range movements {
		args = append(args, m.ImportID, m.FundID, m.InstrumentTypeID, m.Quantity, m.Price, m.PriceUSD, string(m.Currency), m.ExchangeRate, m.Date)

		start := i*9 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5, start+6, start+7, start+8,
		))

		if i < len(movements)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	return repository.MapPgError(err)
}

// UpsertPrices keeps one price per instrument and date; the last write wins.
func (r *Postgres) UpsertPrices(ctx context.Context, prices []model.PriceRecord) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	sb := strings.Builder{}
	args := make([]any, 0, len(prices)*6)

	slog.Debug("UpsertPrices start", slog.String("rqID", rqID), slog.Int("count", len(prices)))
	defer func() {
		if err != nil {
			slog.Error("UpsertPrices failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertPrices completed", slog.String("rqID", rqID))
		}
	}()

	if len(prices) == 0 {
		return nil
	}

	sb.WriteString(`INSERT INTO prices (instrument_type_id, price_date, price, price_usd, valuation, exchange_rate) VALUES `)
	for i, p := range prices {
		args = append(args, p.InstrumentTypeID, p.Date, p.Price, p.PriceUSD, p.Valuation, p.ExchangeRate)

		start := i*6 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5,
		))

		if i < len(prices)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(`
		ON CONFLICT (instrument_type_id, price_date) DO UPDATE SET
			price = EXCLUDED.price,
			price_usd = EXCLUDED.price_usd,
			valuation = EXCLUDED.valuation,
			exchange_rate = EXCLUDED.exchange_rate;
	`)

	_, err = r.txOrDb(ctx).ExecContext(ctx, sb.String(), args...)
	return err
}

// GetFundHoldings sums the fund's movements dated on or before asOf per
// instrument and values them at the latest USD price stored on or before asOf,
// falling back to the average purchase price.
func (r *Postgres) GetFundHoldings(ctx context.Context, fundID int64, asOf time.Time) (holdings []model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT it.instrument_type_id, it.ticker, it.currency,
			SUM(m.quantity) AS quantity,
			COALESCE(
				(SELECT p.price_usd FROM prices p
				 WHERE p.instrument_type_id = it.instrument_type_id
				   AND p.price_date <= $2
				 ORDER BY p.price_date DESC LIMIT 1),
				SUM(m.quantity * m.price_usd) / NULLIF(SUM(m.quantity), 0),
				0
			) AS price_usd
		FROM movements m
		JOIN instrument_types it ON it.instrument_type_id = m.instrument_type_id
		WHERE m.fund_id = $1
		  AND m.movement_date <= $2
		GROUP BY it.instrument_type_id, it.ticker, it.currency
		HAVING SUM(m.quantity) > 0
		ORDER BY it.ticker`

	slog.Debug("GetFundHoldings start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetFundHoldings failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetFundHoldings completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, fundID, asOf)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var h dbModel.Holding
		err = rows.StructScan(&h)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, dbConverter.ConvertHolding(h))
	}

	return holdings, rows.Err()
}
