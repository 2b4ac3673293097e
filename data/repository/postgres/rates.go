package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/converter/dbConverter"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/model/dbModel"
	"github.com/KotFed0t/fondos_backoffice/utils"
)

func (r *Postgres) UpsertExchangeRate(ctx context.Context, rate model.ExchangeRate) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO exchange_rates(rate_date, source, buy, sell, dt_update)
		VALUES($1, $2, $3, $4, now())
		ON CONFLICT (rate_date, source) DO UPDATE SET
			buy = EXCLUDED.buy,
			sell = EXCLUDED.sell,
			dt_update = EXCLUDED.dt_update`

	slog.Debug("UpsertExchangeRate start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpsertExchangeRate failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertExchangeRate completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, rate.Date, rate.Source, rate.Buy, rate.Sell)
	return err
}

func (r *Postgres) GetLatestExchangeRate(ctx context.Context, source string) (rate model.ExchangeRate, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT rate_date, source, buy, sell, dt_update
		FROM exchange_rates
		WHERE source = $1
		ORDER BY rate_date DESC
		LIMIT 1`

	slog.Debug("GetLatestExchangeRate start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetLatestExchangeRate failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestExchangeRate completed", slog.String("rqID", rqID))
		}
	}()

	dbRate := dbModel.ExchangeRate{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, source).StructScan(&dbRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ExchangeRate{}, repository.ErrNotFound
		}
		return model.ExchangeRate{}, err
	}

	return dbConverter.ConvertExchangeRate(dbRate), nil
}
