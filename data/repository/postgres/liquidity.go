package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/converter/dbConverter"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/model/dbModel"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertLiquidityMovement(ctx context.Context, mv model.LiquidityMovement) (movementID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO liquidity_movements(client_id, fund_id, kind, origin, amount, currency, movement_date)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING liquidity_movement_id`

	slog.Debug("InsertLiquidityMovement start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertLiquidityMovement failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertLiquidityMovement completed", slog.String("rqID", rqID))
		}
	}()

	fundID := sql.NullInt64{}
	if mv.FundID != nil {
		fundID = sql.NullInt64{Int64: *mv.FundID, Valid: true}
	}

	err = r.txOrDb(ctx).QueryRowContext(ctx, query,
		mv.ClientID, fundID, string(mv.Kind), string(mv.Origin), mv.Amount, string(mv.Currency), mv.Date,
	).Scan(&movementID)
	if err != nil {
		return 0, repository.MapPgError(err)
	}

	return movementID, nil
}

// GetFundLiquidityMovements returns movements with from < date <= to.
func (r *Postgres) GetFundLiquidityMovements(ctx context.Context, fundID int64, from, to time.Time) (movements []model.LiquidityMovement, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT liquidity_movement_id, client_id, fund_id, kind, origin, amount, currency, movement_date
		FROM liquidity_movements
		WHERE fund_id = $1
		AND movement_date > $2
		AND movement_date <= $3
		ORDER BY movement_date, liquidity_movement_id`

	slog.Debug("GetFundLiquidityMovements start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetFundLiquidityMovements failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetFundLiquidityMovements completed", slog.String("rqID", rqID))
		}
	}()

	var dbMovements []dbModel.LiquidityMovement
	err = r.txOrDb(ctx).SelectContext(ctx, &dbMovements, query, fundID, from, to)
	if err != nil {
		return nil, err
	}

	movements = make([]model.LiquidityMovement, 0, len(dbMovements))
	for _, m := range dbMovements {
		movements = append(movements, dbConverter.ConvertLiquidityMovement(m))
	}
	return movements, nil
}

func (r *Postgres) GetClientLiquidityMovements(ctx context.Context, clientID int64) (movements []model.LiquidityMovement, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT liquidity_movement_id, client_id, fund_id, kind, origin, amount, currency, movement_date
		FROM liquidity_movements
		WHERE client_id = $1
		ORDER BY movement_date DESC, liquidity_movement_id DESC`

	slog.Debug("GetClientLiquidityMovements start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetClientLiquidityMovements failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetClientLiquidityMovements completed", slog.String("rqID", rqID))
		}
	}()

	var dbMovements []dbModel.LiquidityMovement
	err = r.txOrDb(ctx).SelectContext(ctx, &dbMovements, query, clientID)
	if err != nil {
		return nil, err
	}

	movements = make([]model.LiquidityMovement, 0, len(dbMovements))
	for _, m := range dbMovements {
		movements = append(movements, dbConverter.ConvertLiquidityMovement(m))
	}
	return movements, nil
}

func (r *Postgres) AssignCash(ctx context.Context, fundID int64, amountUSD decimal.Decimal, date time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO liquidity_allocations(fund_id, amount_usd, allocation_date) VALUES($1, $2, $3)`

	slog.Debug("AssignCash start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AssignCash failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("AssignCash completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, fundID, amountUSD, date)
	return repository.MapPgError(err)
}

// GetFundCashAssigned is the USD cash assigned to the fund up to and including asOf.
func (r *Postgres) GetFundCashAssigned(ctx context.Context, fundID int64, asOf time.Time) (total decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT COALESCE(SUM(amount_usd), 0)
		FROM liquidity_allocations
		WHERE fund_id = $1
		AND allocation_date <= $2`

	slog.Debug("GetFundCashAssigned start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetFundCashAssigned failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetFundCashAssigned completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, fundID, asOf).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
