package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/converter/dbConverter"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/model/dbModel"
	"github.com/KotFed0t/fondos_backoffice/utils"
)

const snapshotColumns = `snapshot_id, fund_id, snapshot_date, securities_value, cash_assigned,
	period_deposits, period_withdrawals, period_return, cumulative_return, no_history`

func (r *Postgres) GetLatestSnapshotOnOrBefore(ctx context.Context, fundID int64, date time.Time) (snapshot model.FundSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ` + snapshotColumns + `
		FROM fund_snapshots
		WHERE fund_id = $1
		AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT 1`

	slog.Debug("GetLatestSnapshotOnOrBefore start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetLatestSnapshotOnOrBefore failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestSnapshotOnOrBefore completed", slog.String("rqID", rqID))
		}
	}()

	dbSnapshot := dbModel.FundSnapshot{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, fundID, date).StructScan(&dbSnapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FundSnapshot{}, repository.ErrNotFound
		}
		return model.FundSnapshot{}, err
	}

	return dbConverter.ConvertFundSnapshot(dbSnapshot), nil
}

func (r *Postgres) SnapshotExists(ctx context.Context, fundID int64, date time.Time) (exists bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT EXISTS(SELECT 1 FROM fund_snapshots WHERE fund_id = $1 AND snapshot_date = $2)`

	slog.Debug("SnapshotExists start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("SnapshotExists failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SnapshotExists completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, fundID, date).Scan(&exists)
	return exists, err
}

func (r *Postgres) InsertSnapshot(ctx context.Context, s model.FundSnapshot) (snapshotID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO fund_snapshots(fund_id, snapshot_date, securities_value, cash_assigned,
			period_deposits, period_withdrawals, period_return, cumulative_return, no_history)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING snapshot_id`

	slog.Debug("InsertSnapshot start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertSnapshot failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertSnapshot completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query,
		s.FundID, s.Date, s.SecuritiesValue, s.CashAssigned,
		s.PeriodDeposits, s.PeriodWithdrawals, s.PeriodReturn, s.CumulativeReturn, s.NoHistory,
	).Scan(&snapshotID)
	if err != nil {
		return 0, repository.MapPgError(err)
	}

	return snapshotID, nil
}

func (r *Postgres) GetSnapshots(ctx context.Context, fundID int64) (snapshots []model.FundSnapshot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT ` + snapshotColumns + `
		FROM fund_snapshots
		WHERE fund_id = $1
		ORDER BY snapshot_date`

	slog.Debug("GetSnapshots start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetSnapshots failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSnapshots completed", slog.String("rqID", rqID))
		}
	}()

	var dbSnapshots []dbModel.FundSnapshot
	err = r.txOrDb(ctx).SelectContext(ctx, &dbSnapshots, query, fundID)
	if err != nil {
		return nil, err
	}

	snapshots = make([]model.FundSnapshot, 0, len(dbSnapshots))
	for _, s := range dbSnapshots {
		snapshots = append(snapshots, dbConverter.ConvertFundSnapshot(s))
	}
	return snapshots, nil
}
