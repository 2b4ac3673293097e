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

func (r *Postgres) InsertClient(ctx context.Context, name, email string) (clientID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO clients(name, email) VALUES($1, $2) RETURNING client_id`

	slog.Debug("InsertClient start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertClient failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertClient completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, name, email).Scan(&clientID)
	if err != nil {
		return 0, repository.MapPgError(err)
	}

	return clientID, nil
}

func (r *Postgres) GetClient(ctx context.Context, clientID int64) (client model.Client, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT client_id, name, email, dt_create FROM clients WHERE client_id = $1`

	slog.Debug("GetClient start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetClient failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetClient completed", slog.String("rqID", rqID))
		}
	}()

	dbClient := dbModel.Client{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, clientID).StructScan(&dbClient)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Client{}, repository.ErrNotFound
		}
		return model.Client{}, err
	}

	return dbConverter.ConvertClient(dbClient), nil
}

func (r *Postgres) GetClients(ctx context.Context) (clients []model.Client, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT client_id, name, email, dt_create FROM clients ORDER BY name`

	slog.Debug("GetClients start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetClients failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetClients completed", slog.String("rqID", rqID))
		}
	}()

	var dbClients []dbModel.Client
	err = r.txOrDb(ctx).SelectContext(ctx, &dbClients, query)
	if err != nil {
		return nil, err
	}

	clients = make([]model.Client, 0, len(dbClients))
	for _, c := range dbClients {
		clients = append(clients, dbConverter.ConvertClient(c))
	}
	return clients, nil
}

func (r *Postgres) InsertFund(ctx context.Context, clientID int64, name, strategy string) (fundID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO funds(client_id, name, strategy) VALUES($1, $2, $3) RETURNING fund_id`

	slog.Debug("InsertFund start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertFund failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertFund completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, clientID, name, strategy).Scan(&fundID)
	if err != nil {
		return 0, repository.MapPgError(err)
	}

	return fundID, nil
}

func (r *Postgres) GetFund(ctx context.Context, fundID int64) (fund model.Fund, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT fund_id, client_id, name, strategy, dt_create FROM funds WHERE fund_id = $1`

	slog.Debug("GetFund start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetFund failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetFund completed", slog.String("rqID", rqID))
		}
	}()

	dbFund := dbModel.Fund{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, fundID).StructScan(&dbFund)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Fund{}, repository.ErrNotFound
		}
		return model.Fund{}, err
	}

	return dbConverter.ConvertFund(dbFund), nil
}

func (r *Postgres) getFunds(ctx context.Context, query string, args ...any) (funds []model.Fund, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("getFunds start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getFunds failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getFunds completed", slog.String("rqID", rqID))
		}
	}()

	var dbFunds []dbModel.Fund
	err = r.txOrDb(ctx).SelectContext(ctx, &dbFunds, query, args...)
	if err != nil {
		return nil, err
	}

	funds = make([]model.Fund, 0, len(dbFunds))
	for _, f := range dbFunds {
		funds = append(funds, dbConverter.ConvertFund(f))
	}
	return funds, nil
}

func (r *Postgres) GetFunds(ctx context.Context) ([]model.Fund, error) {
	return r.getFunds(ctx, `SELECT fund_id, client_id, name, strategy, dt_create FROM funds ORDER BY fund_id`)
}

func (r *Postgres) GetClientFunds(ctx context.Context, clientID int64) ([]model.Fund, error) {
	return r.getFunds(ctx, `
		SELECT fund_id, client_id, name, strategy, dt_create
		FROM funds
		WHERE client_id = $1
		ORDER BY fund_id`, clientID)
}
