package backofficeService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type Repository interface {
	InsertClient(ctx context.Context, name, email string) (int64, error)
	GetClient(ctx context.Context, clientID int64) (model.Client, error)
	GetClients(ctx context.Context) ([]model.Client, error)
	InsertFund(ctx context.Context, clientID int64, name, strategy string) (int64, error)
	GetFund(ctx context.Context, fundID int64) (model.Fund, error)
	GetClientFunds(ctx context.Context, clientID int64) ([]model.Fund, error)
	InsertLiquidityMovement(ctx context.Context, mv model.LiquidityMovement) (int64, error)
	GetClientLiquidityMovements(ctx context.Context, clientID int64) ([]model.LiquidityMovement, error)
	AssignCash(ctx context.Context, fundID int64, amountUSD decimal.Decimal, date time.Time) error
}

type BackofficeService struct {
	repo Repository
}

func New(repo Repository) *BackofficeService {
	return &BackofficeService{repo: repo}
}

func (s *BackofficeService) CreateClient(ctx context.Context, req model.NewClientRequest) (model.Client, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BackofficeService.CreateClient"

	slog.Debug("CreateClient start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", req.Name))
	defer func() {
		slog.Debug("CreateClient finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Client{}, service.NewValidationError("nombre", "must not be empty")
	}

	clientID, err := s.repo.InsertClient(ctx, name, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Client{}, fmt.Errorf("client %q: %w", name, service.ErrAlreadyExists)
		}
		slog.Error("got error from repo.InsertClient", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Client{}, err
	}

	return s.repo.GetClient(ctx, clientID)
}

func (s *BackofficeService) Clients(ctx context.Context) ([]model.Client, error) {
	return s.repo.GetClients(ctx)
}

func (s *BackofficeService) Client(ctx context.Context, clientID int64) (model.Client, error) {
	client, err := s.repo.GetClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Client{}, fmt.Errorf("client %d: %w", clientID, service.ErrNotFound)
	}
	return client, err
}

func (s *BackofficeService) CreateFund(ctx context.Context, req model.NewFundRequest) (model.Fund, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BackofficeService.CreateFund"

	slog.Debug("CreateFund start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("clientID", req.ClientID), slog.String("name", req.Name))
	defer func() {
		slog.Debug("CreateFund finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Fund{}, service.NewValidationError("nombre", "must not be empty")
	}

	if _, err := s.Client(ctx, req.ClientID); err != nil {
		return model.Fund{}, err
	}

	fundID, err := s.repo.InsertFund(ctx, req.ClientID, name, strings.TrimSpace(req.Strategy))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Fund{}, fmt.Errorf("fund %q: %w", name, service.ErrAlreadyExists)
		}
		slog.Error("got error from repo.InsertFund", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Fund{}, err
	}

	return s.repo.GetFund(ctx, fundID)
}

func (s *BackofficeService) Funds(ctx context.Context, clientID int64) ([]model.Fund, error) {
	if _, err := s.Client(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.GetClientFunds(ctx, clientID)
}

// RecordLiquidityMovement stores a cash movement of a client, optionally tied
// to one of the client's funds.
func (s *BackofficeService) RecordLiquidityMovement(ctx context.Context, req model.LiquidityMovementRequest) (model.LiquidityMovement, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BackofficeService.RecordLiquidityMovement"

	slog.Debug("RecordLiquidityMovement start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("clientID", req.ClientID))
	defer func() {
		slog.Debug("RecordLiquidityMovement finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	mv, err := validateLiquidityMovement(req)
	if err != nil {
		return model.LiquidityMovement{}, err
	}

	if _, err := s.Client(ctx, req.ClientID); err != nil {
		return model.LiquidityMovement{}, err
	}

	if req.FundID != nil {
		fund, err := s.repo.GetFund(ctx, *req.FundID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.LiquidityMovement{}, fmt.Errorf("fund %d: %w", *req.FundID, service.ErrNotFound)
			}
			return model.LiquidityMovement{}, err
		}
		if fund.ClientID != req.ClientID {
			return model.LiquidityMovement{}, service.ErrFundClientMismatch
		}
	}

	mv.LiquidityMovementID, err = s.repo.InsertLiquidityMovement(ctx, mv)
	if err != nil {
		slog.Error("got error from repo.InsertLiquidityMovement", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.LiquidityMovement{}, err
	}

	return mv, nil
}

func (s *BackofficeService) LiquidityMovements(ctx context.Context, clientID int64) ([]model.LiquidityMovement, error) {
	if _, err := s.Client(ctx, clientID); err != nil {
		return nil, err
	}
	return s.repo.GetClientLiquidityMovements(ctx, clientID)
}

// AssignCash records USD liquidity as part of a fund's value.
func (s *BackofficeService) AssignCash(ctx context.Context, req model.CashAssignmentRequest) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "BackofficeService.AssignCash"

	slog.Debug("AssignCash start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("fundID", req.FundID), slog.String("amountUSD", req.AmountUSD.String()))

	if req.AmountUSD.IsZero() {
		return service.NewValidationError("monto_usd", "must not be zero")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return service.NewValidationError("fecha", "expected format "+dateLayout)
	}

	if _, err := s.repo.GetFund(ctx, req.FundID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("fund %d: %w", req.FundID, service.ErrNotFound)
		}
		return err
	}

	return s.repo.AssignCash(ctx, req.FundID, req.AmountUSD, date)
}

func validateLiquidityMovement(req model.LiquidityMovementRequest) (model.LiquidityMovement, error) {
	switch req.Kind {
	case model.FlowDeposit, model.FlowWithdrawal, model.FlowTransfer:
	default:
		return model.LiquidityMovement{}, service.NewValidationError("tipo", "must be deposit, withdrawal or transfer")
	}

	origin := req.Origin
	if origin == "" {
		origin = model.OriginManual
	}
	if origin != model.OriginManual && origin != model.OriginAutomatic {
		return model.LiquidityMovement{}, service.NewValidationError("origen", "must be manual or automatic")
	}

	if !req.Amount.IsPositive() {
		return model.LiquidityMovement{}, service.NewValidationError("monto", "must be greater than zero")
	}

	if req.Currency != model.CurrencyARS && req.Currency != model.CurrencyUSD {
		return model.LiquidityMovement{}, service.NewValidationError("moneda", "must be ARS or USD")
	}
	// fund values are kept in USD, so are the flows that feed their returns
	if req.FundID != nil && req.Currency != model.CurrencyUSD {
		return model.LiquidityMovement{}, service.NewValidationError("moneda", "fund movements must be in USD")
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return model.LiquidityMovement{}, service.NewValidationError("fecha", "expected format "+dateLayout)
	}

	return model.LiquidityMovement{
		ClientID: req.ClientID,
		FundID:   req.FundID,
		Kind:     req.Kind,
		Origin:   origin,
		Amount:   req.Amount,
		Currency: req.Currency,
		Date:     date,
	}, nil
}
