package rateService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/KotFed0t/fondos_backoffice/utils"
)

type ExchangeRateApi interface {
	GetExchangeRate(ctx context.Context) (model.ExchangeRate, error)
	Source() string
}

type Cache interface {
	GetExchangeRate(ctx context.Context, source string) (model.ExchangeRate, error)
	SetExchangeRate(ctx context.Context, rate model.ExchangeRate) error
}

type Repository interface {
	UpsertExchangeRate(ctx context.Context, rate model.ExchangeRate) error
	GetLatestExchangeRate(ctx context.Context, source string) (model.ExchangeRate, error)
}

type RateService struct {
	api   ExchangeRateApi
	cache Cache
	repo  Repository
}

func New(api ExchangeRateApi, cache Cache, repo Repository) *RateService {
	return &RateService{api: api, cache: cache, repo: repo}
}

// Current returns the cached rate, then a freshly fetched one, then the last
// stored one, whichever is available first.
func (s *RateService) Current(ctx context.Context) (rate model.ExchangeRate, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RateService.Current"
	source := s.api.Source()

	slog.Debug("Current start", slog.String("rqID", rqID), slog.String("op", op), slog.String("source", source))
	defer func() {
		slog.Debug("Current finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	rate, err = s.cache.GetExchangeRate(ctx, source)
	if err == nil {
		return rate, nil
	}

	slog.Warn("can't get exchange rate from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	rate, err = s.api.GetExchangeRate(ctx)
	if err == nil {
		go s.cache.SetExchangeRate(context.WithoutCancel(ctx), rate)
		if err := s.repo.UpsertExchangeRate(ctx, rate); err != nil {
			slog.Error("can't store exchange rate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
		return rate, nil
	}

	slog.Error("can't get exchange rate from api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	rate, err = s.repo.GetLatestExchangeRate(ctx, source)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ExchangeRate{}, service.ErrNotFound
		}
		return model.ExchangeRate{}, err
	}

	return rate, nil
}

// FillExchangeRateCache refreshes the cache and the stored history from the api.
func (s *RateService) FillExchangeRateCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RateService.FillExchangeRateCache"

	rate, err := s.api.GetExchangeRate(ctx)
	if err != nil {
		slog.Error("can't get exchange rate from api", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := s.cache.SetExchangeRate(ctx, rate); err != nil {
		return err
	}

	return s.repo.UpsertExchangeRate(ctx, rate)
}
