package rateService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/cache"
	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeApi struct {
	rate  model.ExchangeRate
	err   error
	calls int
}

func (a *fakeApi) GetExchangeRate(context.Context) (model.ExchangeRate, error) {
	a.calls++
	return a.rate, a.err
}

func (a *fakeApi) Source() string { return "mep" }

type fakeCache struct {
	mu    sync.Mutex
	rates map[string]model.ExchangeRate
}

func (c *fakeCache) GetExchangeRate(_ context.Context, source string) (model.ExchangeRate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rates[source]
	if !ok {
		return model.ExchangeRate{}, cache.ErrNotFound
	}
	return r, nil
}

func (c *fakeCache) SetExchangeRate(_ context.Context, rate model.ExchangeRate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[rate.Source] = rate
	return nil
}

type fakeRepo struct {
	stored []model.ExchangeRate
}

func (r *fakeRepo) UpsertExchangeRate(_ context.Context, rate model.ExchangeRate) error {
	r.stored = append(r.stored, rate)
	return nil
}

func (r *fakeRepo) GetLatestExchangeRate(context.Context, string) (model.ExchangeRate, error) {
	if len(r.stored) == 0 {
		return model.ExchangeRate{}, repository.ErrNotFound
	}
	return r.stored[len(r.stored)-1], nil
}

func rate(sell string) model.ExchangeRate {
	return model.ExchangeRate{
		Date:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Source: "mep",
		Buy:    decimal.RequireFromString(sell).Sub(decimal.NewFromInt(10)),
		Sell:   decimal.RequireFromString(sell),
	}
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit", func(t *testing.T) {
		api := &fakeApi{rate: rate("1200")}
		c := &fakeCache{rates: map[string]model.ExchangeRate{"mep": rate("1100")}}
		svc := New(api, c, &fakeRepo{})

		got, err := svc.Current(ctx)
		require.NoError(t, err)
		require.Equal(t, "1100", got.Sell.String())
		require.Zero(t, api.calls)
	})

	t.Run("cache miss goes to api and stores", func(t *testing.T) {
		api := &fakeApi{rate: rate("1200")}
		c := &fakeCache{rates: map[string]model.ExchangeRate{}}
		repo := &fakeRepo{}
		svc := New(api, c, repo)

		got, err := svc.Current(ctx)
		require.NoError(t, err)
		require.Equal(t, "1200", got.Sell.String())
		require.Len(t, repo.stored, 1)
		require.Eventually(t, func() bool {
			_, err := c.GetExchangeRate(ctx, "mep")
			return err == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("api down falls back to stored rate", func(t *testing.T) {
		api := &fakeApi{err: errors.New("timeout")}
		repo := &fakeRepo{stored: []model.ExchangeRate{rate("1000")}}
		svc := New(api, &fakeCache{rates: map[string]model.ExchangeRate{}}, repo)

		got, err := svc.Current(ctx)
		require.NoError(t, err)
		require.Equal(t, "1000", got.Sell.String())
	})

	t.Run("nothing available", func(t *testing.T) {
		api := &fakeApi{err: errors.New("timeout")}
		svc := New(api, &fakeCache{rates: map[string]model.ExchangeRate{}}, &fakeRepo{})

		_, err := svc.Current(ctx)
		require.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestFillExchangeRateCache(t *testing.T) {
	ctx := context.Background()
	c := &fakeCache{rates: map[string]model.ExchangeRate{}}
	repo := &fakeRepo{}
	svc := New(&fakeApi{rate: rate("1250")}, c, repo)

	require.NoError(t, svc.FillExchangeRateCache(ctx))

	cached, err := c.GetExchangeRate(ctx, "mep")
	require.NoError(t, err)
	require.Equal(t, "1250", cached.Sell.String())
	require.Len(t, repo.stored, 1)

	failing := New(&fakeApi{err: errors.New("boom")}, c, repo)
	require.Error(t, failing.FillExchangeRateCache(ctx))
}
