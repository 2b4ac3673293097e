package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/redis/go-redis/v9"
)

const exchangeRateKeyPrefix = "exchange_rate:"

var ErrNotFound = errors.New("cache miss")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetExchangeRate(ctx context.Context, rate model.ExchangeRate) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.SetExchangeRate"
	slog.Debug("SetExchangeRate start", slog.String("rqID", rqID), slog.String("op", op))

	rateJson, err := json.Marshal(rate)
	if err != nil {
		slog.Error("can't marshall exchange rate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.Any("rate", rate))
		return errors.New("can't marshall exchange rate")
	}

	err = r.redis.Set(ctx, exchangeRateKeyPrefix+rate.Source, rateJson, r.cfg.Cache.ExchangeRateExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetExchangeRate completed", slog.String("rqID", rqID), slog.String("op", op))

	return nil
}

func (r *RedisCache) GetExchangeRate(ctx context.Context, source string) (model.ExchangeRate, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisCache.GetExchangeRate"
	slog.Debug("GetExchangeRate start", slog.String("rqID", rqID), slog.String("op", op))

	res, err := r.redis.Get(ctx, exchangeRateKeyPrefix+source).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ExchangeRate{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("source", source))
		return model.ExchangeRate{}, err
	}

	rate := model.ExchangeRate{}
	err = json.Unmarshal([]byte(res), &rate)
	if err != nil {
		slog.Error(
			"can't unmarshall exchange rate",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.ExchangeRate{}, errors.New("can't unmarshall exchange rate")
	}

	slog.Debug("GetExchangeRate finished", slog.String("rqID", rqID), slog.String("op", op))

	return rate, nil
}
