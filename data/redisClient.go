package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns a client for the exchange-rate cache and the import
// sessions. It panics when the first ping fails.
func NewRedisClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.Timeout,
		ReadTimeout:  cfg.Redis.Timeout,
		WriteTimeout: cfg.Redis.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Error while connecting Redis", slog.String("addr", rdb.Options().Addr), slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info("Redis connected", slog.String("addr", rdb.Options().Addr), slog.Int("db", cfg.Redis.DB))

	return rdb
}
