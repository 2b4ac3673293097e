package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/internal/ledger"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/redis/go-redis/v9"
)

// RedisSession persists allocation ledgers between requests of one staff session.
type RedisSession struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisSession(redisClient *redis.Client, cfg *config.Config) *RedisSession {
	return &RedisSession{redis: redisClient, cfg: cfg}
}

func (r *RedisSession) Load(ctx context.Context, key string) (ledger.State, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisSession.Load"

	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ledger.State{}, ledger.ErrStateNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("key", key))
		return ledger.State{}, err
	}

	state := ledger.State{}
	err = json.Unmarshal([]byte(res), &state)
	if err != nil {
		slog.Error("can't unmarshall ledger state", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return ledger.State{}, errors.New("can't unmarshall ledger state")
	}

	return state, nil
}

func (r *RedisSession) Save(ctx context.Context, key string, state ledger.State) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisSession.Save"

	stateJson, err := json.Marshal(state)
	if err != nil {
		slog.Error("can't marshall ledger state", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return errors.New("can't marshall ledger state")
	}

	err = r.redis.Set(ctx, key, stateJson, r.cfg.Ledger.SessionExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

func (r *RedisSession) Delete(ctx context.Context, key string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RedisSession.Delete"

	err := r.redis.Del(ctx, key).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}
