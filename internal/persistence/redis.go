package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/praveenrathi4/complain-app/internal/config"
	"github.com/praveenrathi4/complain-app/internal/ttlstore"
)

const redisDialTimeout = 3 * time.Second

// Redis holds the client backing pending registrations and reset codes.
type Redis struct {
	Client *redis.Client
	prefix string
}

// NewRedis builds the client. An unreachable server only logs a warning so
// the API can start; code lookups then fail per request until it recovers.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, verification and reset codes unavailable until it recovers",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr), zap.String("prefix", cfg.Prefix))
	}

	return &Redis{Client: client, prefix: cfg.Prefix}
}

// CodeStore returns the expiring store for pending registrations and
// password reset codes, namespaced under the configured key prefix.
func (r *Redis) CodeStore() *ttlstore.RedisStore {
	return ttlstore.NewRedisStore(r.Client, r.prefix)
}

func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping reports readiness for the health endpoint.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
