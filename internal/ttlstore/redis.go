package ttlstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisEnvelope struct {
	Value     []byte    `json:"v"`
	ExpiresAt time.Time `json:"exp"`
}

// RedisStore keeps entries in Redis. The Redis TTL reclaims memory; the
// embedded expiry decides liveness so reads agree with the service clock.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.Cmdable, prefix string, opts ...Option) *RedisStore {
	o := buildOptions(opts)
	return &RedisStore{client: client, prefix: prefix, now: o.now}
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := s.encode(value, ttl)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		return false, err
	}
	data, err := s.encode(value, ttl)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, s.prefix+key, data, ttl).Result()
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, err
	}
	if !s.now().Before(env.ExpiresAt) {
		if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return env.Value, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

func (s *RedisStore) encode(value []byte, ttl time.Duration) ([]byte, error) {
	return json.Marshal(redisEnvelope{Value: value, ExpiresAt: s.now().Add(ttl)})
}
