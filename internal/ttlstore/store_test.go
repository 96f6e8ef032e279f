package ttlstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveenrathi4/complain-app/internal/ttlstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func stores(t *testing.T, clock *fakeClock) map[string]ttlstore.Store {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]ttlstore.Store{
		"memory": ttlstore.NewMemoryStore(ttlstore.WithClock(clock.Now)),
		"redis":  ttlstore.NewRedisStore(client, "test:", ttlstore.WithClock(clock.Now)),
	}
}

func TestStore_ExpiryIsCheckedOnRead(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	for name, store := range stores(t, clock) {
		t.Run(name, func(t *testing.T) {
			// Arrange
			ctx := context.Background()
			key := "pending:" + name
			require.NoError(t, store.Set(ctx, key, []byte("code-123"), 10*time.Minute))

			// Act
			clock.Advance(9 * time.Minute)
			value, ok, err := store.Get(ctx, key)

			// Assert
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("code-123"), value)

			clock.Advance(time.Minute)
			_, ok, err = store.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "value must be gone exactly at its expiry")
		})
	}
}

func TestStore_SetIfAbsentRespectsLiveValues(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	for name, store := range stores(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			stored, err := store.SetIfAbsent(ctx, "reg", []byte("first"), time.Minute)
			require.NoError(t, err)
			assert.True(t, stored)

			stored, err = store.SetIfAbsent(ctx, "reg", []byte("second"), time.Minute)
			require.NoError(t, err)
			assert.False(t, stored)

			clock.Advance(2 * time.Minute)
			stored, err = store.SetIfAbsent(ctx, "reg", []byte("third"), time.Minute)
			require.NoError(t, err)
			assert.True(t, stored, "an expired value must not block a new one")

			value, ok, err := store.Get(ctx, "reg")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("third"), value)
		})
	}
}

func TestStore_Delete(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	for name, store := range stores(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))

			require.NoError(t, store.Delete(ctx, "k"))

			_, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemoryStore_EvictsLazily(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	store := ttlstore.NewMemoryStore(ttlstore.WithClock(clock.Now))
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Second))

	clock.Advance(time.Hour)
	assert.Equal(t, 1, store.Len(), "nothing is evicted without a read")

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestJSONHelpers(t *testing.T) {
	type pending struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	store := ttlstore.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, ttlstore.PutJSON(ctx, store, "p", pending{Email: "a@b.c", Code: "ABC123"}, time.Minute))

	got, ok, err := ttlstore.GetJSON[pending](ctx, store, "p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ABC123", got.Code)

	missing, ok, err := ttlstore.GetJSON[pending](ctx, store, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, missing)
}

func TestPutJSONIfAbsent(t *testing.T) {
	store := ttlstore.NewMemoryStore()
	ctx := context.Background()

	stored, err := ttlstore.PutJSONIfAbsent(ctx, store, "p", map[string]string{"code": "A"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = ttlstore.PutJSONIfAbsent(ctx, store, "p", map[string]string{"code": "B"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	got, _, err := ttlstore.GetJSON[map[string]string](ctx, store, "p")
	require.NoError(t, err)
	assert.Equal(t, "A", (*got)["code"])
}
