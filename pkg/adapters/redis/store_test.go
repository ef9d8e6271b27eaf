package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/storewizard/pkg/adapters/redis"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunKVStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("test:"))

	require.NoError(t, store.Set(context.Background(), "wizard:draft:a", []byte("x")))
	assert.True(t, mr.Exists("test:kv:wizard:draft:a"))
}

func TestRedisStore_List(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "wizard:draft:b", []byte("1")))
	require.NoError(t, store.Set(ctx, "wizard:draft:a", []byte("1")))
	require.NoError(t, store.Set(ctx, "other", []byte("1")))

	keys, err := store.List(ctx, "wizard:draft:")
	require.NoError(t, err)
	assert.Equal(t, []string{"wizard:draft:a", "wizard:draft:b"}, keys)

	require.NoError(t, store.Remove(ctx, "wizard:draft:a"))
	keys, err = store.List(ctx, "wizard:draft:")
	require.NoError(t, err)
	assert.Equal(t, []string{"wizard:draft:b"}, keys)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	key := "wizard:draft:ttl"

	require.NoError(t, store.Set(ctx, key, []byte(`{"draft":{}}`)))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, keys, key)

	mr.FastForward(2 * time.Second)

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	// Index pruning compares against wall-clock time.
	time.Sleep(2100 * time.Millisecond)

	keys, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocker(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:s1"))

	busyCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(busyCtx, "s1", 10*time.Second)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:s1"))

	unlock2, err := locker.Lock(ctx, "s1", 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_UnlockDoesNotReleaseForeignLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "s1", time.Second)
	require.NoError(t, err)

	// The lock expires and another replica takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:s1", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:s1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
