package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunKVStoreContract runs a suite of tests to verify that a KVStore implementation
// adheres to the defined interface contract.
func RunKVStoreContract(t *testing.T, store KVStore) {
	ctx := context.Background()
	key := "contract-test-draft-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		blob := []byte(`{"draft":{"name":"Guide"}}`)

		err := store.Set(ctx, key, blob)
		require.NoError(t, err, "Set should not return error")

		got, err := store.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, blob, got)
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("first")))
		require.NoError(t, store.Set(ctx, key, []byte("second")))

		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("bye")))

		err := store.Remove(ctx, key)
		require.NoError(t, err, "Remove should not return error")

		_, err = store.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrKeyNotFound, "Get after Remove should return ErrKeyNotFound")
	})

	t.Run("Remove Non-Existent", func(t *testing.T) {
		assert.NoError(t, store.Remove(ctx, "never-written-"+key))
	})

	t.Run("Returned Blob Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, key, []byte("abc")))
		got, err := store.Get(ctx, key)
		require.NoError(t, err)
		got[0] = 'z'

		again, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})
}
