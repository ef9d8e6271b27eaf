package ports

import "context"

// KVStore defines the blob store used to autosave drafts.
type KVStore interface {
	// Get returns the blob stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores blob under key, replacing any previous value.
	Set(ctx context.Context, key string, blob []byte) error

	// Remove deletes the key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys.
type KeyLister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}
