// Package middleware wraps a ports.KVStore with encryption and redaction so
// autosaved drafts can live in client-side or shared storage.
package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/storewizard/pkg/ports"
)

// Middleware allows wrapping a KVStore to add behavior.
type Middleware func(ports.KVStore) ports.KVStore

// Chain applies middlewares so the first one listed is the outermost.
func Chain(store ports.KVStore, mws ...Middleware) ports.KVStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

func listKeys(ctx context.Context, next ports.KVStore, prefix string) ([]string, error) {
	lister, ok := next.(ports.KeyLister)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot list keys", errors.ErrUnsupported)
	}
	return lister.List(ctx, prefix)
}
