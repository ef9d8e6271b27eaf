package ports

import (
	"context"

	"github.com/aretw0/storewizard/pkg/domain"
)

// RemoteValidator checks values against the remote source of truth.
// scopeID identifies the parent context (a store, or an existing primary record).
type RemoteValidator interface {
	CheckUnique(ctx context.Context, scope domain.ScopeKind, scopeID, field string, value any) (domain.RemoteResult, error)
}
