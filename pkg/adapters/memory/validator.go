package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/storewizard/pkg/domain"
)

// Validator implements ports.RemoteValidator over reserved values.
type Validator struct {
	mu       sync.RWMutex
	taken    map[string]struct{}
	failWith error
}

// NewValidator creates a validator with no reserved values.
func NewValidator() *Validator {
	return &Validator{taken: make(map[string]struct{})}
}

func reservationKey(scope domain.ScopeKind, scopeID, field string, value any) string {
	return strings.Join([]string{string(scope), scopeID, field, strings.TrimSpace(fmt.Sprint(value))}, "\x00")
}

// Reserve marks value as taken for field within the scope.
func (v *Validator) Reserve(scope domain.ScopeKind, scopeID, field string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.taken[reservationKey(scope, scopeID, field, value)] = struct{}{}
}

// SetUnavailable makes every check fail with err, simulating a transport
// failure. A nil error restores normal operation.
func (v *Validator) SetUnavailable(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failWith = err
}

// CheckUnique reports whether value is free for field within the scope.
func (v *Validator) CheckUnique(ctx context.Context, scope domain.ScopeKind, scopeID, field string, value any) (domain.RemoteResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RemoteResult{}, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.failWith != nil {
		return domain.RemoteResult{}, v.failWith
	}
	if _, taken := v.taken[reservationKey(scope, scopeID, field, value)]; taken {
		return domain.RemoteResult{Errors: []domain.FieldError{{Field: field, Message: fmt.Sprintf("%s %q is already in use", field, fmt.Sprint(value))}}}, nil
	}
	return domain.RemoteResult{Valid: true}, nil
}
