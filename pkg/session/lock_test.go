package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/storewizard/internal/runtime"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(func(context.Context, string) (*runtime.Controller, error) {
		return nil, errors.New("not needed")
	})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("session-%d", i)
		_, _ = mgr.Open(ctx, key)
		_ = mgr.Close(ctx, key)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Close", lockCount)
	}
}
