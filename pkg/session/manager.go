package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/internal/runtime"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a session.
const DefaultLockTTL = 30 * time.Second

// Factory builds the controller for a new session.
type Factory func(ctx context.Context, sessionKey string) (*runtime.Controller, error)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live controllers and serialises access to each of them.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	factory Factory

	mu       sync.Mutex            // guards locks and sessions
	locks    map[string]*lockEntry // active locks
	sessions map[string]*runtime.Controller

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager building controllers with factory.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*runtime.Controller),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Open returns the live controller for key, creating it when absent.
func (m *Manager) Open(ctx context.Context, key string) (*runtime.Controller, error) {
	var ctrl *runtime.Controller
	err := m.withKeyLock(ctx, key, func(ctx context.Context) error {
		if existing, ok := m.lookup(key); ok {
			ctrl = existing
			return nil
		}
		created, err := m.factory(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to start session %q: %w", key, err)
		}
		m.mu.Lock()
		m.sessions[key] = created
		m.mu.Unlock()
		m.logger.InfoContext(ctx, "session opened", "session_key", key)
		ctrl = created
		return nil
	})
	return ctrl, err
}

// Get returns the live controller for key.
func (m *Manager) Get(key string) (*runtime.Controller, error) {
	if ctrl, ok := m.lookup(key); ok {
		return ctrl, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
}

// WithLock runs fn with exclusive access to the session.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context, *runtime.Controller) error) error {
	return m.withKeyLock(ctx, key, func(ctx context.Context) error {
		ctrl, ok := m.lookup(key)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
		}
		return fn(ctx, ctrl)
	})
}

// Close stops the session's timers and forgets it. The autosaved draft is kept.
func (m *Manager) Close(ctx context.Context, key string) error {
	return m.withKeyLock(ctx, key, func(ctx context.Context) error {
		m.mu.Lock()
		ctrl, ok := m.sessions[key]
		delete(m.sessions, key)
		m.mu.Unlock()
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
		}
		ctrl.Close()
		m.logger.InfoContext(ctx, "session closed", "session_key", key)
		return nil
	})
}

// List returns the live session keys, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*runtime.Controller)
	m.mu.Unlock()
	for _, ctrl := range sessions {
		ctrl.Close()
	}
}

func (m *Manager) lookup(key string) (*runtime.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, ok := m.sessions[key]
	return ctrl, ok
}

func (m *Manager) withKeyLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
