// Package autosave debounces draft mutations and persists the latest snapshot
// to a key-value store.
package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
)

const (
	// DefaultQuietPeriod is the debounce window between the last change and the persist.
	DefaultQuietPeriod = 2 * time.Second

	// DefaultIdentifyingField must be non-empty before a draft is worth persisting.
	DefaultIdentifyingField = "name"

	envelopeVersion = 1
)

// envelope is the stored representation of a draft.
type envelope struct {
	Version int            `json:"version"`
	SavedAt time.Time      `json:"saved_at"`
	Draft   map[string]any `json:"draft"`
}

// Manager persists draft snapshots after a quiet period.
// Only the most recent snapshot is written; intermediate ones are superseded.
type Manager struct {
	store ports.KVStore
	key   string

	clock            Clock
	quiet            time.Duration
	identifyingField string
	logger           *slog.Logger
	hooks            domain.LifecycleHooks
	sessionKey       string
	baseCtx          context.Context

	mu      sync.Mutex
	timer   Timer
	pending domain.Draft
	gen     uint64

	// persistMu serialises writes with ClearDraft so a timer firing during a
	// clear can never resurrect the draft.
	persistMu sync.Mutex
}

// Option configures the Manager.
type Option func(*Manager)

// WithClock injects the clock used for the debounce timer.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithQuietPeriod overrides the debounce window.
func WithQuietPeriod(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.quiet = d
		}
	}
}

// WithIdentifyingField sets the draft field that must be non-empty before persisting.
func WithIdentifyingField(field string) Option {
	return func(m *Manager) {
		m.identifyingField = field
	}
}

// WithLogger configures a logger for persist failures and corrupt drafts.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithSessionKey names the session in autosave events. Defaults to the store key.
func WithSessionKey(key string) Option {
	return func(m *Manager) {
		m.sessionKey = key
	}
}

// WithContext sets the context used by timer-driven persists.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) {
		m.baseCtx = ctx
	}
}

// NewManager creates an autosave manager writing to store under key.
func NewManager(store ports.KVStore, key string, opts ...Option) *Manager {
	m := &Manager{
		store:            store,
		key:              key,
		clock:            RealClock{},
		quiet:            DefaultQuietPeriod,
		identifyingField: DefaultIdentifyingField,
		logger:           logging.NewNop(),
		baseCtx:          context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sessionKey == "" {
		m.sessionKey = key
	}
	return m
}

// Key returns the store key drafts are persisted under.
func (m *Manager) Key() string {
	return m.key
}

// NotifyChange schedules a persist of draft after the quiet period, cancelling
// any pending one. A draft without the identifying field is not persisted and
// cancels the pending persist of an older snapshot.
func (m *Manager) NotifyChange(draft domain.Draft) {
	unidentified := m.identifyingField != "" && draft.String(m.identifyingField) == ""

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if unidentified {
		m.pending = nil
		m.gen++
		return
	}
	snapshot := draft.Clone()
	m.pending = snapshot
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(m.quiet, func() { m.fire(gen) })
}

func (m *Manager) fire(gen uint64) {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	if gen != m.gen || m.pending == nil {
		m.mu.Unlock()
		return
	}
	snapshot := m.pending
	m.pending = nil
	m.timer = nil
	m.mu.Unlock()

	_ = m.persist(m.baseCtx, snapshot)
}

// Flush persists the pending snapshot immediately, if there is one.
func (m *Manager) Flush(ctx context.Context) error {
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	snapshot := m.pending
	m.pending = nil
	m.gen++
	m.mu.Unlock()

	if snapshot == nil {
		return nil
	}
	return m.persist(ctx, snapshot)
}

// Pending reports whether a persist is scheduled.
func (m *Manager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// LoadDraft returns the stored draft. A missing or structurally invalid
// payload is reported as absent; corrupt payloads are removed.
func (m *Manager) LoadDraft(ctx context.Context) (domain.Draft, bool) {
	blob, err := m.store.Get(ctx, m.key)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			m.logger.WarnContext(ctx, "autosave load failed, starting fresh", "key", m.key, "err", err)
		}
		return nil, false
	}

	draft, err := decode(blob)
	if err != nil {
		corrupt := &domain.DraftCorruptionError{Key: m.key, Err: err}
		m.logger.WarnContext(ctx, "discarding corrupt draft", "key", m.key, "err", corrupt)
		if rmErr := m.store.Remove(ctx, m.key); rmErr != nil {
			m.logger.WarnContext(ctx, "failed to remove corrupt draft", "key", m.key, "err", rmErr)
		}
		return nil, false
	}
	return draft, true
}

// ClearDraft cancels any pending persist and removes the stored draft.
func (m *Manager) ClearDraft(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = nil
	m.gen++
	m.mu.Unlock()

	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	if err := m.store.Remove(ctx, m.key); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

// Close cancels the pending persist without writing it.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.pending = nil
	m.gen++
}

func (m *Manager) persist(ctx context.Context, draft domain.Draft) error {
	blob, err := json.Marshal(envelope{
		Version: envelopeVersion,
		SavedAt: m.clock.Now().UTC(),
		Draft:   draft,
	})
	if err == nil {
		err = m.store.Set(ctx, m.key, blob)
	}

	if m.hooks.OnAutosave != nil {
		m.hooks.OnAutosave(ctx, &domain.AutosaveEvent{
			EventBase: domain.EventBase{Timestamp: m.clock.Now(), Type: domain.EventAutosave, SessionKey: m.sessionKey},
			Key:       m.key,
			Bytes:     len(blob),
			Err:       err,
		})
	}

	if err != nil {
		m.logger.WarnContext(ctx, "autosave failed", "key", m.key, "err", err)
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	m.logger.DebugContext(ctx, "draft autosaved", "key", m.key, "bytes", len(blob))
	return nil
}

func decode(blob []byte) (domain.Draft, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return nil, err
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.Draft == nil {
		return nil, errors.New("envelope has no draft")
	}
	return domain.Draft(env.Draft), nil
}
