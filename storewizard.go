package storewizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/internal/runtime"
	"github.com/aretw0/storewizard/pkg/adapters/memory"
	"github.com/aretw0/storewizard/pkg/autosave"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
	"github.com/aretw0/storewizard/pkg/registry"
	"github.com/aretw0/storewizard/pkg/session"
	"github.com/aretw0/storewizard/pkg/submission"
	"github.com/aretw0/storewizard/pkg/templates"
	"github.com/aretw0/storewizard/pkg/validation"
)

// Controller is the per-session wizard state machine returned by Start.
type Controller = runtime.Controller

// Snapshot is a read-only view of a controller.
type Snapshot = runtime.Snapshot

// Messages are the user-visible notification texts.
type Messages = runtime.Messages

// DefaultMessages returns the built-in notification texts.
func DefaultMessages() Messages {
	return runtime.DefaultMessages()
}

// DraftKey returns the key a session's draft is autosaved under.
func DraftKey(kind, sessionKey string) string {
	return fmt.Sprintf("wizard:draft:%s:%s", kind, sessionKey)
}

// Engine is the high-level entry point of the library. It binds one
// blueprint to its adapters and creates controllers for sessions.
type Engine struct {
	blueprint blueprint.Blueprint
	registry  *registry.Registry

	persistence ports.PersistenceService
	store       ports.KVStore
	validator   ports.RemoteValidator
	provider    ports.TemplateProvider
	notifier    ports.Notifier

	clock      autosave.Clock
	quiet      time.Duration
	compensate bool
	resume     bool
	builders   map[string]submission.PayloadBuilder
	formats    map[string]validation.FormatChecker
	scope      domain.Scope
	messages   *Messages
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets where drafts are autosaved. Defaults to an in-memory store.
func WithStore(s ports.KVStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithRemoteValidator enables the remote validation tier.
func WithRemoteValidator(v ports.RemoteValidator) Option {
	return func(e *Engine) {
		e.validator = v
	}
}

// WithTemplateProvider enables ApplyTemplate on every controller.
func WithTemplateProvider(p ports.TemplateProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// WithNotifier sets the user-visible notification surface.
func WithNotifier(n ports.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithClock sets the clock driving autosave debouncing.
func WithClock(c autosave.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithQuietPeriod overrides the autosave debounce window.
func WithQuietPeriod(d time.Duration) Option {
	return func(e *Engine) {
		e.quiet = d
	}
}

// WithCompensation deletes records created by a submission that later fails fatally.
func WithCompensation(enabled bool) Option {
	return func(e *Engine) {
		e.compensate = enabled
	}
}

// WithResume restores the autosaved draft when a session starts.
func WithResume(enabled bool) Option {
	return func(e *Engine) {
		e.resume = enabled
	}
}

// WithBuilder registers or overrides a named submission payload builder.
func WithBuilder(name string, b submission.PayloadBuilder) Option {
	return func(e *Engine) {
		e.builders[name] = b
	}
}

// WithFormat registers or overrides a local format checker.
func WithFormat(name string, check validation.FormatChecker) Option {
	return func(e *Engine) {
		e.formats[name] = check
	}
}

// WithScope sets the identifiers remote checks are scoped to.
func WithScope(scope domain.Scope) Option {
	return func(e *Engine) {
		e.scope = scope
	}
}

// WithMessages overrides the notification texts.
func WithMessages(m Messages) Option {
	return func(e *Engine) {
		e.messages = &m
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls add hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = domain.CombineHooks(e.hooks, hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine for bp submitting through persistence.
func New(bp blueprint.Blueprint, persistence ports.PersistenceService, opts ...Option) (*Engine, error) {
	if persistence == nil {
		return nil, errors.New("a persistence service is required")
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	reg, err := bp.Registry()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		blueprint:   bp,
		registry:    reg,
		persistence: persistence,
		store:       memory.NewStore(),
		notifier:    ports.NopNotifier{},
		clock:       autosave.RealClock{},
		quiet:       autosave.DefaultQuietPeriod,
		builders:    bp.Builders(),
		formats:     make(map[string]validation.FormatChecker),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Blueprint returns the blueprint the engine was built with.
func (e *Engine) Blueprint() blueprint.Blueprint {
	return e.blueprint
}

// Registry returns the step registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Store returns the draft store.
func (e *Engine) Store() ports.KVStore {
	return e.store
}

// Start creates the controller of one session. With WithResume, the
// autosaved draft of the same session key is restored.
func (e *Engine) Start(ctx context.Context, sessionKey string) (*runtime.Controller, error) {
	logger := e.logger.With("session_key", sessionKey)

	pipelineOpts := []validation.Option{
		validation.WithLogger(logger),
		validation.WithLifecycleHooks(e.hooks),
		validation.WithSessionKey(sessionKey),
	}
	if e.validator != nil {
		pipelineOpts = append(pipelineOpts, validation.WithRemoteValidator(e.validator))
	}
	for name, check := range e.formats {
		pipelineOpts = append(pipelineOpts, validation.WithFormat(name, check))
	}
	pipeline := validation.New(e.registry, pipelineOpts...)

	orchestrator := submission.New(e.persistence,
		submission.WithBuilders(e.builders),
		submission.WithCompensation(e.compensate),
		submission.WithLogger(logger),
		submission.WithLifecycleHooks(e.hooks),
		submission.WithSessionKey(sessionKey),
	)

	saver := autosave.NewManager(e.store, DraftKey(e.blueprint.Kind, sessionKey),
		autosave.WithClock(e.clock),
		autosave.WithQuietPeriod(e.quiet),
		autosave.WithIdentifyingField(e.blueprint.Identifier()),
		autosave.WithLogger(logger),
		autosave.WithLifecycleHooks(e.hooks),
		autosave.WithSessionKey(sessionKey),
	)

	opts := []runtime.Option{
		runtime.WithAutosave(saver),
		runtime.WithNotifier(e.notifier),
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithSessionKey(sessionKey),
		runtime.WithScope(e.scope),
		runtime.WithDefaults(e.blueprint.Defaults),
	}
	if e.provider != nil {
		opts = append(opts, runtime.WithTemplateProvider(e.provider, templates.WithAllowedFields(e.blueprint.KnownFields()...)))
	}
	if e.messages != nil {
		opts = append(opts, runtime.WithMessages(*e.messages))
	}

	ctrl, err := runtime.NewController(e.registry, pipeline, orchestrator, e.blueprint.Plan, opts...)
	if err != nil {
		return nil, err
	}
	if e.resume && ctrl.Resume(ctx) {
		logger.InfoContext(ctx, "resumed autosaved draft", "kind", e.blueprint.Kind)
	}
	return ctrl, nil
}

// Factory adapts Start to the session manager.
func (e *Engine) Factory() session.Factory {
	return e.Start
}

// Sessions returns a session manager creating controllers with this engine.
func (e *Engine) Sessions(opts ...session.Option) *session.Manager {
	opts = append([]session.Option{session.WithLogger(e.logger)}, opts...)
	return session.NewManager(e.Factory(), opts...)
}
