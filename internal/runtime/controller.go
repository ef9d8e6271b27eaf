// Package runtime holds the wizard state controller: it owns the current step,
// the draft, the validation error map and the submission status of one session.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/pkg/autosave"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
	"github.com/aretw0/storewizard/pkg/registry"
	"github.com/aretw0/storewizard/pkg/submission"
	"github.com/aretw0/storewizard/pkg/templates"
	"github.com/aretw0/storewizard/pkg/validation"
)

// ErrNoTemplateProvider is returned by ApplyTemplate when no provider is configured.
var ErrNoTemplateProvider = errors.New("no template provider configured")

// Controller drives one wizard session. All methods are safe for concurrent
// use; the internal mutex is never held across validation, persistence or
// template calls.
type Controller struct {
	registry     *registry.Registry
	pipeline     *validation.Pipeline
	orchestrator *submission.Orchestrator
	plan         submission.Plan

	autosave   *autosave.Manager
	provider   ports.TemplateProvider
	mergeOpts  []templates.MergeOption
	notifier   ports.Notifier
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	sessionKey string
	scope      domain.Scope
	defaults   map[string]any
	messages   Messages

	mu         sync.Mutex
	current    int
	draft      domain.Draft
	stepErrors map[int]domain.ValidationOutcome
	finalizing bool // a Submit call is validating or persisting
	submitting bool // the orchestrator is running
	completed  bool
	lastResult *domain.SubmissionResult
}

// Messages are the user-visible notification texts.
type Messages struct {
	Submitted       string
	SubmitFailed    string
	TemplateApplied string
}

// DefaultMessages returns the built-in notification texts.
func DefaultMessages() Messages {
	return Messages{
		Submitted:       "Created successfully",
		SubmitFailed:    "Could not finish creating",
		TemplateApplied: "Template applied",
	}
}

// Option configures the Controller.
type Option func(*Controller)

// WithAutosave attaches the autosave manager notified on every draft change.
func WithAutosave(m *autosave.Manager) Option {
	return func(c *Controller) {
		c.autosave = m
	}
}

// WithTemplateProvider enables ApplyTemplate.
func WithTemplateProvider(p ports.TemplateProvider, opts ...templates.MergeOption) Option {
	return func(c *Controller) {
		c.provider = p
		c.mergeOpts = opts
	}
}

// WithNotifier sets the user-visible notification surface.
func WithNotifier(n ports.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers step change observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithSessionKey names the session in logs and events.
func WithSessionKey(key string) Option {
	return func(c *Controller) {
		c.sessionKey = key
	}
}

// WithScope sets the identifiers remote checks are scoped to.
func WithScope(scope domain.Scope) Option {
	return func(c *Controller) {
		c.scope = scope
	}
}

// WithDefaults seeds new and discarded drafts.
func WithDefaults(defaults map[string]any) Option {
	return func(c *Controller) {
		c.defaults = defaults
	}
}

// WithMessages overrides the notification texts.
func WithMessages(m Messages) Option {
	return func(c *Controller) {
		c.messages = m
	}
}

// NewController creates a controller positioned on step 1 with a fresh draft.
func NewController(reg *registry.Registry, pipeline *validation.Pipeline, orchestrator *submission.Orchestrator, plan submission.Plan, opts ...Option) (*Controller, error) {
	if reg == nil || pipeline == nil || orchestrator == nil {
		return nil, errors.New("controller requires a registry, a pipeline and an orchestrator")
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		registry:     reg,
		pipeline:     pipeline,
		orchestrator: orchestrator,
		plan:         plan,
		notifier:     ports.NopNotifier{},
		logger:       logging.NewNop(),
		messages:     DefaultMessages(),
		current:      1,
		stepErrors:   make(map[int]domain.ValidationOutcome),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.draft = domain.NewDraft(c.defaults)
	return c, nil
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	SessionKey  string                      `json:"session_key,omitempty"`
	CurrentStep int                         `json:"current_step"`
	StepCount   int                         `json:"step_count"`
	StepName    string                      `json:"step_name,omitempty"`
	Draft       domain.Draft                `json:"draft"`
	Errors      map[int][]domain.FieldError `json:"errors,omitempty"`
	Submitting  bool                        `json:"submitting"`
	Completed   bool                        `json:"completed"`
	LastResult  *domain.SubmissionResult    `json:"last_result,omitempty"`
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		SessionKey:  c.sessionKey,
		CurrentStep: c.current,
		StepCount:   c.registry.StepCount(),
		Draft:       c.draft.Clone(),
		Submitting:  c.submitting,
		Completed:   c.completed,
	}
	if step, ok := c.registry.StepAt(c.current); ok {
		s.StepName = step.Name
	}
	if len(c.stepErrors) > 0 {
		s.Errors = make(map[int][]domain.FieldError, len(c.stepErrors))
		for order, o := range c.stepErrors {
			s.Errors[order] = append([]domain.FieldError(nil), o.Errors...)
		}
	}
	if c.lastResult != nil {
		r := *c.lastResult
		s.LastResult = &r
	}
	return s
}

// CurrentStep returns the 1-based order of the current step.
func (c *Controller) CurrentStep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Draft returns a deep copy of the draft.
func (c *Controller) Draft() domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Errors returns the latest failed outcome per step order.
func (c *Controller) Errors() map[int]domain.ValidationOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[int]domain.ValidationOutcome, len(c.stepErrors))
	for k, v := range c.stepErrors {
		out[k] = v
	}
	return out
}

// UpdateDraft shallow-merges partial into the draft and schedules an autosave.
// It never validates.
func (c *Controller) UpdateDraft(partial map[string]any) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.draft.Merge(partial)
	snapshot := c.draft.Clone()
	c.mu.Unlock()

	c.scheduleAutosave(snapshot)
	return nil
}

// ApplyTemplate fetches a template and merges it into the draft without
// overwriting fields the user already filled.
func (c *Controller) ApplyTemplate(ctx context.Context, templateID string) error {
	if c.provider == nil {
		return ErrNoTemplateProvider
	}
	c.mu.Lock()
	err := c.editableLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	tpl, err := c.provider.FetchTemplate(ctx, templateID)
	if err != nil {
		return fmt.Errorf("failed to fetch template %q: %w", templateID, err)
	}

	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	merged, err := templates.Apply(tpl, c.draft, domain.MergeSmart, c.mergeOpts...)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.draft = merged
	snapshot := c.draft.Clone()
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "template applied", "session_key", c.sessionKey, "template_id", templateID)
	c.scheduleAutosave(snapshot)
	c.notifier.Notify(domain.NotifyInfo, c.messages.TemplateApplied)
	return nil
}

// Resume replaces the draft with the autosaved one, if any. The session
// restarts on step 1.
func (c *Controller) Resume(ctx context.Context) bool {
	if c.autosave == nil {
		return false
	}
	stored, ok := c.autosave.LoadDraft(ctx)
	if !ok {
		return false
	}

	c.mu.Lock()
	if c.finalizing || c.completed {
		c.mu.Unlock()
		return false
	}
	draft := domain.NewDraft(c.defaults)
	draft.Merge(stored)
	c.draft = draft
	c.stepErrors = make(map[int]domain.ValidationOutcome)
	ev := c.moveLocked(1)
	c.mu.Unlock()

	c.emitStep(ctx, ev)
	c.logger.InfoContext(ctx, "draft resumed", "session_key", c.sessionKey)
	return true
}

// Discard drops the draft, clears the autosaved copy and returns to step 1.
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	if c.finalizing {
		c.mu.Unlock()
		return domain.ErrSubmissionInProgress
	}
	c.draft = domain.NewDraft(c.defaults)
	c.stepErrors = make(map[int]domain.ValidationOutcome)
	c.completed = false
	c.lastResult = nil
	ev := c.moveLocked(1)
	c.mu.Unlock()

	c.emitStep(ctx, ev)
	if c.autosave != nil {
		if err := c.autosave.ClearDraft(ctx); err != nil {
			return fmt.Errorf("failed to clear autosaved draft: %w", err)
		}
	}
	return nil
}

// Close stops pending autosave timers.
func (c *Controller) Close() {
	if c.autosave != nil {
		c.autosave.Close()
	}
}

func (c *Controller) editableLocked() error {
	if c.completed {
		return domain.ErrSessionCompleted
	}
	if c.finalizing {
		return domain.ErrSubmissionInProgress
	}
	return nil
}

func (c *Controller) scheduleAutosave(snapshot domain.Draft) {
	if c.autosave != nil {
		c.autosave.NotifyChange(snapshot)
	}
}

// moveLocked sets the current step and returns the event to emit once the
// lock is released, or nil when nothing changed.
func (c *Controller) moveLocked(to int) *domain.StepEvent {
	from := c.current
	if from == to {
		return nil
	}
	c.current = to
	return &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepChange, SessionKey: c.sessionKey},
		From:      from,
		To:        to,
	}
}

func (c *Controller) emitStep(ctx context.Context, ev *domain.StepEvent) {
	if ev == nil {
		return
	}
	c.logger.DebugContext(ctx, "step changed", "session_key", c.sessionKey, "from", ev.From, "to", ev.To)
	if c.hooks.OnStepChange != nil {
		c.hooks.OnStepChange(ctx, ev)
	}
}
