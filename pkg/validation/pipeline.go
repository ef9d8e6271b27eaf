// Package validation runs the two-tier step validation: local structural
// rules first, then scoped remote checks.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
	"github.com/aretw0/storewizard/pkg/registry"
)

// ErrUnknownStep is returned when the step id is not registered.
var ErrUnknownStep = errors.New("unknown step")

// Tier names reported in validation events.
const (
	TierLocal  = "local"
	TierRemote = "remote"
)

// genericRemoteMessage is used when the validator rejects a value without details.
const genericRemoteMessage = "this value is not available"

// Pipeline validates wizard steps. A Pipeline is safe for concurrent use; each
// call takes a per-step token and results overtaken by a newer call for the
// same step are rejected with domain.ErrStaleValidation.
type Pipeline struct {
	registry   *registry.Registry
	remote     ports.RemoteValidator
	formats    map[string]FormatChecker
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	sessionKey string

	mu     sync.Mutex
	tokens map[int]uint64
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithRemoteValidator enables the remote tier.
func WithRemoteValidator(v ports.RemoteValidator) Option {
	return func(p *Pipeline) {
		p.remote = v
	}
}

// WithFormat registers or replaces a format checker.
func WithFormat(name string, check FormatChecker) Option {
	return func(p *Pipeline) {
		p.formats[name] = check
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers validation observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Pipeline) {
		p.hooks = hooks
	}
}

// WithSessionKey tags emitted events with the owning session.
func WithSessionKey(key string) Option {
	return func(p *Pipeline) {
		p.sessionKey = key
	}
}

// New creates a Pipeline over the given registry.
func New(reg *registry.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: reg,
		formats:  make(map[string]FormatChecker, len(builtinFormats)),
		logger:   logging.NewNop(),
		tokens:   make(map[int]uint64),
	}
	for name, check := range builtinFormats {
		p.formats[name] = check
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ValidateStep validates one step of the draft. An optional step that is
// neither filled nor enabled passes with a valid local outcome. Local
// failures return immediately without contacting the remote validator. Remote checks whose
// scope identifier is missing are skipped. Transport failures of the remote
// validator are logged and treated as passing; persistence constraints remain
// the final guard.
func (p *Pipeline) ValidateStep(ctx context.Context, stepID int, draft domain.Draft, scope domain.Scope) (domain.ValidationOutcome, error) {
	step, ok := p.registry.StepByID(stepID)
	if !ok {
		return domain.ValidationOutcome{}, fmt.Errorf("%w: %d", ErrUnknownStep, stepID)
	}
	token := p.begin(stepID)
	snapshot := draft.Clone()

	start := time.Now()
	if step.Optional && !step.Touched(snapshot) {
		return p.finish(ctx, token, domain.ValidationOutcome{StepID: stepID, Valid: true}, TierLocal, start)
	}
	local := checkStep(step, snapshot, p.formats)
	if len(local) > 0 {
		outcome := domain.ValidationOutcome{StepID: stepID, Errors: MergeErrors(local)}
		return p.finish(ctx, token, outcome, TierLocal, start)
	}
	if p.remote == nil || len(step.RemoteChecks) == 0 {
		return p.finish(ctx, token, domain.ValidationOutcome{StepID: stepID, Valid: true}, TierLocal, start)
	}

	p.emit(ctx, stepID, TierLocal, true, false, time.Since(start))
	start = time.Now()

	var remote []domain.FieldError
	for _, check := range step.RemoteChecks {
		scopeID := scope.ID(check.Scope)
		if scopeID == "" {
			p.logger.Debug("remote check skipped, scope unknown", "step_id", stepID, "field", check.Field, "scope", check.Scope)
			continue
		}
		value, present := snapshot.Lookup(check.Field)
		if !present || domain.IsEmptyValue(value) {
			continue
		}

		res, err := p.remote.CheckUnique(ctx, check.Scope, scopeID, check.Field, value)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.ValidationOutcome{}, fmt.Errorf("remote validation of %q: %w", check.Field, ctxErr)
			}
			p.logger.Warn("remote validator unavailable, check passed", "step_id", stepID, "field", check.Field, "err", err)
			continue
		}
		if res.Valid {
			continue
		}
		var rejected []domain.FieldError
		for _, e := range res.Errors {
			if e.Field == "" {
				e.Field = check.Field
			}
			rejected = append(rejected, e)
		}
		if len(MergeErrors(rejected)) == 0 {
			rejected = append(rejected, domain.FieldError{Field: check.Field, Message: genericRemoteMessage, Generic: true})
		}
		remote = append(remote, rejected...)
	}

	outcome := domain.ValidationOutcome{StepID: stepID, Errors: MergeErrors(remote)}
	outcome.Valid = len(outcome.Errors) == 0
	return p.finish(ctx, token, outcome, TierRemote, start)
}

// Invalidate supersedes every in-flight validation of the step.
func (p *Pipeline) Invalidate(stepID int) {
	p.begin(stepID)
}

func (p *Pipeline) begin(stepID int) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[stepID]++
	return p.tokens[stepID]
}

func (p *Pipeline) current(stepID int, token uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokens[stepID] == token
}

func (p *Pipeline) finish(ctx context.Context, token uint64, outcome domain.ValidationOutcome, tier string, start time.Time) (domain.ValidationOutcome, error) {
	if !p.current(outcome.StepID, token) {
		p.emit(ctx, outcome.StepID, tier, outcome.Valid, true, time.Since(start))
		p.logger.Debug("stale validation discarded", "step_id", outcome.StepID, "tier", tier)
		return domain.ValidationOutcome{}, domain.ErrStaleValidation
	}
	p.emit(ctx, outcome.StepID, tier, outcome.Valid, false, time.Since(start))
	return outcome, nil
}

func (p *Pipeline) emit(ctx context.Context, stepID int, tier string, valid, stale bool, d time.Duration) {
	if p.hooks.OnValidation == nil {
		return
	}
	p.hooks.OnValidation(ctx, &domain.ValidationEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventValidation, SessionKey: p.sessionKey},
		StepID:    stepID,
		Tier:      tier,
		Valid:     valid,
		Stale:     stale,
		Duration:  d,
	})
}
