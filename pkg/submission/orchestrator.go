package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/ports"
)

// PlanStepName names the pseudo-step reported when the plan itself is invalid.
const PlanStepName = "plan"

// PayloadBuilder produces the field bag sent to the persistence service for one step.
// A nil or empty payload for a dependent step means there is nothing to create.
type PayloadBuilder func(draft domain.Draft, step domain.SubmissionStep) (map[string]any, error)

// Orchestrator runs submission plans strictly in sequence.
type Orchestrator struct {
	persistence ports.PersistenceService
	builders    map[string]PayloadBuilder
	compensate  bool
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	sessionKey  string
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithBuilder registers a named payload builder referenced by SubmissionStep.Builder.
func WithBuilder(name string, b PayloadBuilder) Option {
	return func(o *Orchestrator) {
		o.builders[name] = b
	}
}

// WithBuilders registers several payload builders at once.
func WithBuilders(builders map[string]PayloadBuilder) Option {
	return func(o *Orchestrator) {
		for name, b := range builders {
			o.builders[name] = b
		}
	}
}

// WithCompensation enables undoing already-created records, in reverse order,
// when a fatal step fails. It requires the persistence service to implement
// ports.Compensator; otherwise it has no effect.
func WithCompensation(enabled bool) Option {
	return func(o *Orchestrator) {
		o.compensate = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers submission observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithSessionKey tags emitted events with the owning session.
func WithSessionKey(key string) Option {
	return func(o *Orchestrator) {
		o.sessionKey = key
	}
}

// New creates an Orchestrator writing to the given persistence service.
func New(persistence ports.PersistenceService, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		persistence: persistence,
		builders:    make(map[string]PayloadBuilder),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type created struct {
	step     domain.SubmissionStep
	parentID string
	id       string
}

// Submit executes the plan against the draft. A fatal failure stops the run;
// a non-fatal one is recorded and the run continues. Dependents are never
// invoked before the step they depend on returned an id. Persistence errors
// are reported in the result, never returned.
func (o *Orchestrator) Submit(ctx context.Context, draft domain.Draft, plan Plan) domain.SubmissionResult {
	result := domain.SubmissionResult{
		SucceededSteps: []string{},
		FailedSteps:    []domain.StepFailure{},
		Log:            []domain.StepRecord{},
	}
	if err := plan.Validate(); err != nil {
		result.FailedSteps = append(result.FailedSteps, domain.StepFailure{
			Name:  PlanStepName,
			Err:   &domain.FatalPersistenceError{Step: PlanStepName, Err: err},
			Fatal: true,
		})
		return result
	}

	snapshot := draft.Clone()
	ids := make(map[string]string, len(plan))
	var done []created

	for _, step := range plan {
		start := time.Now()

		if step.EnabledBy != "" && !snapshot.Bool(step.EnabledBy) {
			o.record(ctx, &result, step, domain.StepSkipped, "", start)
			continue
		}

		parentID := ""
		if !step.IsPrimary() {
			parentID = ids[step.DependsOn]
			if parentID == "" {
				err := fmt.Errorf("dependency %q produced no record", step.DependsOn)
				if o.fail(ctx, &result, step, err, start) {
					break
				}
				continue
			}
		}

		payload, err := o.payload(snapshot, step)
		if err != nil {
			if o.fail(ctx, &result, step, err, start) {
				break
			}
			continue
		}
		if !step.IsPrimary() && len(payload) == 0 {
			o.record(ctx, &result, step, domain.StepSkipped, "", start)
			continue
		}

		var id string
		if step.IsPrimary() {
			id, err = o.persistence.CreatePrimary(ctx, payload)
		} else {
			id, err = o.persistence.CreateDependent(ctx, parentID, step.Kind, payload)
		}
		if err == nil && id == "" {
			err = errors.New("persistence returned an empty id")
		}
		if err != nil {
			if o.fail(ctx, &result, step, err, start) {
				break
			}
			continue
		}

		ids[step.Name] = id
		done = append(done, created{step: step, parentID: parentID, id: id})
		if step.IsPrimary() {
			result.PrimaryID = id
		}
		result.SucceededSteps = append(result.SucceededSteps, step.Name)
		o.record(ctx, &result, step, domain.StepSucceeded, id, start)
	}

	if _, fatal := result.FatalFailure(); fatal && o.compensate {
		o.rollback(ctx, &result, done)
	}

	o.logger.Info("submission finished",
		"session_key", o.sessionKey,
		"primary_id", result.PrimaryID,
		"succeeded", len(result.SucceededSteps),
		"failed", len(result.FailedSteps),
		"success", result.Success())
	return result
}

func (o *Orchestrator) payload(draft domain.Draft, step domain.SubmissionStep) (map[string]any, error) {
	if step.Builder != "" {
		build, ok := o.builders[step.Builder]
		if !ok {
			return nil, fmt.Errorf("no payload builder %q registered", step.Builder)
		}
		return build(draft, step)
	}
	return SourcePayload(draft, step), nil
}

// SourcePayload is the default payload: the nested section named by
// step.Source, or the top-level non-section fields when Source is empty.
func SourcePayload(draft domain.Draft, step domain.SubmissionStep) map[string]any {
	if step.Source != "" {
		section := draft.Section(step.Source)
		if len(section) == 0 {
			return nil
		}
		return map[string]any(domain.Draft(section).Clone())
	}
	out := make(map[string]any)
	for k, v := range draft.Clone() {
		if _, nested := v.(map[string]any); nested {
			continue
		}
		out[k] = v
	}
	return out
}

// fail records a failure and reports whether the run must stop.
func (o *Orchestrator) fail(ctx context.Context, result *domain.SubmissionResult, step domain.SubmissionStep, cause error, start time.Time) bool {
	var err error
	if step.Fatal {
		err = &domain.FatalPersistenceError{Step: step.Name, Err: cause}
	} else {
		err = &domain.NonFatalPersistenceError{Step: step.Name, Err: cause}
	}
	result.FailedSteps = append(result.FailedSteps, domain.StepFailure{
		Name:       step.Name,
		Err:        err,
		Fatal:      step.Fatal,
		Constraint: domain.IsConstraintViolation(cause),
	})
	if step.Fatal {
		o.logger.Error("fatal submission step failed", "session_key", o.sessionKey, "step", step.Name, "err", cause)
	} else {
		o.logger.Warn("optional submission step failed", "session_key", o.sessionKey, "step", step.Name, "err", cause)
	}
	o.record(ctx, result, step, domain.StepFailed, "", start)
	return step.Fatal
}

func (o *Orchestrator) record(ctx context.Context, result *domain.SubmissionResult, step domain.SubmissionStep, status domain.StepStatus, id string, start time.Time) {
	result.Log = append(result.Log, domain.StepRecord{Name: step.Name, Status: status, EntityID: id})
	if o.hooks.OnSubmissionStep != nil {
		o.hooks.OnSubmissionStep(ctx, &domain.SubmissionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSubmissionStep, SessionKey: o.sessionKey},
			Step:      step.Name,
			Status:    status,
			Fatal:     step.Fatal,
			Duration:  time.Since(start),
		})
	}
}

func (o *Orchestrator) rollback(ctx context.Context, result *domain.SubmissionResult, done []created) {
	comp, ok := o.persistence.(ports.Compensator)
	if !ok {
		o.logger.Warn("compensation requested but persistence cannot delete records", "session_key", o.sessionKey)
		return
	}
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		start := time.Now()
		var err error
		if c.step.IsPrimary() {
			err = comp.DeletePrimary(ctx, c.id)
		} else {
			err = comp.DeleteDependent(ctx, c.parentID, c.step.Kind, c.id)
		}
		if err != nil {
			o.logger.Error("compensation failed", "session_key", o.sessionKey, "step", c.step.Name, "entity_id", c.id, "err", err)
			continue
		}
		if c.step.IsPrimary() {
			result.PrimaryID = ""
		}
		o.record(ctx, result, c.step, domain.StepCompensated, c.id, start)
	}
}
