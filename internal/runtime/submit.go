package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/storewizard/pkg/domain"
)

// Submit validates every required step, plus optional steps that are touched, and
// then runs the submission plan. Any invalid step aborts before storage is
// touched with a *domain.StepsInvalidError and moves the wizard to the first
// invalid step. A fatal persistence failure is returned as an error next to
// the result and keeps the wizard on its step. On success the autosaved draft
// is cleared and the session is completed.
func (c *Controller) Submit(ctx context.Context) (domain.SubmissionResult, error) {
	c.mu.Lock()
	if c.completed {
		c.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrSessionCompleted
	}
	if c.finalizing {
		c.mu.Unlock()
		return domain.SubmissionResult{}, domain.ErrSubmissionInProgress
	}
	c.finalizing = true
	draft := c.draft.Clone()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.finalizing = false
		c.submitting = false
		c.mu.Unlock()
	}()

	if err := c.validateAll(ctx, draft); err != nil {
		return domain.SubmissionResult{}, err
	}

	c.mu.Lock()
	c.submitting = true
	c.mu.Unlock()

	result := c.orchestrator.Submit(ctx, draft, c.plan)

	c.mu.Lock()
	c.submitting = false
	c.lastResult = &result
	if result.Success() {
		c.completed = true
	}
	c.mu.Unlock()

	if result.Success() {
		if c.autosave != nil {
			if err := c.autosave.ClearDraft(ctx); err != nil {
				c.logger.WarnContext(ctx, "failed to clear autosaved draft", "session_key", c.sessionKey, "err", err)
			}
		}
		c.notifier.Notify(domain.NotifySuccess, c.messages.Submitted)
		return result, nil
	}

	failure, _ := result.FatalFailure()
	c.attachConstraint(failure.Err)
	c.notifier.Notify(domain.NotifyError, fmt.Sprintf("%s: %v", c.messages.SubmitFailed, failure.Err))
	return result, failure.Err
}

func (c *Controller) validateAll(ctx context.Context, draft domain.Draft) error {
	var invalid []domain.ValidationOutcome
	for _, step := range c.registry.Steps() {
		if step.Optional && !step.Touched(draft) {
			continue
		}
		outcome, err := c.pipeline.ValidateStep(ctx, step.ID, draft, c.scope)
		if err != nil {
			return fmt.Errorf("failed to validate step %d: %w", step.Order, err)
		}
		c.recordOutcome(step.Order, outcome)
		if !outcome.Valid {
			invalid = append(invalid, outcome)
		}
	}
	if len(invalid) == 0 {
		return nil
	}

	stepsErr := &domain.StepsInvalidError{Outcomes: invalid}
	first := c.orderOf(stepsErr.FirstInvalidStep())

	c.mu.Lock()
	ev := c.moveLocked(first)
	c.mu.Unlock()
	c.emitStep(ctx, ev)

	c.logger.InfoContext(ctx, "submission blocked by invalid steps", "session_key", c.sessionKey, "first_invalid", first)
	return stepsErr
}

// attachConstraint maps a constraint violation on a known field back to the
// step declaring it so the user sees it next to the field.
func (c *Controller) attachConstraint(err error) {
	var cv *domain.ConstraintViolationError
	if !errors.As(err, &cv) || cv.Field == "" {
		return
	}
	for _, step := range c.registry.Steps() {
		for _, f := range step.Fields {
			if f.Key != cv.Field {
				continue
			}
			c.mu.Lock()
			c.stepErrors[step.Order] = domain.ValidationOutcome{
				StepID: step.ID,
				Errors: []domain.FieldError{{Field: cv.Field, Message: cv.Message}},
			}
			c.mu.Unlock()
			return
		}
	}
}

func (c *Controller) orderOf(stepID int) int {
	if step, ok := c.registry.StepByID(stepID); ok {
		return step.Order
	}
	return 1
}
