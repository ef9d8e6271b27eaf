package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/storewizard/pkg/domain"
)

// GoNext validates the current step and, when it passes, advances one step.
// It reports whether the transition happened. The last step never advances;
// Submit is the only way forward from there. A validation superseded by a
// newer one for the same step is discarded and reports false.
func (c *Controller) GoNext(ctx context.Context) (bool, error) {
	from, draft, err := c.beginNavigation()
	if err != nil {
		return false, err
	}

	valid, err := c.validateStep(ctx, from, draft)
	if err != nil || !valid {
		return false, err
	}

	c.mu.Lock()
	if c.current != from || c.finalizing || c.registry.IsLastStep(from) {
		c.mu.Unlock()
		return false, nil
	}
	ev := c.moveLocked(from + 1)
	c.mu.Unlock()

	c.emitStep(ctx, ev)
	return true, nil
}

// GoBack moves to the previous step without validating. It reports false on
// the first step or while a submission is running.
func (c *Controller) GoBack() bool {
	c.mu.Lock()
	if c.finalizing || c.current <= 1 {
		c.mu.Unlock()
		return false
	}
	left, _ := c.registry.StepAt(c.current)
	ev := c.moveLocked(c.current - 1)
	c.mu.Unlock()

	// Any validation still in flight for the step being left is now stale.
	c.pipeline.Invalidate(left.ID)
	c.emitStep(context.Background(), ev)
	return true
}

// JumpTo moves to target. Jumping backwards, or to the current step, never
// validates. Jumping forwards validates only the current step.
func (c *Controller) JumpTo(ctx context.Context, target int) (bool, error) {
	if _, ok := c.registry.StepAt(target); !ok {
		return false, fmt.Errorf("%w: %d", domain.ErrStepOutOfRange, target)
	}
	from, draft, err := c.beginNavigation()
	if err != nil {
		return false, err
	}

	if target <= from {
		c.mu.Lock()
		if c.finalizing {
			c.mu.Unlock()
			return false, domain.ErrSubmissionInProgress
		}
		left, _ := c.registry.StepAt(c.current)
		ev := c.moveLocked(target)
		c.mu.Unlock()

		if ev != nil {
			c.pipeline.Invalidate(left.ID)
		}
		c.emitStep(ctx, ev)
		return true, nil
	}

	valid, err := c.validateStep(ctx, from, draft)
	if err != nil || !valid {
		return false, err
	}

	c.mu.Lock()
	if c.current != from || c.finalizing {
		c.mu.Unlock()
		return false, nil
	}
	ev := c.moveLocked(target)
	c.mu.Unlock()

	c.emitStep(ctx, ev)
	return true, nil
}

func (c *Controller) beginNavigation() (int, domain.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return 0, nil, domain.ErrSessionCompleted
	}
	if c.finalizing {
		return 0, nil, domain.ErrSubmissionInProgress
	}
	return c.current, c.draft.Clone(), nil
}

// validateStep runs the pipeline for the step at order and records the
// outcome. Stale outcomes are dropped and reported as not valid.
func (c *Controller) validateStep(ctx context.Context, order int, draft domain.Draft) (bool, error) {
	step, ok := c.registry.StepAt(order)
	if !ok {
		return false, fmt.Errorf("%w: %d", domain.ErrStepOutOfRange, order)
	}
	outcome, err := c.pipeline.ValidateStep(ctx, step.ID, draft, c.scope)
	if errors.Is(err, domain.ErrStaleValidation) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to validate step %d: %w", order, err)
	}
	c.recordOutcome(order, outcome)
	return outcome.Valid, nil
}

func (c *Controller) recordOutcome(order int, outcome domain.ValidationOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if outcome.Valid {
		delete(c.stepErrors, order)
		return
	}
	c.stepErrors[order] = outcome
}
