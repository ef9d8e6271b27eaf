package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineHooks_CallsInOrder(t *testing.T) {
	var calls []string
	first := LifecycleHooks{
		OnStepChange: func(context.Context, *StepEvent) { calls = append(calls, "first:step") },
		OnAutosave:   func(context.Context, *AutosaveEvent) { calls = append(calls, "first:autosave") },
	}
	second := LifecycleHooks{
		OnStepChange:     func(context.Context, *StepEvent) { calls = append(calls, "second:step") },
		OnValidation:     func(context.Context, *ValidationEvent) { calls = append(calls, "second:validation") },
		OnSubmissionStep: func(context.Context, *SubmissionEvent) { calls = append(calls, "second:submission") },
	}

	hooks := CombineHooks(first, LifecycleHooks{}, second)
	ctx := context.Background()
	hooks.OnStepChange(ctx, &StepEvent{From: 1, To: 2})
	hooks.OnValidation(ctx, &ValidationEvent{})
	hooks.OnAutosave(ctx, &AutosaveEvent{})
	hooks.OnSubmissionStep(ctx, &SubmissionEvent{})

	assert.Equal(t, []string{
		"first:step", "second:step",
		"second:validation",
		"first:autosave",
		"second:submission",
	}, calls)
}

func TestCombineHooks_Empty(t *testing.T) {
	hooks := CombineHooks()
	assert.Nil(t, hooks.OnStepChange)
	assert.Nil(t, hooks.OnValidation)
	assert.Nil(t, hooks.OnAutosave)
	assert.Nil(t, hooks.OnSubmissionStep)
}
