package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepChange     EventType = "step_change"
	EventValidation     EventType = "validation"
	EventAutosave       EventType = "autosave"
	EventSubmissionStep EventType = "submission_step"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionKey string    `json:"session_key,omitempty"`
}

// StepEvent is emitted when the current step changes.
type StepEvent struct {
	EventBase
	From int `json:"from"`
	To   int `json:"to"`
}

// ValidationEvent is emitted after each validation tier completes.
type ValidationEvent struct {
	EventBase
	StepID   int           `json:"step_id"`
	Tier     string        `json:"tier"`
	Valid    bool          `json:"valid"`
	Stale    bool          `json:"stale,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AutosaveEvent is emitted after a persist attempt.
type AutosaveEvent struct {
	EventBase
	Key   string `json:"key"`
	Bytes int    `json:"bytes"`
	Err   error  `json:"-"`
}

// SubmissionEvent is emitted after each submission step.
type SubmissionEvent struct {
	EventBase
	Step     string        `json:"step"`
	Status   StepStatus    `json:"status"`
	Fatal    bool          `json:"fatal"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnStepChange     func(context.Context, *StepEvent)
	OnValidation     func(context.Context, *ValidationEvent)
	OnAutosave       func(context.Context, *AutosaveEvent)
	OnSubmissionStep func(context.Context, *SubmissionEvent)
}

// CombineHooks returns hooks that call every non-nil hook of each set, in order.
func CombineHooks(sets ...LifecycleHooks) LifecycleHooks {
	var out LifecycleHooks
	for _, h := range sets {
		h := h
		if h.OnStepChange != nil {
			prev := out.OnStepChange
			out.OnStepChange = func(ctx context.Context, e *StepEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnStepChange(ctx, e)
			}
		}
		if h.OnValidation != nil {
			prev := out.OnValidation
			out.OnValidation = func(ctx context.Context, e *ValidationEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnValidation(ctx, e)
			}
		}
		if h.OnAutosave != nil {
			prev := out.OnAutosave
			out.OnAutosave = func(ctx context.Context, e *AutosaveEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnAutosave(ctx, e)
			}
		}
		if h.OnSubmissionStep != nil {
			prev := out.OnSubmissionStep
			out.OnSubmissionStep = func(ctx context.Context, e *SubmissionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnSubmissionStep(ctx, e)
			}
		}
	}
	return out
}
