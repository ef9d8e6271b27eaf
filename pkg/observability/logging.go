package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/storewizard/pkg/domain"
)

// LogHooks returns lifecycle hooks that write one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepChange: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_change", "session_key", e.SessionKey, "from", e.From, "to", e.To)
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.DebugContext(ctx, "validation",
				"session_key", e.SessionKey,
				"step_id", e.StepID,
				"tier", e.Tier,
				"valid", e.Valid,
				"stale", e.Stale,
				"duration", e.Duration,
			)
		},
		OnAutosave: func(ctx context.Context, e *domain.AutosaveEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "autosave", "session_key", e.SessionKey, "key", e.Key, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "autosave", "session_key", e.SessionKey, "key", e.Key, "bytes", e.Bytes)
		},
		OnSubmissionStep: func(ctx context.Context, e *domain.SubmissionEvent) {
			level := slog.LevelInfo
			if e.Status == domain.StepFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "submission_step",
				"session_key", e.SessionKey,
				"step", e.Step,
				"status", e.Status,
				"fatal", e.Fatal,
				"duration", e.Duration,
			)
		},
	}
}
