package ports

import "context"

// PersistenceService creates the records produced by a submission.
// Implementations return *domain.ConstraintViolationError for failures the
// user can fix (e.g. duplicate identifier); any other error is unexpected.
type PersistenceService interface {
	CreatePrimary(ctx context.Context, fields map[string]any) (string, error)
	CreateDependent(ctx context.Context, parentID, kind string, fields map[string]any) (string, error)
}

// Compensator is implemented by persistence services able to undo creates.
// The submission orchestrator only uses it when compensation is enabled.
type Compensator interface {
	DeletePrimary(ctx context.Context, id string) error
	DeleteDependent(ctx context.Context, parentID, kind, id string) error
}
