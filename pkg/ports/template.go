package ports

import (
	"context"

	"github.com/aretw0/storewizard/pkg/domain"
)

// TemplateProvider fetches reusable templates.
// Returns domain.ErrTemplateNotFound for unknown ids.
type TemplateProvider interface {
	FetchTemplate(ctx context.Context, id string) (domain.Template, error)
}
