package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/storewizard/pkg/domain"
)

// Templates implements ports.TemplateProvider over a fixed set of templates.
type Templates struct {
	mu   sync.RWMutex
	data map[string]domain.Template
}

// NewTemplates creates a provider holding the given templates.
func NewTemplates(tpls ...domain.Template) *Templates {
	t := &Templates{data: make(map[string]domain.Template, len(tpls))}
	for _, tpl := range tpls {
		t.Put(tpl)
	}
	return t
}

// Put adds or replaces a template.
func (t *Templates) Put(tpl domain.Template) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data[tpl.ID] = cloneTemplate(tpl)
}

// FetchTemplate returns a copy of the template with the given id.
func (t *Templates) FetchTemplate(ctx context.Context, id string) (domain.Template, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tpl, ok := t.data[id]
	if !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return cloneTemplate(tpl), nil
}

// IDs returns the known template ids, sorted.
func (t *Templates) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.data))
	for id := range t.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneTemplate(tpl domain.Template) domain.Template {
	tpl.Fields = map[string]any(domain.Draft(tpl.Fields).Clone())
	return tpl
}
