// Package loam serves wizard templates from a Loam repository of markdown
// (frontmatter) or JSON documents.
package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/storewizard/pkg/domain"
)

// DefaultBodyField receives the markdown body when the template sets none.
const DefaultBodyField = "description"

// TemplateMetadata is the frontmatter of a template document.
type TemplateMetadata struct {
	ID     string         `json:"id" mapstructure:"id"`
	Name   string         `json:"name" mapstructure:"name"`
	Fields map[string]any `json:"fields" mapstructure:"fields"`

	// BodyField names the draft field the document body fills. "-" discards the body.
	BodyField string `json:"body_field,omitempty" mapstructure:"body_field"`
}

// Provider implements ports.TemplateProvider over a Loam repository.
type Provider struct {
	Repo *loam.TypedRepository[TemplateMetadata]
}

// New creates a provider over an existing typed repository.
func New(repo *loam.TypedRepository[TemplateMetadata]) *Provider {
	return &Provider{Repo: repo}
}

// Open initialises a read-only, strict Loam repository at dir.
func Open(dir string) (*Provider, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[TemplateMetadata](repo)), nil
}

// FetchTemplate returns the template whose id (or file name without
// extension) matches id.
func (p *Provider) FetchTemplate(ctx context.Context, id string) (domain.Template, error) {
	docs, err := p.Repo.List(ctx)
	if err != nil {
		return domain.Template{}, fmt.Errorf("loam list failed: %w", err)
	}
	for _, doc := range docs {
		if documentID(doc.ID, doc.Data) != id {
			continue
		}
		tpl := domain.Template{
			ID:     id,
			Name:   doc.Data.Name,
			Fields: normalizeMap(doc.Data.Fields),
		}
		if tpl.Fields == nil {
			tpl.Fields = make(map[string]any)
		}
		body := strings.TrimSpace(doc.Content)
		target := doc.Data.BodyField
		if target == "" {
			target = DefaultBodyField
		}
		if body != "" && target != "-" {
			if _, set := tpl.Fields[target]; !set {
				tpl.Fields[target] = body
			}
		}
		return tpl, nil
	}
	return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
}

// IDs lists the template ids, sorted. Two documents resolving to the same id
// are reported as an error.
func (p *Provider) IDs(ctx context.Context) ([]string, error) {
	docs, err := p.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	seen := make(map[string]string, len(docs))
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := documentID(doc.ID, doc.Data)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: template '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func documentID(docID string, meta TemplateMetadata) string {
	raw := meta.ID
	if raw == "" {
		raw = docID
	}
	return trimExtension(raw)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// normalizeMap converts strict-mode json.Number values into int64 or float64
// so template values compare like user input.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		return normalizeMap(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = normalizeValue(inner)
		}
		return s
	}
	return v
}
