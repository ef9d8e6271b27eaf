// Package blueprint describes one kind of entity the wizard can create: its
// steps, draft defaults and submission plan.
package blueprint

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/registry"
	"github.com/aretw0/storewizard/pkg/submission"
	"gopkg.in/yaml.v3"
)

// ErrUnknownKind is returned by Lookup for kinds without a built-in blueprint.
var ErrUnknownKind = errors.New("unknown blueprint kind")

// Blueprint is the configuration of one wizard variant.
type Blueprint struct {
	Kind             string                  `yaml:"kind" json:"kind"`
	Title            string                  `yaml:"title,omitempty" json:"title,omitempty"`
	IdentifyingField string                  `yaml:"identifying_field,omitempty" json:"identifying_field,omitempty"`
	Steps            []domain.StepDefinition `yaml:"steps" json:"steps"`
	Defaults         map[string]any          `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Plan             submission.Plan         `yaml:"plan" json:"plan"`

	// RichTextFields are sanitised as user HTML before submission; every other
	// top-level string is stripped of markup.
	RichTextFields []string `yaml:"rich_text_fields,omitempty" json:"rich_text_fields,omitempty"`
}

// Validate checks the step registry and the submission plan.
func (b Blueprint) Validate() error {
	if b.Kind == "" {
		return errors.New("blueprint has no kind")
	}
	if _, err := registry.New(b.Steps...); err != nil {
		return fmt.Errorf("blueprint %q: %w", b.Kind, err)
	}
	if err := b.Plan.Validate(); err != nil {
		return fmt.Errorf("blueprint %q: %w", b.Kind, err)
	}
	return nil
}

// Registry builds the step registry.
func (b Blueprint) Registry() (*registry.Registry, error) {
	return registry.New(b.Steps...)
}

// Identifier returns the draft field that must be set before autosave kicks in.
func (b Blueprint) Identifier() string {
	if b.IdentifyingField == "" {
		return "name"
	}
	return b.IdentifyingField
}

// KnownFields returns the sorted top-level draft keys the blueprint declares,
// either through step field rules or defaults.
func (b Blueprint) KnownFields() []string {
	set := make(map[string]struct{})
	for _, step := range b.Steps {
		for _, f := range step.Fields {
			root, _, _ := strings.Cut(f.Key, ".")
			set[root] = struct{}{}
		}
	}
	for k := range b.Defaults {
		set[k] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Parse decodes a blueprint document. JSON documents are accepted too.
func Parse(data []byte) (Blueprint, error) {
	var b Blueprint
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Blueprint{}, fmt.Errorf("failed to parse blueprint: %w", err)
	}
	b.Defaults = normalize(b.Defaults)
	if err := b.Validate(); err != nil {
		return Blueprint{}, err
	}
	return b, nil
}

// LoadFile reads and validates a blueprint file.
func LoadFile(path string) (Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Blueprint{}, fmt.Errorf("failed to read blueprint %s: %w", path, err)
	}
	return Parse(data)
}

// Lookup returns a built-in blueprint by kind.
func Lookup(kind string) (Blueprint, error) {
	switch kind {
	case KindDigitalProduct:
		return DigitalProduct(), nil
	case KindService:
		return Service(), nil
	}
	return Blueprint{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Kinds lists the built-in blueprint kinds.
func Kinds() []string {
	return []string{KindDigitalProduct, KindService}
}

// normalize converts nested map[any]any values produced by some decoders into
// map[string]any so drafts stay uniform.
func normalize(m map[string]any) map[string]any {
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
	case map[string]any:
		return normalize(t)
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
