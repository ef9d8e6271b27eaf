// Package registry holds the static, ordered list of wizard steps.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/storewizard/pkg/domain"
)

// ErrInvalidRegistry is returned when step definitions break the ordering invariant.
var ErrInvalidRegistry = errors.New("invalid step registry")

// Registry is an immutable, ordered set of step definitions.
// Safe for concurrent use.
type Registry struct {
	steps []domain.StepDefinition
	byID  map[int]int
}

// New validates the definitions and returns a registry ordered by Order.
// Orders must be contiguous starting at 1 and ids must be unique.
func New(steps ...domain.StepDefinition) (*Registry, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: at least one step is required", ErrInvalidRegistry)
	}

	sorted := make([]domain.StepDefinition, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	byID := make(map[int]int, len(sorted))
	for i, s := range sorted {
		if s.Order != i+1 {
			return nil, fmt.Errorf("%w: step %q has order %d, expected %d", ErrInvalidRegistry, s.Name, s.Order, i+1)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate step id %d", ErrInvalidRegistry, s.ID)
		}
		byID[s.ID] = i
	}

	return &Registry{steps: sorted, byID: byID}, nil
}

// MustNew is like New but panics on invalid definitions. Intended for built-in blueprints.
func MustNew(steps ...domain.StepDefinition) *Registry {
	r, err := New(steps...)
	if err != nil {
		panic(err)
	}
	return r
}

// StepCount returns the number of steps.
func (r *Registry) StepCount() int {
	return len(r.steps)
}

// StepAt returns the step at the given 1-based order.
func (r *Registry) StepAt(order int) (domain.StepDefinition, bool) {
	if order < 1 || order > len(r.steps) {
		return domain.StepDefinition{}, false
	}
	return r.steps[order-1], true
}

// StepByID returns the step with the given id.
func (r *Registry) StepByID(id int) (domain.StepDefinition, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return domain.StepDefinition{}, false
	}
	return r.steps[idx], true
}

// IsLastStep reports whether order is the final step.
func (r *Registry) IsLastStep(order int) bool {
	return order == len(r.steps)
}

// Steps returns a copy of all step definitions in order.
func (r *Registry) Steps() []domain.StepDefinition {
	out := make([]domain.StepDefinition, len(r.steps))
	copy(out, r.steps)
	return out
}

// RequiredSteps returns the non-optional steps in order.
func (r *Registry) RequiredSteps() []domain.StepDefinition {
	var out []domain.StepDefinition
	for _, s := range r.steps {
		if !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
