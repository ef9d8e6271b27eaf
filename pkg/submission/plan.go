// Package submission commits a finalized draft as a primary record followed by
// its dependent records.
package submission

import (
	"errors"
	"fmt"

	"github.com/aretw0/storewizard/pkg/domain"
)

// ErrInvalidPlan is returned by Plan.Validate.
var ErrInvalidPlan = errors.New("invalid submission plan")

// Plan is the ordered list of create operations for one submission.
type Plan []domain.SubmissionStep

// Validate checks the structural invariants of the plan: exactly one primary
// step, placed first and fatal; unique names; and dependents that only refer to
// earlier steps and declare a record kind.
func (p Plan) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidPlan)
	}
	if !p[0].IsPrimary() {
		return fmt.Errorf("%w: first step %q must create the primary record", ErrInvalidPlan, p[0].Name)
	}
	if !p[0].Fatal {
		return fmt.Errorf("%w: primary step %q must be fatal", ErrInvalidPlan, p[0].Name)
	}

	seen := make(map[string]struct{}, len(p))
	for i, step := range p {
		if step.Name == "" {
			return fmt.Errorf("%w: step %d has no name", ErrInvalidPlan, i+1)
		}
		if _, dup := seen[step.Name]; dup {
			return fmt.Errorf("%w: duplicate step %q", ErrInvalidPlan, step.Name)
		}
		if i > 0 {
			if step.IsPrimary() {
				return fmt.Errorf("%w: step %q must depend on an earlier step", ErrInvalidPlan, step.Name)
			}
			if _, ok := seen[step.DependsOn]; !ok {
				return fmt.Errorf("%w: step %q depends on %q which does not run before it", ErrInvalidPlan, step.Name, step.DependsOn)
			}
			if step.Kind == "" {
				return fmt.Errorf("%w: dependent step %q has no kind", ErrInvalidPlan, step.Name)
			}
		}
		seen[step.Name] = struct{}{}
	}
	return nil
}

// Primary returns the primary step.
func (p Plan) Primary() (domain.SubmissionStep, bool) {
	if len(p) == 0 || !p[0].IsPrimary() {
		return domain.SubmissionStep{}, false
	}
	return p[0], true
}
