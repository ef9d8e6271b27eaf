// Package templates merges reusable template field bags into drafts.
package templates

import (
	"errors"
	"fmt"

	"github.com/aretw0/storewizard/pkg/domain"
)

// ErrUnknownMergeMode is returned for merge modes other than smart.
var ErrUnknownMergeMode = errors.New("unknown merge mode")

// MergeOption configures a merge.
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	allowed map[string]struct{}
}

// WithAllowedFields restricts the merge to the given top-level keys.
// Template fields outside the set are ignored.
func WithAllowedFields(keys ...string) MergeOption {
	return func(c *mergeConfig) {
		if c.allowed == nil {
			c.allowed = make(map[string]struct{}, len(keys))
		}
		for _, k := range keys {
			c.allowed[k] = struct{}{}
		}
	}
}

// Apply merges tpl into draft and returns a new draft; neither input is mutated.
// In smart mode a template field is copied only when the draft's value for the
// same key is empty or undefined, so fields the user already populated are
// never overwritten. An empty mode means smart.
func Apply(tpl domain.Template, draft domain.Draft, mode domain.MergeMode, opts ...MergeOption) (domain.Draft, error) {
	if mode == "" {
		mode = domain.MergeSmart
	}
	if mode != domain.MergeSmart {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMergeMode, mode)
	}

	cfg := mergeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := draft.Clone()
	if result == nil {
		result = make(domain.Draft)
	}

	// Cloning the template first keeps nested maps in the result independent of it.
	source := domain.Draft(tpl.Fields).Clone()
	for key, value := range source {
		if cfg.allowed != nil {
			if _, ok := cfg.allowed[key]; !ok {
				continue
			}
		}
		if existing, ok := result[key]; ok && !domain.IsEmptyValue(existing) {
			continue
		}
		result[key] = value
	}
	return result, nil
}

// Filled returns the keys Apply would populate from tpl, in no particular order.
func Filled(tpl domain.Template, draft domain.Draft, opts ...MergeOption) []string {
	merged, err := Apply(tpl, draft, domain.MergeSmart, opts...)
	if err != nil {
		return nil
	}
	var keys []string
	for k, v := range merged {
		before, ok := draft[k]
		if (!ok || domain.IsEmptyValue(before)) && !domain.IsEmptyValue(v) {
			keys = append(keys, k)
		}
	}
	return keys
}
