package domain

// Template is an externally owned field bag. The engine never mutates it.
type Template struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// MergeMode selects the template merge policy.
type MergeMode string

const (
	// MergeSmart fills only empty destination fields.
	MergeSmart MergeMode = "smart"
)
