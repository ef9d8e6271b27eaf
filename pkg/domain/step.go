package domain

// Format names understood by the local validation tier.
const (
	FormatURL      = "url"
	FormatSlug     = "slug"
	FormatEmail    = "email"
	FormatCurrency = "currency"
	FormatSchedule = "schedule"
)

// ScopeKind identifies the context a remote check is evaluated in.
type ScopeKind string

const (
	// ScopeStore scopes a check to the parent store (e.g. slug uniqueness).
	ScopeStore ScopeKind = "store"
	// ScopePrimary scopes a check to an existing primary entity (e.g. version uniqueness).
	ScopePrimary ScopeKind = "primary"
)

// FieldRule declares the local structural constraints of a single draft field.
// Key is a dotted path into the draft (e.g. "affiliate.commission_rate").
type FieldRule struct {
	Key       string   `json:"key" yaml:"key"`
	Label     string   `json:"label,omitempty" yaml:"label,omitempty"`
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength int      `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength int      `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	MinItems  int      `json:"min_items,omitempty" yaml:"min_items,omitempty"`
	Format    string   `json:"format,omitempty" yaml:"format,omitempty"`
	OneOf     []string `json:"one_of,omitempty" yaml:"one_of,omitempty"`
}

// DisplayName returns the label used in user-facing messages.
func (r FieldRule) DisplayName() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Key
}

// RemoteCheck declares a field whose value must be verified by the remote validator.
type RemoteCheck struct {
	Field string    `json:"field" yaml:"field"`
	Scope ScopeKind `json:"scope" yaml:"scope"`
}

// StepDefinition is one page of the wizard. It is immutable once registered.
type StepDefinition struct {
	ID           int           `json:"id" yaml:"id"`
	Order        int           `json:"order" yaml:"order"`
	Name         string        `json:"name" yaml:"name"`
	Title        string        `json:"title,omitempty" yaml:"title,omitempty"`
	Optional     bool          `json:"optional,omitempty" yaml:"optional,omitempty"`
	Fields       []FieldRule   `json:"fields,omitempty" yaml:"fields,omitempty"`
	RemoteChecks []RemoteCheck `json:"remote_checks,omitempty" yaml:"remote_checks,omitempty"`

	// EnabledBy is a draft path whose truthy value switches the optional
	// section on. An enabled section is validated like a filled one.
	EnabledBy string `json:"enabled_by,omitempty" yaml:"enabled_by,omitempty"`
}

// RequiredFields returns the set of field keys that must be present for the step to pass.
func (s StepDefinition) RequiredFields() map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range s.Fields {
		if f.Required {
			out[f.Key] = struct{}{}
		}
	}
	return out
}

// Touched reports whether the step's section is switched on or the draft
// holds a non-empty value for any field of the step.
func (s StepDefinition) Touched(d Draft) bool {
	if s.EnabledBy != "" && d.Bool(s.EnabledBy) {
		return true
	}
	for _, f := range s.Fields {
		if v, ok := d.Lookup(f.Key); ok && !IsEmptyValue(v) {
			return true
		}
	}
	return false
}
