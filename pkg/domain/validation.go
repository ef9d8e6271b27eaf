package domain

// FieldError is a single validation message. Generic errors are fallback
// messages that yield to a field-specific message for the same field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Generic bool   `json:"generic,omitempty"`
}

// ValidationOutcome is the result of validating one step. It is never mutated
// after being produced; callers replace it with a newer outcome.
type ValidationOutcome struct {
	StepID int          `json:"step_id"`
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldMessages groups the outcome's messages by field key.
func (o ValidationOutcome) FieldMessages() map[string][]string {
	if len(o.Errors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(o.Errors))
	for _, e := range o.Errors {
		out[e.Field] = append(out[e.Field], e.Message)
	}
	return out
}

// Scope carries the identifying context remote checks are evaluated in.
type Scope struct {
	StoreID   string `json:"store_id,omitempty"`
	PrimaryID string `json:"primary_id,omitempty"`
}

// ID returns the identifier for the given scope kind, or "" when unknown.
func (s Scope) ID(kind ScopeKind) string {
	switch kind {
	case ScopeStore:
		return s.StoreID
	case ScopePrimary:
		return s.PrimaryID
	}
	return ""
}

// RemoteResult is the answer of the remote validator for one check.
type RemoteResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}
