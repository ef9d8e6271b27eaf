package domain

import "encoding/json"

// SubmissionStep describes one create operation in the submission plan.
type SubmissionStep struct {
	Name  string `json:"name" yaml:"name"`
	Fatal bool   `json:"fatal" yaml:"fatal"`

	// DependsOn names an earlier step whose entity id is passed as parent id.
	// Empty for the primary step.
	DependsOn string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`

	// Kind is the dependent record kind passed to CreateDependent.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Source is the draft key holding the nested fields for this record.
	// Empty means the top-level scalar fields of the draft.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// EnabledBy is a draft path that must be truthy for the step to run.
	EnabledBy string `json:"enabled_by,omitempty" yaml:"enabled_by,omitempty"`

	// Builder names a registered payload builder overriding Source.
	Builder string `json:"builder,omitempty" yaml:"builder,omitempty"`
}

// IsPrimary reports whether the step creates the primary record.
func (s SubmissionStep) IsPrimary() bool {
	return s.DependsOn == ""
}

// StepStatus is the saga status of one submission step.
type StepStatus string

const (
	StepSucceeded   StepStatus = "succeeded"
	StepFailed      StepStatus = "failed"
	StepSkipped     StepStatus = "skipped"
	StepCompensated StepStatus = "compensated"
)

// StepRecord is one entry of the submission saga log.
type StepRecord struct {
	Name     string     `json:"name"`
	Status   StepStatus `json:"status"`
	EntityID string     `json:"entity_id,omitempty"`
}

// StepFailure records a failed create operation.
type StepFailure struct {
	Name       string `json:"name"`
	Err        error  `json:"-"`
	Fatal      bool   `json:"fatal"`
	Constraint bool   `json:"constraint,omitempty"`
}

// MarshalJSON renders the error as its message.
func (f StepFailure) MarshalJSON() ([]byte, error) {
	type alias StepFailure
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		alias
		Error string `json:"error"`
	}{alias(f), msg})
}

// SubmissionResult is produced once per submission attempt.
type SubmissionResult struct {
	PrimaryID      string        `json:"primary_id,omitempty"`
	SucceededSteps []string      `json:"succeeded_steps"`
	FailedSteps    []StepFailure `json:"failed_steps"`
	Log            []StepRecord  `json:"log"`
}

// Success reports whether the primary record was created and no fatal step failed.
func (r SubmissionResult) Success() bool {
	if r.PrimaryID == "" {
		return false
	}
	for _, f := range r.FailedSteps {
		if f.Fatal {
			return false
		}
	}
	return true
}

// FatalFailure returns the fatal failure that aborted the submission, if any.
func (r SubmissionResult) FatalFailure() (StepFailure, bool) {
	for _, f := range r.FailedSteps {
		if f.Fatal {
			return f, true
		}
	}
	return StepFailure{}, false
}
