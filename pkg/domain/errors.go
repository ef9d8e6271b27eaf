package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session key cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrKeyNotFound is returned by key-value stores when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// ErrTemplateNotFound is returned by template providers for unknown ids.
var ErrTemplateNotFound = errors.New("template not found")

// ErrStaleValidation is returned when a validation response was superseded by a newer request.
var ErrStaleValidation = errors.New("validation result superseded by a newer request")

// ErrSubmissionInProgress is returned when an operation conflicts with a running submission.
var ErrSubmissionInProgress = errors.New("submission in progress")

// ErrSessionCompleted is returned for edits after a successful submission.
var ErrSessionCompleted = errors.New("session already submitted")

// ErrStepOutOfRange is returned when a jump targets a step that does not exist.
var ErrStepOutOfRange = errors.New("step out of range")

// FieldValidationError is a local structural failure. It blocks the step
// transition and never reaches storage.
type FieldValidationError struct {
	Field   string
	Message string
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Message)
}

// RemoteValidationError is a failure reported by the remote validator.
// Once returned it is treated exactly like a FieldValidationError.
type RemoteValidationError struct {
	Field   string
	Message string
}

func (e *RemoteValidationError) Error() string {
	return fmt.Sprintf("field %q (remote): %s", e.Field, e.Message)
}

// StepsInvalidError aborts a submission before storage is touched.
type StepsInvalidError struct {
	Outcomes []ValidationOutcome
}

func (e *StepsInvalidError) Error() string {
	ids := make([]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		ids = append(ids, fmt.Sprintf("%d", o.StepID))
	}
	return fmt.Sprintf("submission blocked: steps [%s] are invalid", strings.Join(ids, ", "))
}

// FirstInvalidStep returns the lowest step id among the failed outcomes.
func (e *StepsInvalidError) FirstInvalidStep() int {
	first := 0
	for _, o := range e.Outcomes {
		if first == 0 || o.StepID < first {
			first = o.StepID
		}
	}
	return first
}

// ConstraintViolationError is returned by persistence services when a record
// breaks a uniqueness or consistency constraint the user can fix and retry.
type ConstraintViolationError struct {
	Field   string
	Message string
}

func (e *ConstraintViolationError) Error() string {
	if e.Field == "" {
		return "constraint violation: " + e.Message
	}
	return fmt.Sprintf("constraint violation on %q: %s", e.Field, e.Message)
}

// FatalPersistenceError wraps the failure of a fatal submission step.
type FatalPersistenceError struct {
	Step string
	Err  error
}

func (e *FatalPersistenceError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *FatalPersistenceError) Unwrap() error { return e.Err }

// NonFatalPersistenceError wraps the failure of an optional submission step.
type NonFatalPersistenceError struct {
	Step string
	Err  error
}

func (e *NonFatalPersistenceError) Error() string {
	return fmt.Sprintf("optional step %q failed: %v", e.Step, e.Err)
}

func (e *NonFatalPersistenceError) Unwrap() error { return e.Err }

// DraftCorruptionError describes a stored draft that could not be decoded.
// It is logged and discarded, never surfaced to the user.
type DraftCorruptionError struct {
	Key string
	Err error
}

func (e *DraftCorruptionError) Error() string {
	return fmt.Sprintf("stored draft %q is corrupt: %v", e.Key, e.Err)
}

func (e *DraftCorruptionError) Unwrap() error { return e.Err }

// IsConstraintViolation reports whether err (or anything it wraps) is a constraint violation.
func IsConstraintViolation(err error) bool {
	var cv *ConstraintViolationError
	return errors.As(err, &cv)
}
