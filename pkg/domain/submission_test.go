package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionResult_Success(t *testing.T) {
	nonFatal := StepFailure{Name: "seo", Err: errors.New("timeout")}
	fatal := StepFailure{Name: "license", Err: errors.New("down"), Fatal: true}

	assert.False(t, SubmissionResult{}.Success(), "no primary record")
	assert.True(t, SubmissionResult{PrimaryID: "p1", FailedSteps: []StepFailure{nonFatal}}.Success())
	assert.False(t, SubmissionResult{PrimaryID: "p1", FailedSteps: []StepFailure{nonFatal, fatal}}.Success())

	got, ok := SubmissionResult{FailedSteps: []StepFailure{nonFatal, fatal}}.FatalFailure()
	require.True(t, ok)
	assert.Equal(t, "license", got.Name)
	_, ok = SubmissionResult{FailedSteps: []StepFailure{nonFatal}}.FatalFailure()
	assert.False(t, ok)
}

func TestStepFailure_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(StepFailure{Name: "primary", Err: errors.New("slug taken"), Fatal: true, Constraint: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"primary","fatal":true,"constraint":true,"error":"slug taken"}`, string(data))

	data, err = json.Marshal(StepFailure{Name: "seo"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"seo","fatal":false,"error":""}`, string(data))
}

func TestSubmissionStep_IsPrimary(t *testing.T) {
	assert.True(t, SubmissionStep{Name: "primary"}.IsPrimary())
	assert.False(t, SubmissionStep{Name: "seo", DependsOn: "primary"}.IsPrimary())
}

func TestErrors_Unwrap(t *testing.T) {
	cause := &ConstraintViolationError{Field: "slug", Message: "already taken"}
	wrapped := fmt.Errorf("create: %w", &FatalPersistenceError{Step: "primary", Err: cause})

	assert.True(t, IsConstraintViolation(wrapped))
	assert.False(t, IsConstraintViolation(&NonFatalPersistenceError{Step: "seo", Err: errors.New("x")}))
	assert.Equal(t, `step "primary" failed: constraint violation on "slug": already taken`, errors.Unwrap(wrapped).Error())
	assert.Equal(t, "constraint violation: duplicate", (&ConstraintViolationError{Message: "duplicate"}).Error())

	corrupt := &DraftCorruptionError{Key: "k", Err: errors.New("bad json")}
	assert.ErrorContains(t, corrupt, `stored draft "k" is corrupt`)
	assert.Equal(t, "bad json", errors.Unwrap(corrupt).Error())
}

func TestStepsInvalidError(t *testing.T) {
	err := &StepsInvalidError{Outcomes: []ValidationOutcome{{StepID: 3}, {StepID: 1}}}
	assert.Equal(t, "submission blocked: steps [3, 1] are invalid", err.Error())
	assert.Equal(t, 1, err.FirstInvalidStep())
	assert.Equal(t, 0, (&StepsInvalidError{}).FirstInvalidStep())
}

func TestValidationOutcome_FieldMessages(t *testing.T) {
	o := ValidationOutcome{StepID: 1, Errors: []FieldError{
		{Field: "slug", Message: "URL slug is required"},
		{Field: "slug", Message: "already taken"},
		{Field: "name", Message: "too short"},
	}}
	assert.Equal(t, map[string][]string{
		"slug": {"URL slug is required", "already taken"},
		"name": {"too short"},
	}, o.FieldMessages())
	assert.Nil(t, ValidationOutcome{Valid: true}.FieldMessages())
}
