package blueprint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/submission"
	"github.com/aretw0/storewizard/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsAreValid(t *testing.T) {
	for _, kind := range blueprint.Kinds() {
		t.Run(kind, func(t *testing.T) {
			bp, err := blueprint.Lookup(kind)
			require.NoError(t, err)
			assert.NoError(t, bp.Validate())
			assert.Equal(t, "name", bp.Identifier())

			for _, step := range bp.Plan {
				if step.Builder != "" {
					assert.Contains(t, bp.Builders(), step.Builder)
				}
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := blueprint.Lookup("course")
	assert.ErrorIs(t, err, blueprint.ErrUnknownKind)
}

func TestKnownFields(t *testing.T) {
	fields := blueprint.Service().KnownFields()
	assert.Contains(t, fields, "availability")
	assert.Contains(t, fields, "booking")
	assert.NotContains(t, fields, "availability.slots")
}

func TestParse(t *testing.T) {
	doc := `
kind: course
identifying_field: title
steps:
  - id: 1
    order: 1
    name: basics
    fields:
      - key: title
        required: true
        min_length: 3
      - key: price
        min: 0
  - id: 2
    order: 2
    name: review
defaults:
  price: 10
  meta:
    level: beginner
plan:
  - name: primary
    fatal: true
  - name: syllabus
    depends_on: primary
    kind: syllabus
    source: syllabus
`
	bp, err := blueprint.Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "course", bp.Kind)
	assert.Equal(t, "title", bp.Identifier())
	require.Len(t, bp.Steps, 2)
	require.NotNil(t, bp.Steps[0].Fields[1].Min)
	assert.Equal(t, 0.0, *bp.Steps[0].Fields[1].Min)
	assert.Equal(t, map[string]any{"level": "beginner"}, bp.Defaults["meta"])
	assert.Len(t, bp.Plan, 2)
}

func TestParseRejectsInvalidPlan(t *testing.T) {
	doc := `
kind: broken
steps:
  - {id: 1, order: 1, name: only}
plan:
  - {name: extra, depends_on: primary, kind: x}
`
	_, err := blueprint.Parse([]byte(doc))
	assert.ErrorIs(t, err, submission.ErrInvalidPlan)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: x\nsteps: [{id: 1, order: 1}]\nplan: [{name: primary, fatal: true}]\n"), 0o644))

	bp, err := blueprint.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", bp.Kind)

	_, err = blueprint.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPrimaryBuilderSanitises(t *testing.T) {
	bp := blueprint.DigitalProduct()
	build := bp.Builders()[blueprint.BuilderPrimary]

	payload, err := build(domain.Draft{
		"name":        "<b>Guide</b>",
		"description": `<p>Hello</p><script>alert(1)</script>`,
		"price":       20,
		"license":     map[string]any{"enabled": true},
	}, bp.Plan[0])
	require.NoError(t, err)

	assert.Equal(t, "Guide", payload["name"])
	assert.Equal(t, "<p>Hello</p>", payload["description"])
	assert.Equal(t, 20, payload["price"])
	assert.NotContains(t, payload, "license")
}

func TestPreviewVariant(t *testing.T) {
	bp := blueprint.DigitalProduct()
	build := bp.Builders()[blueprint.BuilderPreviewVariant]

	payload, err := build(domain.Draft{
		"name":     "Guide",
		"currency": "EUR",
		"files":    []any{"https://cdn.example.com/a.pdf", "https://cdn.example.com/b.pdf"},
	}, domain.SubmissionStep{})
	require.NoError(t, err)
	assert.Equal(t, "Guide (preview)", payload["name"])
	assert.Equal(t, []any{"https://cdn.example.com/a.pdf"}, payload["files"])
	assert.Equal(t, true, payload["preview"])

	_, err = build(domain.Draft{"name": "Guide"}, domain.SubmissionStep{})
	assert.Error(t, err)
}

func TestAvailabilityBuilder(t *testing.T) {
	bp := blueprint.Service()
	build := bp.Builders()[blueprint.BuilderAvailability]

	payload, err := build(domain.Draft{
		"availability": map[string]any{
			"timezone": "Europe/Lisbon",
			"slots":    []any{map[string]any{"day": "MON", "start": "09:00", "end": "12:00"}},
		},
	}, domain.SubmissionStep{Source: "availability"})
	require.NoError(t, err)

	assert.Equal(t, "Europe/Lisbon", payload["timezone"])
	assert.Equal(t, []any{map[string]any{"day": "mon", "start": "09:00", "end": "12:00"}}, payload["slots"])
}

func TestDigitalProductStepsValidate(t *testing.T) {
	bp := blueprint.DigitalProduct()
	reg, err := bp.Registry()
	require.NoError(t, err)

	basics, ok := reg.StepAt(1)
	require.True(t, ok)
	errs := validation.CheckStep(basics, domain.NewDraft(bp.Defaults))
	assert.Len(t, errs, 2)

	pricing, _ := reg.StepAt(2)
	draft := domain.NewDraft(bp.Defaults)
	draft.Merge(map[string]any{"price": 0})
	assert.Empty(t, validation.CheckStep(pricing, draft))
}
