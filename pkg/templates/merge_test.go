package templates_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/templates"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_SmartFillsOnlyEmptyFields(t *testing.T) {
	draft := domain.Draft{"name": "Guide"}
	tpl := domain.Template{ID: "ebook", Fields: map[string]any{"name": "Template Name", "price": 20}}

	got, err := templates.Apply(tpl, draft, domain.MergeSmart)
	require.NoError(t, err)

	want := domain.Draft{"name": "Guide", "price": 20}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_NeverOverwritesPopulatedFields(t *testing.T) {
	populated := []any{
		"Guide", 0, 0.0, false, true, []any{"tag"}, map[string]any{"title": "Mine"},
	}
	templateValues := []any{
		"Other", 99, "", nil, map[string]any{"title": "Theirs"}, []any{},
	}

	for i, existing := range populated {
		for j, incoming := range templateValues {
			t.Run(fmt.Sprintf("existing_%d_template_%d", i, j), func(t *testing.T) {
				draft := domain.Draft{"field": existing}
				before := draft.Clone()

				got, err := templates.Apply(domain.Template{Fields: map[string]any{"field": incoming}}, draft, domain.MergeSmart)
				require.NoError(t, err)

				assert.Equal(t, before["field"], got["field"])
				assert.Equal(t, before, draft, "input draft must not be mutated")
			})
		}
	}
}

func TestApply_EmptyValuesAreReplaced(t *testing.T) {
	draft := domain.Draft{"name": "Guide", "description": "  ", "tags": []any{}, "seo": map[string]any{}, "category": nil}
	tpl := domain.Template{Fields: map[string]any{
		"description": "From template",
		"tags":        []any{"ebook"},
		"seo":         map[string]any{"title": "SEO"},
		"category":    "guides",
	}}

	got, err := templates.Apply(tpl, draft, "")
	require.NoError(t, err)

	assert.Equal(t, "From template", got["description"])
	assert.Equal(t, []any{"ebook"}, got["tags"])
	assert.Equal(t, map[string]any{"title": "SEO"}, got["seo"])
	assert.Equal(t, "guides", got["category"])
}

func TestApply_DoesNotAliasTemplate(t *testing.T) {
	tpl := domain.Template{Fields: map[string]any{"seo": map[string]any{"title": "SEO"}}}

	got, err := templates.Apply(tpl, domain.Draft{}, domain.MergeSmart)
	require.NoError(t, err)
	got["seo"].(map[string]any)["title"] = "Changed"

	assert.Equal(t, "SEO", tpl.Fields["seo"].(map[string]any)["title"])
}

func TestApply_AllowedFieldsIgnoresUnknown(t *testing.T) {
	tpl := domain.Template{Fields: map[string]any{"price": 20, "internal_score": 7}}

	got, err := templates.Apply(tpl, domain.Draft{}, domain.MergeSmart, templates.WithAllowedFields("name", "price"))
	require.NoError(t, err)

	assert.Equal(t, domain.Draft{"price": 20}, got)
}

func TestApply_UnknownMode(t *testing.T) {
	_, err := templates.Apply(domain.Template{}, domain.Draft{}, "overwrite")
	assert.ErrorIs(t, err, templates.ErrUnknownMergeMode)
}

func TestFilled(t *testing.T) {
	draft := domain.Draft{"name": "Guide", "price": nil}
	tpl := domain.Template{Fields: map[string]any{"name": "T", "price": 5, "currency": "USD"}}

	keys := templates.Filled(tpl, draft)
	sort.Strings(keys)
	assert.Equal(t, []string{"currency", "price"}, keys)
}
