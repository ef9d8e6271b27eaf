package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft_CopiesDefaults(t *testing.T) {
	defaults := map[string]any{
		"currency":  "USD",
		"affiliate": map[string]any{"enabled": false},
	}
	d := NewDraft(defaults)
	d.Section("affiliate")["enabled"] = true

	assert.Equal(t, false, defaults["affiliate"].(map[string]any)["enabled"], "defaults must not be shared")
	assert.NotNil(t, NewDraft(nil))
}

func TestDraft_CloneIsDeep(t *testing.T) {
	d := Draft{
		"tags":  []any{"a", "b"},
		"names": []string{"x"},
		"slots": []map[string]any{{"day": "mon"}},
		"seo":   map[string]any{"title": "T"},
	}
	c := d.Clone()

	c["tags"].([]any)[0] = "changed"
	c["names"].([]string)[0] = "changed"
	c["slots"].([]any)[0].(map[string]any)["day"] = "tue"
	c["seo"].(map[string]any)["title"] = "changed"

	assert.Equal(t, "a", d["tags"].([]any)[0])
	assert.Equal(t, "x", d["names"].([]string)[0])
	assert.Equal(t, "mon", d["slots"].([]map[string]any)[0]["day"])
	assert.Equal(t, "T", d.String("seo.title"))
	assert.Nil(t, Draft(nil).Clone())
}

func TestDraft_MergeIsShallow(t *testing.T) {
	d := Draft{"name": "Old", "seo": map[string]any{"title": "T", "description": "D"}}
	partial := map[string]any{"seo": map[string]any{"title": "New"}}
	d.Merge(partial)

	assert.Equal(t, "Old", d.String("name"))
	assert.Equal(t, "New", d.String("seo.title"))
	_, ok := d.Lookup("seo.description")
	assert.False(t, ok, "nested objects are replaced, not merged")

	partial["seo"].(map[string]any)["title"] = "mutated"
	assert.Equal(t, "New", d.String("seo.title"), "merge copies the partial")
}

func TestDraft_Accessors(t *testing.T) {
	d := Draft{
		"name":      "  Padded  ",
		"price":     10,
		"affiliate": Draft{"enabled": "yes"},
		"license":   map[string]any{"enabled": true},
		"preview":   "off",
	}

	assert.Equal(t, "Padded", d.String("name"))
	assert.Equal(t, "", d.String("price"), "non-strings read as empty")
	assert.Equal(t, "", d.String("missing.path"))
	assert.True(t, d.Bool("affiliate.enabled"))
	assert.True(t, d.Bool("license.enabled"))
	assert.False(t, d.Bool("preview"))
	assert.False(t, d.Bool("name.nested"))

	_, ok := d.Lookup("")
	assert.False(t, ok)
	require.NotNil(t, d.Section("affiliate"))
	assert.Nil(t, d.Section("name"))
}

func TestIsEmptyValue(t *testing.T) {
	var nilPtr *int
	tests := []struct {
		name  string
		value any
		empty bool
	}{
		{"nil", nil, true},
		{"blank string", "   ", true},
		{"string", "x", false},
		{"empty map", map[string]any{}, true},
		{"empty draft", Draft{}, true},
		{"empty slice", []any{}, true},
		{"empty strings", []string{}, true},
		{"typed empty slice", []int{}, true},
		{"nil pointer", nilPtr, true},
		{"zero number", 0, false},
		{"false", false, false},
		{"slice", []any{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, IsEmptyValue(tt.value))
		})
	}
}

func TestStepDefinition_RequiredAndTouched(t *testing.T) {
	step := StepDefinition{
		ID: 4, Order: 4, Name: "booking", Optional: true,
		Fields: []FieldRule{
			{Key: "booking.max_per_day", Required: true},
			{Key: "booking.contact_email", Label: "Contact email"},
		},
	}

	assert.Equal(t, map[string]struct{}{"booking.max_per_day": {}}, step.RequiredFields())
	assert.False(t, step.Touched(Draft{"booking": map[string]any{"contact_email": " "}}))
	assert.True(t, step.Touched(Draft{"booking": map[string]any{"contact_email": "a@b.co"}}))
	assert.Equal(t, "Contact email", step.Fields[1].DisplayName())
	assert.Equal(t, "booking.max_per_day", step.Fields[0].DisplayName())
}

func TestStepDefinition_TouchedWhenEnabled(t *testing.T) {
	step := StepDefinition{
		ID: 4, Order: 4, Name: "license", Optional: true, EnabledBy: "license.enabled",
		Fields: []FieldRule{{Key: "license.type", Required: true}},
	}

	assert.False(t, step.Touched(Draft{}))
	assert.False(t, step.Touched(Draft{"license": map[string]any{"enabled": false}}))
	assert.True(t, step.Touched(Draft{"license": map[string]any{"enabled": true}}))
}

func TestScope_ID(t *testing.T) {
	s := Scope{StoreID: "store-1", PrimaryID: "p-1"}
	assert.Equal(t, "store-1", s.ID(ScopeStore))
	assert.Equal(t, "p-1", s.ID(ScopePrimary))
	assert.Equal(t, "", s.ID("tenant"))
}
