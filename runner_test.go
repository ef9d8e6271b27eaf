package storewizard_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, f *fixture, script string) string {
	t.Helper()
	var out bytes.Buffer
	r := storewizard.NewRunner()
	r.Input = strings.NewReader(script)
	r.Output = &out
	r.Headless = true
	require.NoError(t, r.Run(context.Background(), f.engine, "cli"))
	return out.String()
}

func TestRunner_CompletesServiceWizard(t *testing.T) {
	f := newFixture(t, blueprint.Service())
	script := strings.Join([]string{
		"set name=Consulting hour",
		"set slug=consulting",
		"next",
		"set price=50",
		"next",
		`set availability.slots=[{"day":"mon","start":"09:00","end":"17:00"}]`,
		"next",
		"next",
		"next",
		"submit",
		"set name=ignored after completion",
	}, "\n")

	out := runScript(t, f, script)

	assert.Contains(t, out, "## Step 1/6: Basics")
	assert.Contains(t, out, "## Step 6/6: Review")
	assert.Contains(t, out, "## Created")
	assert.Contains(t, out, "- availability: succeeded")
	assert.Equal(t, 2, f.persistence.Len(), "primary and availability records")
}

func TestRunner_ReportsBlockedSteps(t *testing.T) {
	f := newFixture(t, blueprint.Service())
	out := runScript(t, f, "set name=ab\nnext\nfly\nback\n")

	assert.Contains(t, out, "name: Service name must be at least 3 characters")
	assert.Contains(t, out, "slug: URL slug is required")
	assert.Contains(t, out, `unknown command "fly"`)
	assert.Contains(t, out, "already on the first step")
}

func TestRunner_RequiresIO(t *testing.T) {
	f := newFixture(t, blueprint.Service())
	err := storewizard.NewRunner().Run(context.Background(), f.engine, "cli")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, "hello world", storewizard.ParseValue(" hello world "))
	assert.Equal(t, float64(12), storewizard.ParseValue("12"))
	assert.Equal(t, true, storewizard.ParseValue("true"))
	assert.Equal(t, []any{"a"}, storewizard.ParseValue(`["a"]`))
	assert.Equal(t, "", storewizard.ParseValue(""))
}

func TestFieldUpdate(t *testing.T) {
	draft := domain.Draft{"seo": map[string]any{"title": "T", "description": "D"}}

	assert.Equal(t, map[string]any{"name": "x"}, storewizard.FieldUpdate(draft, "name", "x"))
	assert.Equal(t,
		map[string]any{"seo": map[string]any{"title": "New", "description": "D"}},
		storewizard.FieldUpdate(draft.Clone(), "seo.title", "New"))
	assert.Equal(t,
		map[string]any{"seo": map[string]any{"description": "D"}},
		storewizard.FieldUpdate(draft.Clone(), "seo.title", nil))
	assert.Equal(t,
		map[string]any{"booking": map[string]any{"max_per_day": 3}},
		storewizard.FieldUpdate(draft, "booking.max_per_day", 3))
}
