package loam_test

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/aretw0/storewizard/internal/testutils"
	adapter "github.com/aretw0/storewizard/pkg/adapters/loam"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_FetchTemplate(t *testing.T) {
	ctx := context.Background()
	_, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))

	require.NoError(t, repo.Save(ctx, core.Document{
		ID: "ebook.md",
		Content: `---
id: ebook
name: E-book starter
fields:
  price: 20
  currency: EUR
  seo:
    title: Read me
---
A practical guide.`,
	}))

	provider := adapter.New(loam.NewTypedRepository[adapter.TemplateMetadata](repo))

	tpl, err := provider.FetchTemplate(ctx, "ebook")
	require.NoError(t, err)

	assert.Equal(t, "ebook", tpl.ID)
	assert.Equal(t, "E-book starter", tpl.Name)
	assert.EqualValues(t, 20, tpl.Fields["price"])
	assert.Equal(t, "EUR", tpl.Fields["currency"])
	assert.Equal(t, map[string]any{"title": "Read me"}, tpl.Fields["seo"])
	assert.Equal(t, "A practical guide.", tpl.Fields["description"])
}

func TestProvider_NotFound(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t, loam.WithStrict(true))
	provider := adapter.New(loam.NewTypedRepository[adapter.TemplateMetadata](repo))

	_, err := provider.FetchTemplate(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestProvider_IDsFromFiles(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"course.md": "---\nname: Course\nfields:\n  price: 99\n---\n",
		"bundle.md": "---\nid: bundle\nname: Bundle\nfields:\n  price: 5\n---\nTwo books for one.\n",
	})

	provider, err := adapter.Open(dir)
	require.NoError(t, err)

	ids, err := provider.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bundle", "course"}, ids)

	tpl, err := provider.FetchTemplate(context.Background(), "course")
	require.NoError(t, err)
	assert.EqualValues(t, 99, tpl.Fields["price"])
	assert.NotContains(t, tpl.Fields, "description", "empty bodies are ignored")
}
