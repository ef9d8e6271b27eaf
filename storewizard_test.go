package storewizard_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/pkg/adapters/memory"
	"github.com/aretw0/storewizard/pkg/autosave"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine      *storewizard.Engine
	persistence *memory.Persistence
	validator   *memory.Validator
	store       *memory.Store
	clock       *autosave.FakeClock
}

func newFixture(t *testing.T, bp blueprint.Blueprint, opts ...storewizard.Option) *fixture {
	t.Helper()
	f := &fixture{
		persistence: memory.NewPersistence(),
		validator:   memory.NewValidator(),
		store:       memory.NewStore(),
		clock:       autosave.NewFakeClock(time.Unix(0, 0)),
	}
	base := []storewizard.Option{
		storewizard.WithRemoteValidator(f.validator),
		storewizard.WithStore(f.store),
		storewizard.WithClock(f.clock),
		storewizard.WithScope(domain.Scope{StoreID: "store-1"}),
	}
	engine, err := storewizard.New(bp, f.persistence, append(base, opts...)...)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func advance(t *testing.T, ctx context.Context, ctrl *storewizard.Controller, partial map[string]any) {
	t.Helper()
	require.NoError(t, ctrl.UpdateDraft(partial))
	moved, err := ctrl.GoNext(ctx)
	require.NoError(t, err)
	require.True(t, moved, "step %d blocked: %v", ctrl.CurrentStep(), ctrl.Errors())
}

func TestDraftKey(t *testing.T) {
	assert.Equal(t, "wizard:draft:service:abc", storewizard.DraftKey("service", "abc"))
}

func TestNew_RequiresPersistence(t *testing.T) {
	_, err := storewizard.New(blueprint.DigitalProduct(), nil)
	assert.Error(t, err)
}

func TestNew_RejectsInvalidBlueprint(t *testing.T) {
	bp := blueprint.DigitalProduct()
	bp.Plan = nil
	_, err := storewizard.New(bp, memory.NewPersistence())
	assert.Error(t, err)
}

func TestEngine_DigitalProductEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, blueprint.DigitalProduct())

	ctrl, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	defer ctrl.Close()

	assert.Equal(t, "USD", ctrl.Draft()["currency"], "blueprint defaults seed the draft")

	advance(t, ctx, ctrl, map[string]any{"name": "Go in Practice", "slug": "go-in-practice", "description": "<p>Hands-on <b>Go</b></p><script>x()</script>"})
	advance(t, ctx, ctrl, map[string]any{"price": 20})
	advance(t, ctx, ctrl, map[string]any{"files": []any{"book.pdf"}, "generate_preview": true})
	advance(t, ctx, ctrl, nil) // license, untouched
	advance(t, ctx, ctrl, map[string]any{"affiliate": map[string]any{"enabled": true, "commission_rate": 30}})
	advance(t, ctx, ctrl, map[string]any{"seo": map[string]any{"title": "Go in Practice"}})
	require.Equal(t, 7, ctrl.CurrentStep())

	result, err := ctrl.Submit(ctx)
	require.NoError(t, err)
	require.True(t, result.Success())

	primary, ok := f.persistence.Get(result.PrimaryID)
	require.True(t, ok)
	assert.Equal(t, "Go in Practice", primary.Fields["name"])
	assert.Equal(t, "<p>Hands-on <b>Go</b></p>", primary.Fields["description"], "rich text keeps safe markup only")

	kinds := map[string]bool{}
	for _, rec := range f.persistence.Dependents(result.PrimaryID) {
		kinds[rec.Kind] = true
	}
	assert.Equal(t, map[string]bool{"affiliate": true, "seo": true, "variant": true}, kinds)

	_, err = f.store.Get(ctx, storewizard.DraftKey(blueprint.KindDigitalProduct, "s1"))
	assert.ErrorIs(t, err, domain.ErrKeyNotFound, "a completed session leaves no draft behind")
}

func TestEngine_EnabledSectionsAreValidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, blueprint.DigitalProduct())

	ctrl, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	defer ctrl.Close()

	advance(t, ctx, ctrl, map[string]any{"name": "Go in Practice", "slug": "go-in-practice"})
	advance(t, ctx, ctrl, map[string]any{"price": 20})
	advance(t, ctx, ctrl, map[string]any{"files": []any{"book.pdf"}})
	require.NoError(t, ctrl.UpdateDraft(map[string]any{
		"license":   map[string]any{"enabled": true},
		"affiliate": map[string]any{"enabled": true},
	}))

	moved, err := ctrl.GoNext(ctx)
	require.NoError(t, err)
	assert.False(t, moved, "an enabled license section needs a license type")
	assert.Contains(t, ctrl.Errors()[4].FieldMessages(), "license.type")

	result, err := ctrl.Submit(ctx)
	var invalid *domain.StepsInvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Outcomes, 2, "license and affiliate")
	assert.Equal(t, 4, invalid.FirstInvalidStep())
	assert.Empty(t, result.PrimaryID)
	assert.Zero(t, f.persistence.Len(), "nothing reaches storage")
}

func TestEngine_TemplateFillsSectionsOfFreshDraft(t *testing.T) {
	ctx := context.Background()
	provider := memory.NewTemplates(domain.Template{ID: "partner", Fields: map[string]any{
		"affiliate": map[string]any{"enabled": true, "commission_rate": 20},
	}})
	f := newFixture(t, blueprint.DigitalProduct(), storewizard.WithTemplateProvider(provider))

	ctrl, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.ApplyTemplate(ctx, "partner"))
	draft := ctrl.Draft()
	assert.True(t, draft.Bool("affiliate.enabled"))
	assert.Equal(t, 20, draft["affiliate"].(map[string]any)["commission_rate"])
}

func TestEngine_SlugTakenBlocksBasics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, blueprint.DigitalProduct())
	f.validator.Reserve(domain.ScopeStore, "store-1", "slug", "taken")

	ctrl, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.UpdateDraft(map[string]any{"name": "Taken product", "slug": "taken"}))
	moved, err := ctrl.GoNext(ctx)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, ctrl.CurrentStep())
	assert.Contains(t, ctrl.Errors()[1].FieldMessages(), "slug")
}

func TestEngine_ResumeRestoresAutosavedDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, blueprint.Service(), storewizard.WithResume(true))

	first, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, first.UpdateDraft(map[string]any{"name": "Consulting hour", "slug": "consulting"}))
	f.clock.Advance(autosave.DefaultQuietPeriod)
	first.Close()

	second, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	defer second.Close()

	draft := second.Draft()
	assert.Equal(t, "Consulting hour", draft["name"])
	assert.Equal(t, "USD", draft["currency"])
	assert.Equal(t, 1, second.CurrentStep())

	other, err := f.engine.Start(ctx, "s2")
	require.NoError(t, err)
	defer other.Close()
	assert.Nil(t, other.Draft()["name"], "drafts are scoped to their session key")
}

func TestEngine_HooksAreCombined(t *testing.T) {
	ctx := context.Background()
	var a, b int
	f := newFixture(t, blueprint.Service(),
		storewizard.WithLifecycleHooks(domain.LifecycleHooks{OnStepChange: func(context.Context, *domain.StepEvent) { a++ }}),
		storewizard.WithLifecycleHooks(domain.LifecycleHooks{OnStepChange: func(context.Context, *domain.StepEvent) { b++ }}),
	)

	ctrl, err := f.engine.Start(ctx, "s1")
	require.NoError(t, err)
	defer ctrl.Close()

	advance(t, ctx, ctrl, map[string]any{"name": "Consulting hour", "slug": "consulting"})
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestEngine_Sessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, blueprint.Service())
	sessions := f.engine.Sessions()
	defer sessions.Shutdown()

	ctrl, err := sessions.Open(ctx, "s1")
	require.NoError(t, err)
	again, err := sessions.Open(ctx, "s1")
	require.NoError(t, err)
	assert.Same(t, ctrl, again)
	assert.Equal(t, []string{"s1"}, sessions.List())
}
