package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/pkg/adapters/memory"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *memory.Persistence) {
	t.Helper()
	persistence := memory.NewPersistence()
	templates := memory.NewTemplates(domain.Template{
		ID:     "consulting",
		Name:   "Consulting",
		Fields: map[string]any{"price": 120, "description": "One hour call"},
	})
	engine, err := storewizard.New(blueprint.Service(), persistence,
		storewizard.WithTemplateProvider(templates),
	)
	require.NoError(t, err)
	sessions := engine.Sessions()
	t.Cleanup(sessions.Shutdown)
	return NewServer(sessions, WithBlueprint(engine.Blueprint())), persistence
}

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := s.Call(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return tc.Text
}

func snapshotOf(t *testing.T, res *mcp.CallToolResult) storewizard.Snapshot {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var snap storewizard.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &snap))
	return snap
}

func navigation(t *testing.T, res *mcp.CallToolResult) NavigationResult {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	var nav NavigationResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &nav))
	return nav
}

func TestTools_FillAndSubmit(t *testing.T) {
	s, persistence := newTestServer(t)
	key := map[string]any{"session_key": "agent-1"}
	with := func(extra map[string]any) map[string]any {
		out := map[string]any{"session_key": "agent-1"}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	snap := snapshotOf(t, call(t, s, "open_session", key))
	assert.Equal(t, 1, snap.CurrentStep)

	snap = snapshotOf(t, call(t, s, "update_draft", with(map[string]any{"fields": map[string]any{"name": "Consulting hour", "slug": "consulting"}})))
	assert.Equal(t, "consulting", snap.Draft["slug"])

	snap = snapshotOf(t, call(t, s, "apply_template", with(map[string]any{"template_id": "consulting"})))
	assert.EqualValues(t, 120, snap.Draft["price"])

	assert.True(t, navigation(t, call(t, s, "go_next", key)).Moved)
	assert.True(t, navigation(t, call(t, s, "go_next", key)).Moved)

	snap = snapshotOf(t, call(t, s, "set_field", with(map[string]any{
		"field": "availability.slots",
		"value": `[{"day":"tue","start":"10:00","end":"12:00"}]`,
	})))
	assert.Equal(t, "UTC", snap.Draft.String("availability.timezone"), "other section fields are kept")

	nav := navigation(t, call(t, s, "jump_to", with(map[string]any{"step": "6"})))
	assert.True(t, nav.Moved)
	assert.Equal(t, 6, nav.Snapshot.CurrentStep)

	res := call(t, s, "submit", key)
	require.False(t, res.IsError, text(t, res))
	var out SubmitResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	require.NotNil(t, out.Result)
	assert.NotEmpty(t, out.Result.PrimaryID)
	assert.Empty(t, out.Error)
	assert.Equal(t, 2, persistence.Len())

	res = call(t, s, "submit", key)
	assert.True(t, res.IsError, "a completed session cannot be submitted twice")
}

func TestTools_BlockedNavigationReportsErrors(t *testing.T) {
	s, _ := newTestServer(t)
	key := map[string]any{"session_key": "agent-2"}
	snapshotOf(t, call(t, s, "open_session", key))

	nav := navigation(t, call(t, s, "go_next", key))
	assert.False(t, nav.Moved)
	assert.NotEmpty(t, nav.Snapshot.Errors[1])

	nav = navigation(t, call(t, s, "go_back", key))
	assert.False(t, nav.Moved)
}

func TestTools_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	res := call(t, s, "go_next", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "session_key is required")

	res = call(t, s, "get_snapshot", map[string]any{"session_key": "missing"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "session not found")

	call(t, s, "open_session", map[string]any{"session_key": "agent-3"})
	res = call(t, s, "jump_to", map[string]any{"session_key": "agent-3", "step": 42})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "step out of range")

	_, err := s.Call(context.Background(), "no_such_tool", nil)
	assert.Error(t, err)
}
