package cli_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/internal/cli"
	"github.com/aretw0/storewizard/internal/config"
	"github.com/aretw0/storewizard/internal/logging"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = config.StoreFile
	cfg.Store.Dir = t.TempDir()
	return cfg
}

func newStack(t *testing.T, cfg config.Config, opts ...cli.StackOption) *cli.Stack {
	t.Helper()
	stack, err := cli.NewStack(cfg, logging.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	return stack
}

const serviceSession = `set name=Consulting hour
set slug=consulting
next
set price=50
next
set availability.slots=[{"day":"mon","start":"09:00","end":"17:00"}]
next
next
next
submit
`

func TestRunFill_ServiceWizard(t *testing.T) {
	cfg := testConfig(t)
	cfg.Blueprints.Kind = blueprint.KindService
	stack := newStack(t, cfg)

	var out bytes.Buffer
	err := cli.RunFill(context.Background(), stack, cli.FillOptions{
		SessionKey: "cli",
		Headless:   true,
		Input:      strings.NewReader(serviceSession),
		Output:     &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "## Created")
	assert.Equal(t, 2, stack.Persistence.Len(), "primary and availability records")
}

func TestRunFill_FreshDiscardsAutosave(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	stack := newStack(t, cfg)
	key := storewizard.DraftKey(stack.Blueprint.Kind, "s1")
	require.NoError(t, stack.Store.Set(ctx, key, []byte(`{"version":1,"draft":{"name":"Old"}}`)))

	var out bytes.Buffer
	err := cli.RunFill(ctx, stack, cli.FillOptions{
		SessionKey: "s1",
		Fresh:      true,
		Input:      strings.NewReader("show\nquit\n"),
		Output:     &out,
	})
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Old")
	assert.Contains(t, out.String(), ">>> Session 's1'")
}

func TestNewStack_EncryptedFileStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Encryption.Key = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))
	cfg.Redaction.Patterns = []string{"email"}
	stack := newStack(t, cfg)

	blob := []byte(`{"version":1,"draft":{"name":"Guide","contact_email":"a@b.c"}}`)
	require.NoError(t, stack.Store.Set(ctx, "wizard:draft:x:y", blob))

	entries, err := os.ReadDir(cfg.Store.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	raw, err := os.ReadFile(filepath.Join(cfg.Store.Dir, entries[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Guide")

	got, err := stack.Store.Get(ctx, "wizard:draft:x:y")
	require.NoError(t, err)
	assert.Contains(t, string(got), "Guide")
	assert.NotContains(t, string(got), "a@b.c")
}

func TestNewStack_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Encryption.Key = "too-short"
	_, err := cli.NewStack(cfg, nil)
	assert.ErrorContains(t, err, "encryption.key")

	cfg = testConfig(t)
	cfg.Blueprints.Kind = "bundle"
	_, err = cli.NewStack(cfg, nil)
	assert.ErrorIs(t, err, blueprint.ErrUnknownKind)

	cfg = testConfig(t)
	cfg.Blueprints.File = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cli.NewStack(cfg, nil)
	assert.ErrorContains(t, err, "failed to load blueprint")
}

func TestNewStack_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Driver = config.StoreRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Lock = true
	stack := newStack(t, cfg)
	require.NotNil(t, stack.Locker)

	ctx := context.Background()
	sessions := stack.Sessions()
	defer sessions.Shutdown()
	_, err := sessions.Open(ctx, "redis-session")
	require.NoError(t, err)

	require.NoError(t, stack.Store.Set(ctx, "wizard:draft:k:s", []byte("v")))
	var out bytes.Buffer
	require.NoError(t, cli.ListDrafts(ctx, stack.Store, "", &out))
	assert.Contains(t, out.String(), "- wizard:draft:k:s")
}

func TestServeHandler_Metrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	reg := prometheus.NewRegistry()
	stack := newStack(t, cfg, cli.WithRegisterer(reg))

	sessions := stack.Sessions()
	defer sessions.Shutdown()
	handler, err := cli.NewServeHandler(stack, sessions, reg)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions/m1", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/sessions/m1/next", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `storewizard_validations_total{result="invalid",tier="local"} 1`)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "127.0.0.1:0"
	stack := newStack(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cli.Serve(ctx, stack, nil) }()
	cancel()
	assert.NoError(t, <-done)
}

func TestDrafts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	stack := newStack(t, cfg)
	var store ports.KVStore = stack.Store

	var out bytes.Buffer
	require.NoError(t, cli.ListDrafts(ctx, store, "", &out))
	assert.Contains(t, out.String(), "No autosaved drafts found.")

	key := storewizard.DraftKey("service", "s1")
	require.NoError(t, store.Set(ctx, key, []byte(`{"version":1,"draft":{"name":"Call"}}`)))
	require.NoError(t, store.Set(ctx, storewizard.DraftKey("digital_product", "s2"), []byte(`{}`)))

	out.Reset()
	require.NoError(t, cli.ListDrafts(ctx, store, "service", &out))
	assert.Contains(t, out.String(), "- "+key)
	assert.NotContains(t, out.String(), "s2")

	out.Reset()
	require.NoError(t, cli.InspectDraft(ctx, store, "service:s1", &out))
	assert.Contains(t, out.String(), `"name": "Call"`)

	assert.Error(t, cli.InspectDraft(ctx, store, "service:missing", &out))

	out.Reset()
	require.NoError(t, cli.RemoveDrafts(ctx, store, []string{key}, &out))
	assert.Contains(t, out.String(), "Removed draft")
	_, err := store.Get(ctx, key)
	assert.Error(t, err)
}

func TestResolveDraftKey(t *testing.T) {
	assert.Equal(t, "wizard:draft:service:s1", cli.ResolveDraftKey("service:s1"))
	assert.Equal(t, "wizard:draft:service:s1", cli.ResolveDraftKey("wizard:draft:service:s1"))
	assert.Equal(t, "plain", cli.ResolveDraftKey("plain"))
}

func TestBlueprintCommands(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	var buf bytes.Buffer
	require.NoError(t, cli.WriteBlueprint(blueprint.Service(), cli.FormatYAML, &buf))
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0o644))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("kind: broken\nsteps: []\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, cli.ValidateBlueprintFiles([]string{good}, &out))
	assert.Contains(t, out.String(), "✓")

	out.Reset()
	err := cli.ValidateBlueprintFiles([]string{good, bad}, &out)
	assert.ErrorContains(t, err, "1 of 2 blueprints are invalid")
	assert.Contains(t, out.String(), "✗ "+bad)

	out.Reset()
	require.NoError(t, cli.WriteBlueprint(blueprint.Service(), cli.FormatMermaid, &out))
	assert.Contains(t, out.String(), "graph TD")

	out.Reset()
	require.NoError(t, cli.WriteBlueprint(blueprint.Service(), cli.FormatJSON, &out))
	assert.Contains(t, out.String(), `"kind": "service"`)

	assert.Error(t, cli.WriteBlueprint(blueprint.Service(), "toml", &out))
}
