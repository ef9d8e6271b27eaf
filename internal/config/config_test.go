package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/storewizard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(config.EnvEncryptionKey, "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.True(t, cfg.Server.RequestValidationEnabled())
	assert.True(t, cfg.Autosave.ResumeEnabled())
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "storewizard.yaml", `
log:
  level: debug
server:
  addr: ":9090"
  request_validation: false
store:
  driver: redis
redis:
  addr: "redis:6379"
  ttl: 72h
  lock: true
autosave:
  quiet_period: 500ms
  resume: false
redaction:
  patterns: ["email", "phone"]
blueprints:
  kind: service
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.False(t, cfg.Server.RequestValidationEnabled())
	assert.Equal(t, config.StoreRedis, cfg.Store.Driver)
	assert.Equal(t, 72*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL, "defaults survive partial sections")
	assert.Equal(t, "storewizard:", cfg.Redis.Prefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Autosave.QuietPeriod)
	assert.False(t, cfg.Autosave.ResumeEnabled())
	assert.Equal(t, []string{"email", "phone"}, cfg.Redaction.Patterns)
	assert.Equal(t, "service", cfg.Blueprints.Kind)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "storewizard.json", `{"store": {"driver": "file", "dir": "/tmp/drafts"}, "autosave": {"quiet_period": "1s"}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.StoreFile, cfg.Store.Driver)
	assert.Equal(t, "/tmp/drafts", cfg.Store.Dir)
	assert.Equal(t, time.Second, cfg.Autosave.QuietPeriod)
}

func TestLoad_EncryptionKeyFromEnv(t *testing.T) {
	t.Setenv(config.EnvEncryptionKey, "from-env")
	cfg, err := config.Parse([]byte(`log: {level: info}`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Encryption.Key)

	cfg, err = config.Parse([]byte(`encryption: {key: from-file}`))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Encryption.Key)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(config.EnvEncryptionKey, "")

	_, err := config.Load(write(t, "config.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = config.Parse([]byte("store: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = config.Parse([]byte("store: {driver: sqlite}"))
	assert.ErrorContains(t, err, `unknown store driver "sqlite"`)

	_, err = config.Parse([]byte("encryption: {fallback_keys: [abc]}"))
	assert.ErrorContains(t, err, "fallback_keys require encryption.key")
}
