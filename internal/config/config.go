// Package config loads the storewizard CLI configuration from a YAML or JSON
// file. Missing values fall back to Default().
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvEncryptionKey supplies the active encryption key when the file leaves it empty.
const EnvEncryptionKey = "STOREWIZARD_ENCRYPTION_KEY"

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the root of the configuration file.
type Config struct {
	Log        LogConfig        `yaml:"log" json:"log"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Autosave   AutosaveConfig   `yaml:"autosave" json:"autosave"`
	Encryption EncryptionConfig `yaml:"encryption" json:"encryption"`
	Redaction  RedactionConfig  `yaml:"redaction" json:"redaction"`
	Templates  TemplatesConfig  `yaml:"templates" json:"templates"`
	Blueprints BlueprintsConfig `yaml:"blueprints" json:"blueprints"`
	Validator  ValidatorConfig  `yaml:"validator" json:"validator"`
	Submission SubmissionConfig `yaml:"submission" json:"submission"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

type ServerConfig struct {
	Addr              string `yaml:"addr" json:"addr"`
	RequestValidation *bool  `yaml:"request_validation" json:"request_validation"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// StoreConfig selects where autosaved drafts live.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Dir    string `yaml:"dir" json:"dir"`
}

type RedisConfig struct {
	Addr    string        `yaml:"addr" json:"addr"`
	Prefix  string        `yaml:"prefix" json:"prefix"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
	Lock    bool          `yaml:"lock" json:"lock"`
	LockTTL time.Duration `yaml:"lock_ttl" json:"lock_ttl"`
}

type AutosaveConfig struct {
	QuietPeriod time.Duration `yaml:"quiet_period" json:"quiet_period"`
	Resume      *bool         `yaml:"resume" json:"resume"`
}

// EncryptionConfig holds base64 or hex encoded AES-256 keys.
type EncryptionConfig struct {
	Key          string   `yaml:"key" json:"key"`
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

type RedactionConfig struct {
	Patterns []string `yaml:"patterns" json:"patterns"`
	Mask     string   `yaml:"mask" json:"mask"`
}

// TemplatesConfig points at a loam repository of template documents.
type TemplatesConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// BlueprintsConfig picks a built-in kind or a blueprint file.
type BlueprintsConfig struct {
	Kind string `yaml:"kind" json:"kind"`
	File string `yaml:"file" json:"file"`
}

// ValidatorConfig is the base URL of a remote uniqueness endpoint.
type ValidatorConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type SubmissionConfig struct {
	Compensate bool   `yaml:"compensate" json:"compensate"`
	StoreID    string `yaml:"store_id" json:"store_id"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:        LogConfig{Level: "info"},
		Server:     ServerConfig{Addr: ":8080"},
		Metrics:    MetricsConfig{Path: "/metrics"},
		Store:      StoreConfig{Driver: StoreMemory, Dir: filepath.Join(".storewizard", "drafts")},
		Redis:      RedisConfig{Addr: "localhost:6379", Prefix: "storewizard:", LockTTL: 30 * time.Second},
		Autosave:   AutosaveConfig{QuietPeriod: 2 * time.Second},
		Blueprints: BlueprintsConfig{Kind: "digital_product"},
		Validator:  ValidatorConfig{Timeout: 5 * time.Second},
	}
}

// Load reads path and applies defaults. An empty path returns Default().
// JSON is parsed by the YAML decoder, so durations may be written as "2s" in both.
func Load(path string) (Config, error) {
	if path == "" {
		return Default().withEnv(), nil
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.fill()
	cfg = cfg.withEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fill restores defaults for values a file explicitly blanked.
func (c *Config) fill() {
	d := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = d.Metrics.Path
	}
	if c.Store.Driver == "" {
		c.Store.Driver = d.Store.Driver
	}
	if c.Store.Dir == "" {
		c.Store.Dir = d.Store.Dir
	}
	if c.Autosave.QuietPeriod == 0 {
		c.Autosave.QuietPeriod = d.Autosave.QuietPeriod
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = d.Redis.Prefix
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = d.Redis.LockTTL
	}
	if c.Blueprints.Kind == "" && c.Blueprints.File == "" {
		c.Blueprints.Kind = d.Blueprints.Kind
	}
	if c.Validator.Timeout == 0 {
		c.Validator.Timeout = d.Validator.Timeout
	}
}

func (c Config) withEnv() Config {
	if c.Encryption.Key == "" {
		c.Encryption.Key = os.Getenv(EnvEncryptionKey)
	}
	return c
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.Redis.Lock && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the redis lock"))
	}
	if c.Autosave.QuietPeriod < 0 {
		errs = append(errs, errors.New("autosave.quiet_period must not be negative"))
	}
	if len(c.Encryption.FallbackKeys) > 0 && c.Encryption.Key == "" {
		errs = append(errs, errors.New("encryption.fallback_keys require encryption.key"))
	}
	return errors.Join(errs...)
}

// RequestValidationEnabled reports whether HTTP requests are checked against the OpenAPI document.
func (s ServerConfig) RequestValidationEnabled() bool {
	return s.RequestValidation == nil || *s.RequestValidation
}

// ResumeEnabled reports whether sessions restore an autosaved draft on open.
func (a AutosaveConfig) ResumeEnabled() bool {
	return a.Resume == nil || *a.Resume
}
