// Package cli wires the configuration into a ready-to-serve storewizard stack
// and hosts the logic behind the CLI commands.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/storewizard"
	"github.com/aretw0/storewizard/internal/config"
	"github.com/aretw0/storewizard/internal/logging"
	fileAdapter "github.com/aretw0/storewizard/pkg/adapters/file"
	httpAdapter "github.com/aretw0/storewizard/pkg/adapters/http"
	loamAdapter "github.com/aretw0/storewizard/pkg/adapters/loam"
	"github.com/aretw0/storewizard/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/storewizard/pkg/adapters/redis"
	"github.com/aretw0/storewizard/pkg/blueprint"
	"github.com/aretw0/storewizard/pkg/domain"
	"github.com/aretw0/storewizard/pkg/observability"
	"github.com/aretw0/storewizard/pkg/persistence/middleware"
	"github.com/aretw0/storewizard/pkg/ports"
	"github.com/aretw0/storewizard/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// Stack is every component a command needs, built from one Config.
type Stack struct {
	Config      config.Config
	Blueprint   blueprint.Blueprint
	Engine      *storewizard.Engine
	Store       ports.KVStore
	Persistence *memory.Persistence
	Validator   ports.RemoteValidator
	Locker      ports.DistributedLocker
	Metrics     *observability.Metrics
	Streams     *httpAdapter.StreamManager
	Logger      *slog.Logger

	redis *backend.Client
}

// StackOption configures NewStack.
type StackOption func(*stackOptions)

type stackOptions struct {
	registerer prometheus.Registerer
	notifier   ports.Notifier
	extra      []storewizard.Option
}

// WithRegisterer registers metrics with reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) StackOption {
	return func(o *stackOptions) {
		o.registerer = reg
	}
}

// WithNotifier routes user-visible notifications.
func WithNotifier(n ports.Notifier) StackOption {
	return func(o *stackOptions) {
		o.notifier = n
	}
}

// WithEngineOptions appends engine options after the configured ones.
func WithEngineOptions(opts ...storewizard.Option) StackOption {
	return func(o *stackOptions) {
		o.extra = append(o.extra, opts...)
	}
}

// NewStack builds the engine and its adapters from cfg.
func NewStack(cfg config.Config, logger *slog.Logger, opts ...StackOption) (*Stack, error) {
	o := stackOptions{registerer: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	bp, err := LoadBlueprint(cfg.Blueprints)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		Config:      cfg,
		Blueprint:   bp,
		Persistence: memory.NewPersistence(),
		Streams:     httpAdapter.NewStreamManager(logger),
		Logger:      logger,
	}

	if cfg.Store.Driver == config.StoreRedis || cfg.Redis.Lock {
		s.redis = backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
	}
	if cfg.Redis.Lock {
		s.Locker = redisAdapter.NewLocker(s.redis, cfg.Redis.Prefix)
	}

	if s.Store, err = s.openStore(); err != nil {
		s.Close()
		return nil, err
	}

	if s.Metrics, err = observability.NewMetrics(o.registerer); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if cfg.Validator.URL != "" {
		s.Validator = httpAdapter.NewValidatorClient(cfg.Validator.URL,
			httpAdapter.WithHTTPClient(&http.Client{Timeout: cfg.Validator.Timeout}))
	} else {
		s.Validator = memory.NewValidator()
	}

	engineOpts := []storewizard.Option{
		storewizard.WithStore(s.Store),
		storewizard.WithRemoteValidator(s.Validator),
		storewizard.WithQuietPeriod(cfg.Autosave.QuietPeriod),
		storewizard.WithResume(cfg.Autosave.ResumeEnabled()),
		storewizard.WithCompensation(cfg.Submission.Compensate),
		storewizard.WithScope(domain.Scope{StoreID: cfg.Submission.StoreID}),
		storewizard.WithLogger(logger),
		storewizard.WithLifecycleHooks(domain.CombineHooks(
			s.Metrics.Hooks(),
			observability.LogHooks(logger),
			s.Streams.Hooks(),
		)),
	}
	if o.notifier != nil {
		engineOpts = append(engineOpts, storewizard.WithNotifier(o.notifier))
	}
	if cfg.Templates.Dir != "" {
		provider, err := loamAdapter.Open(cfg.Templates.Dir)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open templates: %w", err)
		}
		engineOpts = append(engineOpts, storewizard.WithTemplateProvider(provider))
	}
	engineOpts = append(engineOpts, o.extra...)

	if s.Engine, err = storewizard.New(bp, s.Persistence, engineOpts...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Sessions returns a session manager over the engine, using the distributed
// lock when one is configured.
func (s *Stack) Sessions() *session.Manager {
	opts := []session.Option{session.WithLogger(s.Logger)}
	if s.Locker != nil {
		opts = append(opts, session.WithLocker(s.Locker), session.WithLockTTL(s.Config.Redis.LockTTL))
	}
	return s.Engine.Sessions(opts...)
}

// Close releases the Redis connection, if any.
func (s *Stack) Close() error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Close()
}

func (s *Stack) openStore() (ports.KVStore, error) {
	cfg := s.Config
	var store ports.KVStore
	switch cfg.Store.Driver {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = fileAdapter.New(cfg.Store.Dir)
	case config.StoreRedis:
		store = redisAdapter.NewFromClient(s.redis,
			redisAdapter.WithPrefix(cfg.Redis.Prefix),
			redisAdapter.WithTTL(cfg.Redis.TTL))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	mws, err := StoreMiddlewares(cfg)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, mws...), nil
}

// StoreMiddlewares returns the redaction and encryption layers configured in
// cfg, outermost first. Redaction runs before encryption so it sees plaintext.
func StoreMiddlewares(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redaction.Patterns) > 0 {
		var ropts []middleware.RedactionOption
		if cfg.Redaction.Mask != "" {
			ropts = append(ropts, middleware.WithMask(cfg.Redaction.Mask))
		}
		mw, err := middleware.NewRedactionMiddleware(cfg.Redaction.Patterns, ropts...)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.Encryption.Key != "" {
		active, err := middleware.ParseKey(cfg.Encryption.Key)
		if err != nil {
			return nil, fmt.Errorf("encryption.key: %w", err)
		}
		ecfg := middleware.EncryptionConfig{ActiveKey: active}
		for i, raw := range cfg.Encryption.FallbackKeys {
			k, err := middleware.ParseKey(raw)
			if err != nil {
				return nil, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
			}
			ecfg.FallbackKeys = append(ecfg.FallbackKeys, k)
		}
		mw, err := middleware.NewEncryptionMiddleware(ecfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// LoadBlueprint reads the configured blueprint file or looks up a built-in kind.
func LoadBlueprint(cfg config.BlueprintsConfig) (blueprint.Blueprint, error) {
	if cfg.File != "" {
		bp, err := blueprint.LoadFile(cfg.File)
		if err != nil {
			return blueprint.Blueprint{}, fmt.Errorf("failed to load blueprint: %w", err)
		}
		return bp, nil
	}
	bp, err := blueprint.Lookup(cfg.Kind)
	if errors.Is(err, blueprint.ErrUnknownKind) {
		return blueprint.Blueprint{}, fmt.Errorf("%w %q (available: %v)", blueprint.ErrUnknownKind, cfg.Kind, blueprint.Kinds())
	}
	return bp, err
}
