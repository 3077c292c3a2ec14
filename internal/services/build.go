package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/annotate"
	"github.com/fyrsmithlabs/answerd/internal/assistant"
	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/generative"
	"github.com/fyrsmithlabs/answerd/internal/hooks"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/learning"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/matcher"
	"github.com/fyrsmithlabs/answerd/internal/profile"
	"github.com/fyrsmithlabs/answerd/internal/resolver"
	"github.com/fyrsmithlabs/answerd/internal/secrets"
	"github.com/fyrsmithlabs/answerd/internal/static"
	"github.com/fyrsmithlabs/answerd/internal/telemetry"
)

// BuildOptions overrides parts of the wiring, mostly for tests.
type BuildOptions struct {
	Logger    *logging.Logger
	Telemetry *telemetry.Telemetry

	// Generator replaces the configured generative backend.
	Generator generative.Generator
}

// Build wires every service from cfg. Failures of optional pieces (the
// knowledge file, the generative backend, pattern and hooks files) are
// logged and replaced by a working fallback; only an invalid configuration
// is an error. The knowledge watcher, when enabled, stops with ctx.
func Build(ctx context.Context, cfg *config.Config, opts BuildOptions) (Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}
	zl := log.Underlying()

	scrubber, err := buildScrubber(ctx, cfg.Secrets, log)
	if err != nil {
		return nil, err
	}

	store, err := openKnowledge(ctx, cfg.Knowledge, log)
	if err != nil {
		return nil, err
	}
	m := matcher.New(store, matcher.FromSettings(cfg.Matcher), matcher.WithLogger(zl.Named("matcher")))

	gen := opts.Generator
	if gen == nil {
		gen, err = generative.New(generative.FromSettings(cfg.Generative), zl.Named("generative"))
		if err != nil {
			log.Warn(ctx, "generative backend unavailable; using static replies only", zap.Error(err))
			gen = generative.Disabled{}
		}
	}

	patterns, err := static.Load(expand(cfg.Static.PatternsPath))
	if err != nil {
		log.Warn(ctx, "static patterns not loaded; using built-in patterns", zap.Error(err))
		patterns = static.Default()
	}

	learner := learning.New(store,
		learning.WithScrubber(scrubber),
		learning.WithLogger(log.Named("learning")))

	rcfg := resolver.FromSettings(cfg)
	coord := resolver.New(m, gen, patterns, rcfg,
		resolver.WithLearner(learner),
		resolver.WithScrubber(scrubber),
		resolver.WithLogger(log.Named("resolver")),
		resolver.WithMeter(opts.Telemetry.Meter(resolver.InstrumentationName)),
		resolver.WithTracer(opts.Telemetry.Tracer(resolver.InstrumentationName)))

	hm := buildHooks(ctx, cfg.Hooks, log)
	chain := annotate.NewChain(log.Named("annotate"))
	if every := hm.Config().PersonalizeEvery; every > 0 {
		chain.Add(annotate.Personalizer{Every: every})
	}
	if hm.Config().AnnounceLearning {
		chain.Add(annotate.LearningNotice{})
	}

	profiles := profile.NewStore(expand(cfg.Profile.Path), zl.Named("profile"))
	session := assistant.NewSession(coord, profiles,
		assistant.Config{
			MinInteractions: cfg.Profile.MinInteractions,
			HistorySize:     cfg.Conversation.HistorySize,
		},
		assistant.WithAnnotations(chain),
		assistant.WithHooks(hm),
		assistant.WithLogger(log.Named("session")))

	log.Info(ctx, "services initialized",
		zap.String("knowledge", store.Path()),
		zap.Bool("knowledge_persistent", store.Stats().Persistent),
		zap.Int("entries", store.Len()),
		zap.String("generative_provider", cfg.Generative.Provider),
		zap.String("state", session.State().String()))

	return NewRegistry(Options{
		Knowledge: store,
		Matcher:   m,
		Resolver:  coord,
		Session:   session,
		Profiles:  profiles,
		Hooks:     hm,
		Scrubber:  scrubber,
	}), nil
}

// openKnowledge opens the knowledge file. An unreadable or corrupted file
// is left untouched and the session continues with an empty memory store.
func openKnowledge(ctx context.Context, cfg config.KnowledgeConfig, log *logging.Logger) (*knowledge.Store, error) {
	path, err := config.ExpandPath(cfg.Path)
	if err != nil {
		return nil, err
	}
	zl := log.Underlying().Named("knowledge")

	store, err := knowledge.Open(path, knowledge.WithLogger(zl))
	if err != nil {
		log.Warn(ctx, "knowledge file unusable; continuing in memory only", zap.Error(err))
		return knowledge.NewMemoryStore(knowledge.WithLogger(zl)), nil
	}
	if cfg.Watch {
		if err := store.Watch(ctx); err != nil {
			log.Warn(ctx, "knowledge watcher not started", zap.Error(err))
		}
	}
	return store, nil
}

func buildScrubber(ctx context.Context, cfg config.SecretsConfig, log *logging.Logger) (secrets.Scrubber, error) {
	if !cfg.Enabled {
		return secrets.NoopScrubber{}, nil
	}
	sc := secrets.DefaultConfig()
	allow, err := secrets.LoadAllowList(expand(cfg.AllowlistPath))
	if err != nil {
		log.Warn(ctx, "secrets allowlist ignored", zap.Error(err))
	} else {
		sc.AllowList = allow
	}
	s, err := secrets.New(sc)
	if err != nil {
		return nil, fmt.Errorf("building secret scrubber: %w", err)
	}
	return s, nil
}

// buildHooks loads the hooks file and registers a log line for each
// lifecycle event.
func buildHooks(ctx context.Context, cfg config.HooksConfig, log *logging.Logger) *hooks.HookManager {
	hc, err := hooks.LoadConfigWithEnvOverride(expand(cfg.Path))
	if err != nil {
		log.Warn(ctx, "hooks file ignored", zap.Error(err))
		hc = hooks.DefaultConfig()
	}
	hm := hooks.NewHookManager(hc)

	events := log.Named("events")
	for _, event := range []hooks.HookType{
		hooks.HookSessionStart,
		hooks.HookSessionEnd,
		hooks.HookIdentified,
		hooks.HookLearned,
		hooks.HookStoreDegraded,
	} {
		hm.RegisterHandler(event, func(ctx context.Context, data map[string]any) error {
			events.Info(ctx, "session event", zap.String("event", string(event)), zap.Any("data", data))
			return nil
		})
	}
	return hm
}

// expand resolves "~/" paths; an unresolvable home leaves the path as is.
func expand(path string) string {
	if p, err := config.ExpandPath(path); err == nil {
		return p
	}
	return path
}
