package cmd

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/cypher/internal/compliance"
	"github.com/Iron-Ham/cypher/internal/config"
	"github.com/Iron-Ham/cypher/internal/evaluator"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/orchestrator"
	"github.com/Iron-Ham/cypher/internal/persistence"
	"github.com/Iron-Ham/cypher/internal/provider"
	"github.com/Iron-Ham/cypher/internal/vote"
)

// engine is a fully wired registry plus the resources it holds open.
type engine struct {
	registry *orchestrator.Registry
	gateway  *persistence.Gateway
	bus      *event.Bus
	services map[string]string
}

func (e *engine) Close() error {
	return e.gateway.Close()
}

// buildEngine binds every collaborator named in cfg.
func buildEngine(ctx context.Context, cfg *config.Config, creds config.Credentials, logger *logging.Logger) (*engine, error) {
	if errs := creds.Require(cfg.Provider); len(errs) > 0 {
		return nil, config.ValidationErrors(errs)
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	cache, err := newCache(ctx, cfg.Cache, creds)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	gateway := persistence.NewGateway(persistence.GatewayConfig{
		Store:    store,
		Cache:    cache,
		Timeout:  cfg.Timeouts.Persistence(),
		CacheTTL: cfg.Battle.MaxSessionLifetime(),
		Logger:   logger,
	})

	generator, err := newGenerator(cfg.Provider, creds)
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}
	synthesizer, err := newSynthesizer(cfg.Provider, cfg.Storage, creds)
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}
	adjudicator, err := newAdjudicator(cfg.Provider, creds)
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}
	gate, err := newGate(cfg, logger)
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}

	bus := event.NewBus(logger)
	bus.SubscribeAll(func(ev event.Event) {
		logger.WithSession(ev.SessionID).Debug("event emitted",
			"event_type", string(ev.Type),
			"sequence", ev.Sequence)
	})
	broadcaster := event.NewBroadcaster(bus, logger)

	ledger := vote.NewLedger(vote.Config{
		Dedup:    cache,
		TTL:      cfg.Battle.MaxSessionLifetime(),
		Emitter:  broadcaster,
		Recorder: gateway,
		Logger:   logger,
	})

	registry, err := orchestrator.NewRegistry(cfg.Orchestrator(), orchestrator.Dependencies{
		Generator:   generator,
		Synthesizer: synthesizer,
		Gate:        gate,
		Evaluator:   evaluator.New(adjudicator, cfg.Timeouts.Adjudication(), logger),
		Gateway:     gateway,
		Broadcaster: broadcaster,
		Ledger:      ledger,
		Logger:      logger,
	})
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}

	return &engine{
		registry: registry,
		gateway:  gateway,
		bus:      bus,
		services: map[string]string{
			"generator":   cfg.Provider.Generator,
			"synthesizer": cfg.Provider.Synthesizer,
			"adjudicator": cfg.Provider.Adjudicator,
			"storage":     cfg.Storage.Driver,
			"cache":       cfg.Cache.Driver,
		},
	}, nil
}

func newStore(ctx context.Context, cfg config.StorageConfig) (persistence.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return persistence.OpenSQLite(ctx, cfg.SQLitePath)
	case "memory", "":
		return persistence.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newCache(ctx context.Context, cfg config.CacheConfig, creds config.Credentials) (persistence.Cache, error) {
	switch cfg.Driver {
	case "redis":
		return persistence.NewRedisCache(ctx, persistence.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: creds.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
	case "memory", "":
		return persistence.NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

func openAIConfig(p config.ProviderConfig, creds config.Credentials) provider.OpenAIConfig {
	return provider.OpenAIConfig{
		APIKey:     creds.OpenAIAPIKey,
		Model:      p.Model,
		JudgeModel: p.JudgeModel,
		Voice:      p.Voice,
		BaseURL:    p.BaseURL,
	}
}

func newAnthropic(p config.ProviderConfig, creds config.Credentials) (*provider.AnthropicClient, error) {
	var opts []provider.AnthropicOption
	if p.Model != "" {
		opts = append(opts, provider.WithAnthropicModel(p.Model))
	}
	if p.JudgeModel != "" {
		opts = append(opts, provider.WithAnthropicJudgeModel(p.JudgeModel))
	}
	if p.BaseURL != "" {
		opts = append(opts, provider.WithAnthropicURL(p.BaseURL))
	}
	return provider.NewAnthropicClient(creds.AnthropicAPIKey, opts...)
}

func newGenerator(p config.ProviderConfig, creds config.Credentials) (orchestrator.Generator, error) {
	switch p.Generator {
	case "anthropic":
		return newAnthropic(p, creds)
	case "openai":
		return provider.NewOpenAIClient(openAIConfig(p, creds))
	default:
		return provider.TemplateGenerator{}, nil
	}
}

// newAdjudicator returns nil for "votes"; the evaluator then always scores
// from the audience tally.
func newAdjudicator(p config.ProviderConfig, creds config.Credentials) (evaluator.Adjudicator, error) {
	switch p.Adjudicator {
	case "anthropic":
		return newAnthropic(p, creds)
	case "openai":
		return provider.NewOpenAIClient(openAIConfig(p, creds))
	default:
		return nil, nil
	}
}

func newSynthesizer(p config.ProviderConfig, storage config.StorageConfig, creds config.Credentials) (orchestrator.Synthesizer, error) {
	if p.Synthesizer != "openai" {
		return provider.SilentSynthesizer{}, nil
	}
	files, err := persistence.NewFileStore(storage.AudioDir)
	if err != nil {
		return nil, err
	}
	return provider.NewOpenAISynthesizer(openAIConfig(p, creds), files)
}

func newGate(cfg *config.Config, logger *logging.Logger) (*compliance.Gate, error) {
	rules := compliance.DefaultRules()
	if cfg.Compliance.RulesFile != "" {
		loaded, err := compliance.LoadRules(cfg.Compliance.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}
	screener, err := compliance.NewPatternScreener(rules, cfg.Compliance.Threshold)
	if err != nil {
		return nil, err
	}
	return compliance.NewGate(screener, cfg.Gate(), logger), nil
}
