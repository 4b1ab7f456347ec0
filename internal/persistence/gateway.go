package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/logging"
)

// Gateway defaults.
const (
	DefaultTimeout  = 2 * time.Second
	DefaultCacheTTL = 2 * time.Hour
)

// GatewayConfig wires a Gateway. Store and Cache may be nil.
type GatewayConfig struct {
	Store    Store
	Cache    Cache
	Timeout  time.Duration
	CacheTTL time.Duration
	Logger   *logging.Logger
}

// Gateway is the engine's only path to durable storage and the cache.
// Writes are best-effort: each call runs under its own timeout, detached
// from caller cancellation, and failures are logged and swallowed.
type Gateway struct {
	store    Store
	cache    Cache
	timeout  time.Duration
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewGateway creates a Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}
	return &Gateway{
		store:    cfg.Store,
		cache:    cfg.Cache,
		timeout:  cfg.Timeout,
		cacheTTL: cfg.CacheTTL,
		logger:   cfg.Logger,
	}
}

// SessionCacheKey returns the cache key holding a session snapshot.
func SessionCacheKey(id string) string {
	return "session:" + id
}

func (g *Gateway) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
}

// try runs one best-effort write under the gateway timeout. Errors and
// panics from the backend are logged and swallowed.
func (g *Gateway) try(ctx context.Context, sessionID, op string, fn func(ctx context.Context) error, args ...any) {
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	var err error
	if rec := panics.Try(func() { err = fn(ctx) }); rec != nil {
		err = rec.AsError()
	}
	if err != nil {
		g.logger.WithSession(sessionID).Warn(op+" failed", append(args, "error", err.Error())...)
	}
}

// SaveSession writes the session record to the durable store.
func (g *Gateway) SaveSession(ctx context.Context, s *battle.Session) {
	if g.store == nil {
		return
	}
	g.try(ctx, s.ID, "persist session", func(ctx context.Context) error {
		return g.store.SaveSession(ctx, s)
	})
}

// SaveTurn writes one turn to the durable store.
func (g *Gateway) SaveTurn(ctx context.Context, sessionID string, turn battle.Turn) {
	if g.store == nil {
		return
	}
	g.try(ctx, sessionID, "persist turn", func(ctx context.Context) error {
		return g.store.SaveTurn(ctx, sessionID, turn)
	}, "turn_index", turn.Index)
}

// RecordVote writes an accepted vote to the durable store.
func (g *Gateway) RecordVote(ctx context.Context, v battle.Vote) {
	if g.store == nil {
		return
	}
	g.try(ctx, v.SessionID, "persist vote", func(ctx context.Context) error {
		return g.store.SaveVote(ctx, v)
	}, "turn_group_index", v.TurnGroupIndex)
}

// CacheSession stores a full snapshot (turns included) in the cache.
func (g *Gateway) CacheSession(ctx context.Context, s *battle.Session) {
	if g.cache == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		g.logger.WithSession(s.ID).Warn("encode session snapshot failed", "error", err.Error())
		return
	}
	g.try(ctx, s.ID, "cache session", func(ctx context.Context) error {
		return g.cache.Set(ctx, SessionCacheKey(s.ID), data, g.cacheTTL)
	})
}

// Checkpoint saves the session durably and refreshes the cached snapshot.
func (g *Gateway) Checkpoint(ctx context.Context, s *battle.Session) {
	g.SaveSession(ctx, s)
	g.CacheSession(ctx, s)
}

// LoadCached returns the cached snapshot of a session.
func (g *Gateway) LoadCached(ctx context.Context, id string) (*battle.Session, error) {
	if g.cache == nil {
		return nil, ErrCacheMiss
	}
	ctx, cancel := g.bounded(ctx)
	defer cancel()

	data, err := g.cache.Get(ctx, SessionCacheKey(id))
	if err != nil {
		return nil, err
	}
	var s battle.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "decode cached session %s", id)
	}
	return &s, nil
}

// LoadDurable returns the session from the durable store.
func (g *Gateway) LoadDurable(ctx context.Context, id string) (*battle.Session, error) {
	if g.store == nil {
		return nil, sessionNotFound(id)
	}
	ctx, cancel := g.bounded(ctx)
	defer cancel()
	return g.store.LoadSession(ctx, id)
}

// Close closes the store and the cache.
func (g *Gateway) Close() error {
	var errs []error
	if g.store != nil {
		errs = append(errs, g.store.Close())
	}
	if g.cache != nil {
		errs = append(errs, g.cache.Close())
	}
	return errors.Join(errs...)
}
