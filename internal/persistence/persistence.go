// Package persistence provides the durable store, the cache and the
// best-effort gateway the battle engine checkpoints through.
//
// The engine never depends on persistence for correctness: every write goes
// through [Gateway], which bounds each call with a timeout and logs and
// swallows failures.
package persistence

import (
	"context"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is the durable session store.
type Store interface {
	// SaveSession upserts the session record. Turns are stored separately.
	SaveSession(ctx context.Context, s *battle.Session) error
	// SaveTurn upserts one turn keyed by (sessionID, turn.Index).
	SaveTurn(ctx context.Context, sessionID string, turn battle.Turn) error
	// SaveVote records an accepted vote. Recording the same vote twice is a no-op.
	SaveVote(ctx context.Context, v battle.Vote) error
	// LoadSession returns the session with its turns, or a not-found error.
	LoadSession(ctx context.Context, id string) (*battle.Session, error)
	Close() error
}

// Cache is a TTL key-value cache that also backs vote deduplication.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// SetNX stores the key only if it is absent and reports whether it did.
	// It is atomic across concurrent callers.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

func sessionNotFound(id string) error {
	return errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
}
