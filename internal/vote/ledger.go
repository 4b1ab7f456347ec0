// Package vote implements the exactly-once vote ledger for battle sessions.
package vote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/logging"
)

// ReasonAlreadyVoted is the rejection reason for a duplicate vote.
const ReasonAlreadyVoted = "already_voted"

// DedupStore performs the atomic check-and-set backing vote deduplication.
// SetNX must return true for exactly one of any number of concurrent calls
// with the same key.
type DedupStore interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Emitter delivers sequenced session events.
type Emitter interface {
	Emit(sessionID string, typ event.Type, payload any) event.Event
}

// Recorder durably records accepted votes. Failures must be handled by the
// implementation; the ledger does not wait on durability.
type Recorder interface {
	RecordVote(ctx context.Context, v battle.Vote)
}

// Receipt is the outcome of a vote command.
type Receipt struct {
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
	Tally    battle.Tally `json:"tally"`
}

// Ledger counts votes per session. It is safe for concurrent use.
type Ledger struct {
	dedup    DedupStore
	ttl      time.Duration
	emitter  Emitter
	recorder Recorder
	logger   *logging.Logger

	mu       sync.Mutex
	sessions map[string]*tally
}

type tally struct {
	mu     sync.Mutex
	total  battle.Tally
	groups map[int]battle.Tally
}

// Config wires a Ledger.
type Config struct {
	Dedup    DedupStore
	TTL      time.Duration // the maximum session lifetime; see SetTTL
	Emitter  Emitter
	Recorder Recorder
	Logger   *logging.Logger
}

// NewLedger creates a Ledger.
func NewLedger(cfg Config) *Ledger {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Ledger{
		dedup:    cfg.Dedup,
		ttl:      cfg.TTL,
		emitter:  cfg.Emitter,
		recorder: cfg.Recorder,
		logger:   logger,
		sessions: make(map[string]*tally),
	}
}

// TTL returns the lifetime given to new dedup keys.
func (l *Ledger) TTL() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ttl
}

// SetTTL changes the lifetime of dedup keys written from now on. Keys that
// already exist keep their expiry.
func (l *Ledger) SetTTL(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = ttl
}

// DedupKey returns the dedup key for a vote.
func DedupKey(sessionID string, turnGroupIndex int, voterID string) string {
	return fmt.Sprintf("vote:%s:%d:%s", sessionID, turnGroupIndex, voterID)
}

func (l *Ledger) state(sessionID string) *tally {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.sessions[sessionID]
	if !ok {
		t = &tally{groups: make(map[int]battle.Tally)}
		l.sessions[sessionID] = t
	}
	return t
}

// RecordVote accepts v unless the voter already voted for the same turn
// group. The caller is responsible for checking that the session exists and
// accepts votes. A dedup store failure rejects the vote with an error.
func (l *Ledger) RecordVote(ctx context.Context, v battle.Vote) (Receipt, error) {
	if err := v.Validate(); err != nil {
		return Receipt{}, err
	}
	choice, _ := battle.ParseSide(string(v.Choice))
	v.Choice = choice
	if v.CastAt.IsZero() {
		v.CastAt = time.Now().UTC()
	}

	logger := l.logger.WithSession(v.SessionID).With("turn_group_index", v.TurnGroupIndex)

	ok, err := l.dedup.SetNX(ctx, DedupKey(v.SessionID, v.TurnGroupIndex, v.VoterID), l.TTL())
	if err != nil {
		logger.Warn("vote dedup unavailable", "error", err.Error())
		return Receipt{}, errors.NewCollaboratorError("vote dedup", err).WithProvider("cache")
	}
	if !ok {
		return Receipt{Accepted: false, Reason: ReasonAlreadyVoted, Tally: l.Tally(v.SessionID)}, nil
	}

	t := l.state(v.SessionID)
	t.mu.Lock()
	t.total = t.total.Add(choice)
	t.groups[v.TurnGroupIndex] = t.groups[v.TurnGroupIndex].Add(choice)
	current := t.total
	if l.emitter != nil {
		l.emitter.Emit(v.SessionID, event.TypeVoteUpdate, event.VoteUpdate{
			TurnGroupIndex: v.TurnGroupIndex,
			Choice:         choice,
			Tally:          current,
		})
	}
	t.mu.Unlock()

	logger.Debug("vote accepted", "choice", string(choice))

	if l.recorder != nil {
		l.recorder.RecordVote(ctx, v)
	}

	return Receipt{Accepted: true, Tally: current}, nil
}

func (l *Ledger) lookup(sessionID string) (*tally, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.sessions[sessionID]
	return t, ok
}

// Tally returns the running tally for a session.
func (l *Ledger) Tally(sessionID string) battle.Tally {
	t, ok := l.lookup(sessionID)
	if !ok {
		return battle.Tally{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// GroupTally returns the tally for one turn group.
func (l *Ledger) GroupTally(sessionID string, turnGroupIndex int) battle.Tally {
	t, ok := l.lookup(sessionID)
	if !ok {
		return battle.Tally{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.groups[turnGroupIndex]
}

// Forget drops a session's in-memory tally. Dedup keys expire on their own.
func (l *Ledger) Forget(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, sessionID)
}
