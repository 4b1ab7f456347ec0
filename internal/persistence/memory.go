package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*battle.Session
	turns    map[string]map[int]battle.Turn
	votes    map[string]battle.Vote
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*battle.Session),
		turns:    make(map[string]map[int]battle.Turn),
		votes:    make(map[string]battle.Vote),
	}
}

// SaveSession implements Store.
func (m *MemoryStore) SaveSession(ctx context.Context, s *battle.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := s.Clone()
	c.Turns = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = c
	return nil
}

// SaveTurn implements Store.
func (m *MemoryStore) SaveTurn(ctx context.Context, sessionID string, turn battle.Turn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turns[sessionID] == nil {
		m.turns[sessionID] = make(map[int]battle.Turn)
	}
	m.turns[sessionID][turn.Index] = turn
	return nil
}

// SaveVote implements Store.
func (m *MemoryStore) SaveVote(ctx context.Context, v battle.Vote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := voteKey(v)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.votes[key]; !ok {
		m.votes[key] = v
	}
	return nil
}

// VoteCount returns the number of stored votes for a session.
func (m *MemoryStore) VoteCount(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, v := range m.votes {
		if v.SessionID == sessionID {
			n++
		}
	}
	return n
}

// LoadSession implements Store.
func (m *MemoryStore) LoadSession(ctx context.Context, id string) (*battle.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, sessionNotFound(id)
	}
	c := s.Clone()
	c.Turns = make([]battle.Turn, 0, len(m.turns[id]))
	for _, t := range m.turns[id] {
		c.Turns = append(c.Turns, t)
	}
	sort.Slice(c.Turns, func(i, j int) bool { return c.Turns[i].Index < c.Turns[j].Index })
	return c, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

func voteKey(v battle.Vote) string {
	return fmt.Sprintf("%s:%d:%s", v.SessionID, v.TurnGroupIndex, v.VoterID)
}

// memorySweepInterval is how often writes prune expired entries.
const memorySweepInterval = time.Minute

// MemoryCache is an in-process Cache. Expired entries are dropped when read
// and swept on writes at most once per memorySweepInterval, so keys that are
// never read again (vote dedup keys) do not accumulate.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]cacheEntry
	now       func() time.Time
	nextSweep time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: time.Now}
}

func (c *MemoryCache) live(key string) (cacheEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return cacheEntry{}, false
	}
	return e, true
}

// sweep drops every expired entry once the sweep interval has passed.
// Callers hold c.mu.
func (c *MemoryCache) sweep() {
	now := c.now()
	if now.Before(c.nextSweep) {
		return
	}
	c.nextSweep = now.Add(memorySweepInterval)
	for key, e := range c.entries {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of stored entries, expired ones not yet swept
// included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

// Set implements Cache.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.expiry(ttl)}
	return nil
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// SetNX implements Cache.
func (c *MemoryCache) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.entries[key] = cacheEntry{value: []byte("1"), expiresAt: c.expiry(ttl)}
	return true, nil
}

// Exists implements Cache.
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live(key)
	return ok, nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error { return nil }
