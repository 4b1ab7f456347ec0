package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
)

func sampleSession(id string) *battle.Session {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &battle.Session{
		ID:     id,
		Status: battle.StatusActive,
		Topic:  "vinyl vs streaming",
		Format: battle.Format{TurnsPerParticipant: 2, BarsPerTurn: 4, TurnOrder: battle.OrderFixed, Style: battle.StyleBattle},
		Participants: battle.Participants{
			A: battle.Participant{ID: "mc-a", Side: battle.SideA, DisplayName: "MC A"},
			B: battle.Participant{ID: "mc-b", Side: battle.SideB, DisplayName: "MC B"},
		},
		CreatedAt: created,
		Tally:     battle.Tally{A: 2, B: 1},
	}
}

func sampleTurn(index int) battle.Turn {
	side := battle.SideA
	if index%2 == 0 {
		side = battle.SideB
	}
	return battle.Turn{
		Index:         index,
		Round:         (index + 1) / 2,
		ParticipantID: "mc-" + string(side),
		Side:          side,
		Content: battle.Content{
			Text:            fmt.Sprintf("verse %d", index),
			ComplianceScore: 0.8,
			Violations:      []battle.Violation{{Category: "profanity", Penalty: 0.2}},
			AudioRef:        fmt.Sprintf("audio/s/%d.mp3", index),
			Attempts:        2,
		},
	}
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.LoadSession(ctx, "missing")
	if !errors.IsNotFound(err) || !errors.Is(err, errors.ErrSessionNotFound) {
		t.Fatalf("LoadSession(missing) = %v, want not found", err)
	}

	s := sampleSession("s-1")
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	for _, i := range []int{2, 1, 3} {
		if err := store.SaveTurn(ctx, s.ID, sampleTurn(i)); err != nil {
			t.Fatalf("SaveTurn(%d): %v", i, err)
		}
	}

	ended := s.CreatedAt.Add(5 * time.Minute)
	s.Status = battle.StatusCompleted
	s.EndedAt = &ended
	s.Result = &battle.Result{Winner: "A", Source: battle.SourceVotes}
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession (update): %v", err)
	}

	got, err := store.LoadSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.Status != battle.StatusCompleted || got.Result == nil || got.Result.Winner != "A" {
		t.Errorf("session not updated: %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}
	if got.Participants.B.DisplayName != "MC B" || got.Tally.A != 2 {
		t.Errorf("session fields lost: %+v", got)
	}
	if len(got.Turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(got.Turns))
	}
	for i, turn := range got.Turns {
		if turn.Index != i+1 {
			t.Errorf("turn %d index = %d, want ordered", i, turn.Index)
		}
	}
	if got.Turns[1].Side != battle.SideB || got.Turns[1].Content.Violations[0].Category != "profanity" {
		t.Errorf("turn content lost: %+v", got.Turns[1])
	}

	v := battle.Vote{SessionID: s.ID, TurnGroupIndex: 1, VoterID: "v1", Choice: battle.SideA, CastAt: time.Now()}
	if err := store.SaveVote(ctx, v); err != nil {
		t.Fatalf("SaveVote: %v", err)
	}
	if err := store.SaveVote(ctx, v); err != nil {
		t.Fatalf("SaveVote (duplicate) should be a no-op, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeContract(t, store)
	if n := store.VoteCount("s-1"); n != 1 {
		t.Errorf("VoteCount = %d, want 1", n)
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "cypher.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	storeContract(t, store)

	tally, err := store.CountVotes(ctx, "s-1")
	if err != nil {
		t.Fatalf("CountVotes: %v", err)
	}
	if tally != (battle.Tally{A: 1}) {
		t.Errorf("CountVotes = %+v, want A=1", tally)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.LoadSession(ctx, "s-1"); err != nil {
		t.Errorf("session lost after reopen: %v", err)
	}
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestUpSection(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE x (id INT);\n-- +migrate Down\nDROP TABLE x;\n"
	if got := upSection(content); got != "\nCREATE TABLE x (id INT);\n" {
		t.Errorf("upSection() = %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Errorf("upSection() without markers = %q", got)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get(missing) = %v, want ErrCacheMiss", err)
	}

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	ok, _ := c.SetNX(ctx, "nx", time.Minute)
	again, _ := c.SetNX(ctx, "nx", time.Minute)
	if !ok || again {
		t.Errorf("SetNX = %v then %v, want true then false", ok, again)
	}

	now = now.Add(2 * time.Minute)
	if exists, _ := c.Exists(ctx, "k"); exists {
		t.Error("entry should have expired")
	}
	if ok, _ := c.SetNX(ctx, "nx", 0); !ok {
		t.Error("SetNX should succeed after expiry")
	}

	now = now.Add(24 * time.Hour)
	if exists, _ := c.Exists(ctx, "nx"); !exists {
		t.Error("zero TTL should never expire")
	}
}

func TestMemoryCache_SweepsUnreadKeys(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := range 100 {
		if ok, _ := c.SetNX(ctx, fmt.Sprintf("vote:s:1:viewer-%d", i), time.Minute); !ok {
			t.Fatalf("SetNX(%d) lost", i)
		}
	}
	_ = c.Set(ctx, "pinned", []byte("v"), 0)
	if c.Len() != 101 {
		t.Fatalf("Len = %d, want 101", c.Len())
	}

	// Within the sweep interval expired keys may linger.
	now = now.Add(memorySweepInterval / 2)
	_, _ = c.SetNX(ctx, "vote:s:2:early", time.Hour)
	if c.Len() != 102 {
		t.Errorf("Len = %d before the sweep interval, want 102", c.Len())
	}

	now = now.Add(2 * time.Minute)
	_, _ = c.SetNX(ctx, "vote:s:2:late", time.Hour)
	if c.Len() != 3 {
		t.Errorf("Len = %d after sweep, want 3 (pinned, early, late)", c.Len())
	}
}

func TestMemoryCache_ConcurrentSetNX(t *testing.T) {
	c := NewMemoryCache()
	var mu sync.Mutex
	wins := 0

	var wg sync.WaitGroup
	for range 64 {
		wg.Go(func() {
			ok, err := c.SetNX(context.Background(), "vote:s:1:v", time.Hour)
			if err != nil {
				t.Errorf("SetNX: %v", err)
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("SetNX winners = %d, want 1", wins)
	}
}

func TestRedisCache_Key(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	if got := NewRedisCacheFromClient(client, "cypher").Key("vote:s:1:v"); got != "cypher:vote:s:1:v" {
		t.Errorf("Key() = %q", got)
	}
	if got := NewRedisCacheFromClient(client, "").Key("k"); got != "k" {
		t.Errorf("Key() without prefix = %q", got)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "audio"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	ref, err := fs.Save(ctx, "s-1/turn-1.mp3", []byte("ID3"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ref != "s-1/turn-1.mp3" {
		t.Errorf("ref = %q", ref)
	}

	data, err := fs.Load(ctx, ref)
	if err != nil || string(data) != "ID3" {
		t.Errorf("Load = %q, %v", data, err)
	}

	if _, err := fs.Load(ctx, "s-1/missing.mp3"); err == nil {
		t.Error("expected error for missing artifact")
	}
	for _, bad := range []string{"../escape.mp3", "", "."} {
		if _, err := fs.Save(ctx, bad, []byte("x")); err == nil {
			t.Errorf("Save(%q) should be rejected", bad)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(fs.BaseDir(), "s-1", ".tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) SaveSession(context.Context, *battle.Session) error {
	return fmt.Errorf("disk full")
}

func (failingStore) SaveTurn(context.Context, string, battle.Turn) error {
	return fmt.Errorf("disk full")
}

type panickingStore struct{ *MemoryStore }

func (panickingStore) SaveTurn(context.Context, string, battle.Turn) error {
	panic("driver bug")
}

func TestGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("checkpoint then load from both tiers", func(t *testing.T) {
		store := NewMemoryStore()
		cache := NewMemoryCache()
		g := NewGateway(GatewayConfig{Store: store, Cache: cache})

		s := sampleSession("s-2")
		s.Turns = []battle.Turn{sampleTurn(1)}
		g.Checkpoint(ctx, s)
		g.SaveTurn(ctx, s.ID, s.Turns[0])

		cached, err := g.LoadCached(ctx, s.ID)
		if err != nil || len(cached.Turns) != 1 {
			t.Fatalf("LoadCached = %+v, %v", cached, err)
		}
		durable, err := g.LoadDurable(ctx, s.ID)
		if err != nil || len(durable.Turns) != 1 {
			t.Fatalf("LoadDurable = %+v, %v", durable, err)
		}
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		g := NewGateway(GatewayConfig{Store: failingStore{NewMemoryStore()}})
		g.SaveSession(ctx, sampleSession("s-3"))
		g.SaveTurn(ctx, "s-3", sampleTurn(1))
	})

	t.Run("backend panic is swallowed", func(t *testing.T) {
		store := panickingStore{NewMemoryStore()}
		g := NewGateway(GatewayConfig{Store: store})
		g.SaveTurn(ctx, "s-6", sampleTurn(1))
		g.SaveSession(ctx, sampleSession("s-6"))
		if _, err := store.LoadSession(ctx, "s-6"); err != nil {
			t.Errorf("store should remain usable after a panic: %v", err)
		}
	})

	t.Run("canceled caller context still persists", func(t *testing.T) {
		store := NewMemoryStore()
		g := NewGateway(GatewayConfig{Store: store})
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		g.SaveSession(canceled, sampleSession("s-4"))
		if _, err := store.LoadSession(ctx, "s-4"); err != nil {
			t.Errorf("session not persisted: %v", err)
		}
	})

	t.Run("missing tiers", func(t *testing.T) {
		g := NewGateway(GatewayConfig{})
		g.Checkpoint(ctx, sampleSession("s-5"))
		g.RecordVote(ctx, battle.Vote{SessionID: "s-5"})
		if _, err := g.LoadCached(ctx, "s-5"); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("LoadCached = %v, want ErrCacheMiss", err)
		}
		if _, err := g.LoadDurable(ctx, "s-5"); !errors.IsNotFound(err) {
			t.Errorf("LoadDurable = %v, want not found", err)
		}
		if err := g.Close(); err != nil {
			t.Errorf("Close = %v", err)
		}
	})
}
