package orchestrator

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/compliance"
	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/evaluator"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/persistence"
	"github.com/Iron-Ham/cypher/internal/vote"
)

// MaxTopicLength bounds the topic of a session.
const MaxTopicLength = 200

// Default participants used when a create request names none.
var (
	DefaultParticipantA = battle.Participant{ID: "mc-a", Side: battle.SideA, DisplayName: "MC Alpha"}
	DefaultParticipantB = battle.Participant{ID: "mc-b", Side: battle.SideB, DisplayName: "MC Beta"}
)

// CreateRequest describes a new session. Zero fields take defaults.
type CreateRequest struct {
	ID           string               `json:"id,omitempty"`
	Topic        string               `json:"topic"`
	Format       battle.Format        `json:"format"`
	Participants *battle.Participants `json:"participants,omitempty"`
}

// liveSession is the in-memory state of one session while it is owned by
// the registry. session and viewers are guarded by mu; votes hold the read
// lock so that none is accepted after the session completes.
type liveSession struct {
	id string

	mu       sync.RWMutex
	session  *battle.Session
	viewers  map[string]struct{}
	finished bool
	evicted  bool

	cfg    Config
	gate   *compliance.Gate
	logger *logging.Logger

	ended     atomic.Bool
	endReason atomic.Value // string
	done      chan struct{}
	closeOnce sync.Once
}

func (ls *liveSession) stop(reason string) {
	ls.endReason.CompareAndSwap(nil, reason)
	ls.ended.Store(true)
	ls.closeOnce.Do(func() { close(ls.done) })
}

func (ls *liveSession) stopped() bool {
	return ls.ended.Load()
}

func (ls *liveSession) reason() string {
	if v, ok := ls.endReason.Load().(string); ok {
		return v
	}
	return ""
}

// Registry owns the live sessions of the process.
type Registry struct {
	deps Dependencies

	mu       sync.RWMutex
	cfg      Config
	gate     *compliance.Gate
	sessions map[string]*liveSession

	wg     conc.WaitGroup
	closed atomic.Bool
}

// NewRegistry creates a Registry. deps.Generator is required.
func NewRegistry(cfg Config, deps Dependencies) (*Registry, error) {
	if deps.Generator == nil {
		return nil, errors.Wrap(errors.ErrNotConfigured, "generator is required")
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid default format")
	}
	if cfg.MaxSessionLifetime <= 0 {
		cfg.MaxSessionLifetime = DefaultConfig().MaxSessionLifetime
	}
	if deps.Logger == nil {
		deps.Logger = logging.NopLogger()
	}
	if deps.Gate == nil {
		deps.Gate = compliance.NewGate(nil, compliance.GateConfig{}, deps.Logger)
	}
	if deps.Evaluator == nil {
		deps.Evaluator = evaluator.New(nil, 0, deps.Logger)
	}
	if deps.Gateway == nil {
		deps.Gateway = persistence.NewGateway(persistence.GatewayConfig{
			Store:  persistence.NewMemoryStore(),
			Cache:  persistence.NewMemoryCache(),
			Logger: deps.Logger,
		})
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = event.NewBroadcaster(event.NewBus(deps.Logger), deps.Logger)
	}
	if deps.Ledger == nil {
		deps.Ledger = vote.NewLedger(vote.Config{
			Dedup:    persistence.NewMemoryCache(),
			TTL:      cfg.MaxSessionLifetime,
			Emitter:  deps.Broadcaster,
			Recorder: deps.Gateway,
			Logger:   deps.Logger,
		})
	}

	return &Registry{
		deps:     deps,
		cfg:      cfg,
		gate:     deps.Gate,
		sessions: make(map[string]*liveSession),
	}, nil
}

// Broadcaster returns the broadcaster sessions emit through.
func (r *Registry) Broadcaster() *event.Broadcaster {
	return r.deps.Broadcaster
}

// Reconfigure replaces the pacing settings and the compliance gate used by
// sessions created from now on. Running sessions keep what they captured,
// except that votes cast from now on get dedup keys with the new lifetime.
// A nil gate keeps the current one.
func (r *Registry) Reconfigure(cfg Config, gate *compliance.Gate) error {
	if err := cfg.Format.Validate(); err != nil {
		return err
	}
	if cfg.MaxSessionLifetime <= 0 {
		cfg.MaxSessionLifetime = DefaultConfig().MaxSessionLifetime
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	r.deps.Ledger.SetTTL(cfg.MaxSessionLifetime)
	if gate != nil {
		r.gate = gate
	}
	r.deps.Logger.Info("registry reconfigured",
		"turn_interval", cfg.TurnInterval.String(),
		"round_interval", cfg.RoundInterval.String(),
		"threshold", r.gate.Config().Threshold,
		"max_attempts", r.gate.Config().MaxAttempts)
	return nil
}

// Config returns the settings new sessions capture.
func (r *Registry) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

func (r *Registry) lookup(id string) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

// LiveCount returns the number of sessions currently held in memory.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Create registers a new pending session.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*battle.Session, error) {
	if r.closed.Load() {
		return nil, errors.Wrap(errors.ErrSessionInactive, "registry is shut down")
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, errors.NewValidationError("topic cannot be empty").WithField("topic")
	}
	if len(topic) > MaxTopicLength {
		return nil, errors.NewValidationError("topic is too long").WithField("topic").WithValue(len(topic))
	}

	r.mu.RLock()
	cfg := r.cfg
	gate := r.gate
	r.mu.RUnlock()

	format := mergeFormat(req.Format, cfg.Format)
	if err := format.Validate(); err != nil {
		return nil, err
	}
	participants, err := resolveParticipants(req.Participants)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	s := &battle.Session{
		ID:           id,
		Status:       battle.StatusPending,
		Topic:        topic,
		Format:       format,
		Participants: participants,
		Turns:        []battle.Turn{},
		CreatedAt:    time.Now().UTC(),
	}
	ls := &liveSession{
		id:      id,
		session: s,
		viewers: make(map[string]struct{}),
		cfg:     cfg,
		gate:    gate,
		logger:  r.deps.Logger.WithSession(id),
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	if _, exists := r.sessions[id]; exists {
		r.mu.Unlock()
		return nil, errors.NewValidationError("session already exists").WithField("id").WithValue(id)
	}
	r.sessions[id] = ls
	r.mu.Unlock()

	snapshot := s.Clone()
	r.deps.Gateway.Checkpoint(ctx, snapshot)
	ls.logger.Info("session created",
		"topic", topic,
		"turns_per_participant", format.TurnsPerParticipant,
		"turn_order", string(format.TurnOrder),
		"style", string(format.Style))
	return snapshot, nil
}

func mergeFormat(f, defaults battle.Format) battle.Format {
	if f.TurnsPerParticipant == 0 {
		f.TurnsPerParticipant = defaults.TurnsPerParticipant
	}
	if f.BarsPerTurn == 0 {
		f.BarsPerTurn = defaults.BarsPerTurn
	}
	if f.TurnOrder == "" {
		f.TurnOrder = defaults.TurnOrder
	}
	if f.Style == "" {
		f.Style = defaults.Style
	}
	return f
}

func resolveParticipants(p *battle.Participants) (battle.Participants, error) {
	out := battle.Participants{A: DefaultParticipantA, B: DefaultParticipantB}
	if p == nil {
		return out, nil
	}
	out.A = fillParticipant(p.A, DefaultParticipantA)
	out.B = fillParticipant(p.B, DefaultParticipantB)
	if out.A.ID == out.B.ID {
		return battle.Participants{}, errors.NewValidationError("participants must have distinct ids").
			WithField("participants").WithValue(out.A.ID)
	}
	if out.A.Profile.Temperature < 0 || out.A.Profile.Temperature > 2 ||
		out.B.Profile.Temperature < 0 || out.B.Profile.Temperature > 2 {
		return battle.Participants{}, errors.NewValidationError("temperature must be between 0 and 2").
			WithField("participants.profile.temperature")
	}
	return out, nil
}

func fillParticipant(p, def battle.Participant) battle.Participant {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = def.ID
	}
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		p.DisplayName = def.DisplayName
	}
	p.Side = def.Side
	return p
}

// Start hands a pending session to its scheduler and returns immediately.
// Starting an active or completed session is a no-op.
func (r *Registry) Start(ctx context.Context, id string) error {
	ls, ok := r.lookup(id)
	if !ok {
		return r.absent(ctx, id)
	}

	ls.mu.Lock()
	if ls.session.Status != battle.StatusPending {
		ls.mu.Unlock()
		return nil
	}
	ls.session.Status = battle.StatusActive
	ls.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	r.wg.Go(func() { r.run(runCtx, ls) })
	ls.logger.Info("session started")
	return nil
}

// absent resolves a command for a session that is not live: sessions that
// completed earlier are a no-op, anything else is not found.
func (r *Registry) absent(ctx context.Context, id string) error {
	if _, err := r.load(ctx, id); err != nil {
		return err
	}
	return nil
}

// End force-terminates a session. An active session is stopped at its next
// checkpoint; a pending one completes immediately. Ending a completed
// session is a no-op.
func (r *Registry) End(ctx context.Context, id string) error {
	ls, ok := r.lookup(id)
	if !ok {
		return r.absent(ctx, id)
	}

	ls.mu.Lock()
	status := ls.session.Status
	if status == battle.StatusPending {
		// Claim the session so a concurrent Start cannot launch a scheduler.
		ls.session.Status = battle.StatusCompleted
	}
	ls.mu.Unlock()

	switch status {
	case battle.StatusPending:
		ls.stop(ReasonEnded)
		r.finish(ctx, ls, endForced, ls.reason())
	case battle.StatusActive:
		ls.stop(ReasonEnded)
		ls.logger.Info("session end requested")
	}
	return nil
}

// Get returns a snapshot of the session from memory, then the cache, then
// the durable store.
func (r *Registry) Get(ctx context.Context, id string) (*battle.Session, error) {
	if ls, ok := r.lookup(id); ok {
		return r.snapshot(ls), nil
	}
	return r.load(ctx, id)
}

func (r *Registry) load(ctx context.Context, id string) (*battle.Session, error) {
	if s, err := r.deps.Gateway.LoadCached(ctx, id); err == nil {
		return s, nil
	}
	s, err := r.deps.Gateway.LoadDurable(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		r.deps.Logger.WithSession(id).Warn("load session failed", "error", err.Error())
		return nil, errors.NewNotFoundError("session", id).WithCause(errors.Join(errors.ErrSessionNotFound, err))
	}
	return s, nil
}

func (r *Registry) snapshot(ls *liveSession) *battle.Session {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	s := ls.session.Clone()
	if !ls.finished {
		s.Tally = r.deps.Ledger.Tally(s.ID)
	}
	s.ViewerCount = len(ls.viewers)
	return s
}

// AddViewer registers an observer and returns the viewer count. Adding the
// same observer twice counts once.
func (r *Registry) AddViewer(ctx context.Context, id, observerID string) (int, error) {
	return r.updateViewers(ctx, id, observerID, true)
}

// RemoveViewer unregisters an observer and returns the viewer count.
// Removing an unknown observer is a no-op.
func (r *Registry) RemoveViewer(ctx context.Context, id, observerID string) (int, error) {
	return r.updateViewers(ctx, id, observerID, false)
}

func (r *Registry) updateViewers(ctx context.Context, id, observerID string, add bool) (int, error) {
	if strings.TrimSpace(observerID) == "" {
		return 0, errors.NewValidationError("observer id cannot be empty").WithField("observer_id")
	}
	ls, ok := r.lookup(id)
	if !ok {
		s, err := r.load(ctx, id)
		if err != nil {
			return 0, err
		}
		return s.ViewerCount, nil
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	if add {
		ls.viewers[observerID] = struct{}{}
	} else {
		delete(ls.viewers, observerID)
	}
	ls.session.ViewerCount = len(ls.viewers)
	return ls.session.ViewerCount, nil
}

// RecordVote counts a viewer's vote for one round of an active session.
func (r *Registry) RecordVote(ctx context.Context, v battle.Vote) (vote.Receipt, error) {
	ls, ok := r.lookup(v.SessionID)
	if !ok {
		if _, err := r.load(ctx, v.SessionID); err != nil {
			return vote.Receipt{}, err
		}
		return vote.Receipt{}, errors.NewSessionError("status completed", errors.ErrSessionInactive).WithSessionID(v.SessionID)
	}

	ls.mu.RLock()
	defer ls.mu.RUnlock()

	if ls.session.Status != battle.StatusActive {
		return vote.Receipt{}, errors.NewSessionError("status "+string(ls.session.Status), errors.ErrSessionInactive).
			WithSessionID(v.SessionID)
	}
	if rounds := ls.session.Format.Rounds(); v.TurnGroupIndex > rounds {
		return vote.Receipt{}, errors.NewValidationError("turn group index is out of range").
			WithField("turn_group_index").WithValue(v.TurnGroupIndex)
	}
	return r.deps.Ledger.RecordVote(ctx, v)
}

// Subscribe returns the event stream of a live session. The channel closes
// after session_end is delivered or when cancel is called.
func (r *Registry) Subscribe(id string, buffer int) (<-chan event.Event, func(), error) {
	ls, ok := r.lookup(id)
	if !ok {
		return nil, nil, errors.NewNotFoundError("live session", id).WithCause(errors.ErrSessionNotFound)
	}

	ls.mu.RLock()
	defer ls.mu.RUnlock()
	if ls.evicted {
		return nil, nil, errors.Wrap(errors.ErrSessionInactive, "session is completed")
	}
	ch, cancel := r.deps.Broadcaster.Subscribe(id, buffer)
	return ch, cancel, nil
}

// Wait blocks until every scheduler goroutine has exited.
func (r *Registry) Wait() {
	r.wg.Wait()
}

// Shutdown ends every live session and waits for the schedulers to exit or
// ctx to expire. New sessions are refused afterwards.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.closed.Store(true)

	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		if ls, ok := r.lookup(id); ok {
			ls.endReason.CompareAndSwap(nil, ReasonShutdown)
		}
		if err := r.End(ctx, id); err != nil && !errors.IsNotFound(err) {
			r.deps.Logger.WithSession(id).Warn("end session on shutdown failed", "error", err.Error())
		}
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrTimeout, "waiting for sessions to end")
	}
}
