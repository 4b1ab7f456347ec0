package event

import (
	"sync"
	"time"

	"github.com/Iron-Ham/cypher/internal/logging"
)

// DefaultSubscriberBuffer is the channel capacity used when Subscribe is
// given a non-positive buffer.
const DefaultSubscriberBuffer = 64

// MaxSubscriberBuffer caps the channel capacity a subscriber may request.
const MaxSubscriberBuffer = 1024

// Broadcaster assigns per-session sequence numbers and delivers events to
// the Bus and to per-session subscriber channels.
//
// Emit holds the session's stream lock while sequencing and delivering, so
// two concurrent emitters for the same session (the scheduler and the vote
// ledger) can never interleave out of order. Subscribers that fall behind by
// more than their buffer are evicted and their channel closed; they never
// block the emitter.
type Broadcaster struct {
	mu      sync.Mutex
	streams map[string]*stream
	bus     *Bus
	logger  *logging.Logger
	now     func() time.Time
}

type stream struct {
	mu      sync.Mutex
	seq     uint64
	nextSub uint64
	subs    map[uint64]chan Event
}

// NewBroadcaster creates a Broadcaster publishing to bus. bus may be nil.
func NewBroadcaster(bus *Bus, logger *logging.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Broadcaster{
		streams: make(map[string]*stream),
		bus:     bus,
		logger:  logger,
		now:     time.Now,
	}
}

func (b *Broadcaster) stream(sessionID string) *stream {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.streams[sessionID]
	if !ok {
		s = &stream{subs: make(map[uint64]chan Event)}
		b.streams[sessionID] = s
	}
	return s
}

// Emit sequences and delivers one event for sessionID and returns it.
// Bus handlers run synchronously under the session's stream lock and must
// not emit for the same session.
func (b *Broadcaster) Emit(sessionID string, typ Type, payload any) Event {
	s := b.stream(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev := Event{
		SessionID: sessionID,
		Sequence:  s.seq,
		Type:      typ,
		Payload:   payload,
		EmittedAt: b.now().UTC(),
	}

	if b.bus != nil {
		b.bus.Publish(ev)
	}

	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			delete(s.subs, id)
			close(ch)
			b.logger.Warn("evicted slow event subscriber",
				"session_id", sessionID,
				"sequence", ev.Sequence)
		}
	}

	return ev
}

// Subscribe returns a channel receiving every event emitted for sessionID
// after the call, and a cancel function that closes it. The channel is also
// closed when the session is forgotten or the subscriber is evicted.
// Buffers above MaxSubscriberBuffer are clamped.
func (b *Broadcaster) Subscribe(sessionID string, buffer int) (<-chan Event, func()) {
	switch {
	case buffer <= 0:
		buffer = DefaultSubscriberBuffer
	case buffer > MaxSubscriberBuffer:
		buffer = MaxSubscriberBuffer
	}
	s := b.stream(sessionID)

	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	ch := make(chan Event, buffer)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// SubscriberCount returns the number of attached subscriber channels.
func (b *Broadcaster) SubscriberCount(sessionID string) int {
	b.mu.Lock()
	s, ok := b.streams[sessionID]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// LastSequence returns the last sequence number emitted for sessionID.
func (b *Broadcaster) LastSequence(sessionID string) uint64 {
	b.mu.Lock()
	s, ok := b.streams[sessionID]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Forget drops the session's stream and closes its subscribers. Call it
// after the terminal event has been emitted.
func (b *Broadcaster) Forget(sessionID string) {
	b.mu.Lock()
	s, ok := b.streams[sessionID]
	delete(b.streams, sessionID)
	b.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
