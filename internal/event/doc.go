// Package event sequences and fans out battle session events.
//
// Every event a session produces passes through [Broadcaster.Emit], which
// assigns the next per-session sequence number (starting at 1, no gaps) and
// delivers the event, in order, to the in-process [Bus] and to any channel
// subscribers such as websocket observers.
//
// # Main Types
//
//   - [Event]: a sequenced notification carrying one of the payload types
//   - [Broadcaster]: per-session sequencing and subscriber channels
//   - [Bus]: synchronous pub-sub dispatcher for in-process listeners
//
// # Event Types
//
// A normal session emits session_start, then per round: round_start, one
// turn_generated and one audio_ready per turn, round_end. vote_update events
// interleave whenever votes are accepted. session_end is always last.
//
// # Thread Safety
//
// All types are safe for concurrent use. Ordering is guaranteed within a
// session only.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	bus.SubscribeAll(func(e event.Event) {
//	    logger.Debug("event", "type", string(e.Type), "seq", e.Sequence)
//	})
//
//	b := event.NewBroadcaster(bus, logger)
//	ch, cancel := b.Subscribe(sessionID, 0)
//	defer cancel()
//	b.Emit(sessionID, event.TypeRoundStart, event.RoundStart{RoundIndex: 1})
package event
