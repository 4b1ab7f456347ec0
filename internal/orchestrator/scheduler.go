package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/compliance"
	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/evaluator"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/provider"
	"github.com/Iron-Ham/cypher/internal/util"
)

// End reasons recorded on sessions that did not play every turn.
const (
	ReasonEnded    = "ended"
	ReasonShutdown = "shutdown"
	ReasonLifetime = "lifetime_exceeded"
)

type endMode int

const (
	endNormal endMode = iota
	endForced
	endDegraded
)

var tracer = otel.Tracer("github.com/Iron-Ham/cypher/internal/orchestrator")

// run is the scheduler goroutine of one session. It always finishes the
// session, including when play panics.
func (r *Registry) run(ctx context.Context, ls *liveSession) {
	timer := time.AfterFunc(ls.cfg.MaxSessionLifetime, func() {
		ls.logger.Warn("session exceeded its maximum lifetime",
			"max_lifetime", ls.cfg.MaxSessionLifetime.String())
		ls.stop(ReasonLifetime)
	})
	defer timer.Stop()

	ctx, span := tracer.Start(ctx, "battle.session",
		trace.WithAttributes(attribute.String("session.id", ls.id)))
	defer span.End()

	mode, detail := endDegraded, "scheduler exited without a result"
	var catcher panics.Catcher
	catcher.Try(func() { mode, detail = r.play(ctx, ls) })
	if rec := catcher.Recovered(); rec != nil {
		ls.logger.Error("scheduler panicked",
			"panic", fmt.Sprint(rec.Value),
			"stack", string(rec.Stack))
		span.SetStatus(codes.Error, "scheduler panicked")
		mode = endDegraded
		detail = errors.NewSessionError(fmt.Sprintf("panic: %v", rec.Value), errors.ErrSchedulerFault).
			WithSessionID(ls.id).Error()
	}

	r.finish(ctx, ls, mode, detail)
}

// play walks the schedule and reports how the session should end.
func (r *Registry) play(ctx context.Context, ls *liveSession) (endMode, string) {
	s := r.snapshot(ls)
	r.emit(ls, event.TypeSessionStart, event.SessionStart{
		Topic:        s.Topic,
		Format:       s.Format,
		Participants: s.Participants,
	})
	r.deps.Gateway.Checkpoint(ctx, s)

	format := s.Format
	slots := format.Schedule()
	for round := 1; round <= format.Rounds(); round++ {
		if ls.stopped() {
			return endForced, ls.reason()
		}
		logger := ls.logger.WithRound(round)

		r.emit(ls, event.TypeRoundStart, event.RoundStart{
			RoundIndex: round,
			Order:      format.TurnOrder.RoundOrder(round),
		})

		for _, slot := range slots[(round-1)*2 : round*2] {
			if ls.stopped() {
				return endForced, ls.reason()
			}
			if !r.playTurn(ctx, ls, slot) {
				return endForced, ls.reason()
			}
			if !slot.Last && !r.pause(ls, ls.cfg.TurnInterval) {
				return endForced, ls.reason()
			}
		}

		// Every round, the last included, stays open for votes.
		if !r.pause(ls, ls.cfg.RoundInterval) {
			return endForced, ls.reason()
		}
		r.emit(ls, event.TypeRoundEnd, event.RoundEnd{RoundIndex: round})
		logger.Info("round complete")
	}
	return endNormal, ""
}

// playTurn produces, screens, broadcasts and persists one turn. It returns
// false when the session was ended while the turn was in flight.
func (r *Registry) playTurn(ctx context.Context, ls *liveSession, slot battle.Slot) bool {
	prompt := r.prompt(ls, slot)
	logger := ls.logger.WithRound(slot.Round).WithParticipant(prompt.Speaker.ID)

	ctx, span := tracer.Start(ctx, "battle.turn", trace.WithAttributes(
		attribute.Int("turn.index", slot.Index),
		attribute.Int("round.index", slot.Round),
		attribute.String("turn.side", string(slot.Side)),
	))
	defer span.End()

	started := time.Now()
	fallbacks := make(map[int]bool)
	first, fallback := r.generate(ctx, ls, prompt)
	fallbacks[1] = fallback

	outcome := r.screen(ctx, ls, first, func(ctx context.Context, attempt int) (string, error) {
		if ls.stopped() {
			return "", errors.ErrCanceled
		}
		p := prompt
		p.Attempt = attempt
		text, fallback := r.generate(ctx, ls, p)
		fallbacks[attempt] = fallback
		return text, nil
	})
	if ls.stopped() {
		logger.Info("turn discarded, session is ending", "turn_index", slot.Index)
		return false
	}

	content := battle.Content{
		Text:                 outcome.Text,
		ComplianceScore:      outcome.Verdict.Score,
		GeneratedAtMs:        started.UnixMilli(),
		GenerationDurationMs: time.Since(started).Milliseconds(),
		Attempts:             outcome.Attempts,
		Fallback:             fallbacks[outcome.Chosen],
	}
	if outcome.Flagged {
		content.Violations = outcome.Verdict.Violations
		logger.Warn("turn accepted with violations",
			"turn_index", slot.Index,
			"score", outcome.Verdict.Score,
			"violations", len(outcome.Verdict.Violations))
	}

	turn := battle.Turn{
		Index:         slot.Index,
		Round:         slot.Round,
		ParticipantID: prompt.Speaker.ID,
		Side:          slot.Side,
		Content:       content,
	}
	r.appendTurn(ls, turn)
	r.emit(ls, event.TypeTurnGenerated, event.TurnGenerated{
		RoundIndex:    slot.Round,
		TurnIndex:     slot.Index,
		ParticipantID: turn.ParticipantID,
		Side:          turn.Side,
		Content:       turn.Content,
	})

	if ref := r.synthesize(ctx, ls, turn); ref != "" {
		r.attachAudio(ls, slot.Index, ref)
		turn.Content.AudioRef = ref
	}
	r.emit(ls, event.TypeAudioReady, event.AudioReady{
		RoundIndex: slot.Round,
		TurnIndex:  slot.Index,
		AudioRef:   turn.Content.AudioRef,
	})

	r.deps.Gateway.SaveTurn(ctx, ls.id, turn)
	r.deps.Gateway.Checkpoint(ctx, r.snapshot(ls))

	logger.Info("turn complete",
		"turn_index", slot.Index,
		"attempts", content.Attempts,
		"fallback", content.Fallback,
		"preview", util.Preview(content.Text, 60))
	return !ls.stopped()
}

// prompt builds the generation context from the full history so far.
func (r *Registry) prompt(ls *liveSession, slot battle.Slot) battle.Prompt {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	s := ls.session
	return battle.Prompt{
		SessionID: s.ID,
		Topic:     s.Topic,
		Style:     s.Format.Style,
		Bars:      s.Format.BarsPerTurn,
		Round:     slot.Round,
		Rounds:    s.Format.Rounds(),
		TurnIndex: slot.Index,
		Speaker:   s.Participants.Get(slot.Side),
		Opponent:  s.Participants.Get(slot.Side.Opponent()),
		History:   append([]battle.Turn(nil), s.Turns...),
		Attempt:   1,
	}
}

// generate returns the generated verse, or the fallback verse and true when
// generation fails, times out or returns nothing.
func (r *Registry) generate(ctx context.Context, ls *liveSession, p battle.Prompt) (string, bool) {
	ctx, span := tracer.Start(ctx, "battle.generate",
		trace.WithAttributes(attribute.Int("generate.attempt", p.Attempt)))
	defer span.End()

	text, err := util.CallWithTimeout(ctx, "generation", ls.cfg.GenerationTimeout, func(ctx context.Context) (string, error) {
		return r.deps.Generator.Generate(ctx, p)
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.ErrEmptyOutput
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		ls.logger.WithRound(p.Round).WithParticipant(p.Speaker.ID).Warn("generation failed, using fallback verse",
			"turn_index", p.TurnIndex,
			"attempt", p.Attempt,
			"error", err.Error())
		return provider.FallbackVerse(p.Speaker.DisplayName, p.Topic), true
	}
	return strings.TrimSpace(text), false
}

func (r *Registry) screen(ctx context.Context, ls *liveSession, first string, regenerate compliance.RegenerateFunc) compliance.Outcome {
	ctx, span := tracer.Start(ctx, "battle.screen")
	defer span.End()

	outcome := ls.gate.Pass(ctx, first, regenerate)
	span.SetAttributes(
		attribute.Int("screen.attempts", outcome.Attempts),
		attribute.Float64("screen.score", outcome.Verdict.Score),
		attribute.Bool("screen.flagged", outcome.Flagged),
	)
	return outcome
}

// synthesize returns the audio reference for a turn, or "" when synthesis
// is disabled or fails.
func (r *Registry) synthesize(ctx context.Context, ls *liveSession, turn battle.Turn) string {
	if r.deps.Synthesizer == nil {
		return ""
	}
	ctx, span := tracer.Start(ctx, "battle.synthesize")
	defer span.End()

	ref, err := util.CallWithTimeout(ctx, "audio synthesis", ls.cfg.AudioTimeout, func(ctx context.Context) (string, error) {
		return r.deps.Synthesizer.Synthesize(ctx, ls.id, turn.Index, turn.Content.Text)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		ls.logger.WithRound(turn.Round).Warn("audio synthesis failed",
			"turn_index", turn.Index,
			"error", err.Error())
		return ""
	}
	return ref
}

func (r *Registry) appendTurn(ls *liveSession, turn battle.Turn) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.session.Turns = append(ls.session.Turns, turn)
}

func (r *Registry) attachAudio(ls *liveSession, index int, ref string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i := range ls.session.Turns {
		if ls.session.Turns[i].Index == index {
			ls.session.Turns[i].Content.AudioRef = ref
			return
		}
	}
}

// pause waits d or until the session is ended, reporting whether the
// session may continue.
func (r *Registry) pause(ls *liveSession, d time.Duration) bool {
	if d <= 0 {
		return !ls.stopped()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return !ls.stopped()
	case <-ls.done:
		return false
	}
}

func (r *Registry) emit(ls *liveSession, typ event.Type, payload any) event.Event {
	return r.deps.Broadcaster.Emit(ls.id, typ, payload)
}

// finish completes the session exactly once: it computes the result, emits
// session_end, writes the final checkpoint and evicts the session.
func (r *Registry) finish(ctx context.Context, ls *liveSession, mode endMode, detail string) {
	ls.mu.Lock()
	if ls.finished {
		ls.mu.Unlock()
		return
	}
	ls.finished = true
	ls.session.Status = battle.StatusCompleted
	ls.session.Tally = r.deps.Ledger.Tally(ls.id)
	s := ls.session.Clone()
	ls.mu.Unlock()

	result := r.result(ctx, ls, s, mode, detail)
	ended := time.Now().UTC()

	ls.mu.Lock()
	ls.session.Result = &result
	ls.session.EndedAt = &ended
	ls.session.Degraded = mode == endDegraded
	if mode != endNormal {
		ls.session.EndReason = detail
	}
	final := ls.session.Clone()
	final.ViewerCount = len(ls.viewers)
	ls.mu.Unlock()

	r.emit(ls, event.TypeSessionEnd, event.SessionEnd{
		Winner:    result.Winner,
		Scores:    result.Scores,
		Rationale: result.Rationale,
		Source:    result.Source,
		Tally:     final.Tally,
		Degraded:  final.Degraded,
		Reason:    final.EndReason,
	})
	r.deps.Gateway.Checkpoint(ctx, final)
	r.evict(ls)

	ls.logger.Info("session completed",
		"winner", result.Winner,
		"source", string(result.Source),
		"turns", len(final.Turns),
		"degraded", final.Degraded,
		"reason", final.EndReason)
}

func (r *Registry) result(ctx context.Context, ls *liveSession, s *battle.Session, mode endMode, detail string) battle.Result {
	switch mode {
	case endForced:
		return evaluator.FromVotes(s.Tally, "session ended early; decided by audience vote")
	case endDegraded:
		return evaluator.Degraded(s.Tally, detail)
	}

	var result battle.Result
	if rec := panics.Try(func() { result = r.deps.Evaluator.Evaluate(ctx, s) }); rec != nil {
		ls.logger.Error("evaluator panicked", "panic", fmt.Sprint(rec.Value))
		return evaluator.FromVotes(s.Tally, "evaluation failed; decided by audience vote")
	}
	return result
}

// evict releases a finished session from memory. Observers still subscribed
// have already received session_end; their channels are closed here.
func (r *Registry) evict(ls *liveSession) {
	ls.mu.Lock()
	ls.evicted = true
	r.deps.Broadcaster.Forget(ls.id)
	ls.mu.Unlock()

	r.deps.Ledger.Forget(ls.id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[ls.id] == ls {
		delete(r.sessions, ls.id)
	}
}
