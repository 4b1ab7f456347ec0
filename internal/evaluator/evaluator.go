// Package evaluator produces the final result of a battle session.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/util"
)

// Adjudicator judges a completed transcript. The returned text must contain
// a JSON object with winner, scores and rationale.
type Adjudicator interface {
	Adjudicate(ctx context.Context, t battle.Transcript) (string, error)
}

// DefaultTimeout bounds a single adjudication call.
const DefaultTimeout = 20 * time.Second

// Evaluator turns a session transcript into a Result. It always returns a
// result: adjudication failures fall back to the vote tally.
type Evaluator struct {
	adjudicator Adjudicator
	timeout     time.Duration
	logger      *logging.Logger
}

// New creates an Evaluator. A nil adjudicator decides by votes alone.
func New(adjudicator Adjudicator, timeout time.Duration, logger *logging.Logger) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Evaluator{adjudicator: adjudicator, timeout: timeout, logger: logger}
}

// Evaluate judges s. The session's Tally must be current.
func (e *Evaluator) Evaluate(ctx context.Context, s *battle.Session) battle.Result {
	if e.adjudicator == nil {
		return FromVotes(s.Tally, "decided by audience vote")
	}
	if len(s.Turns) == 0 {
		return FromVotes(s.Tally, "no verses were delivered; decided by audience vote")
	}

	logger := e.logger.WithSession(s.ID)
	transcript := battle.NewTranscript(s)

	raw, err := util.CallWithTimeout(ctx, "adjudication", e.timeout, func(ctx context.Context) (string, error) {
		return e.adjudicator.Adjudicate(ctx, transcript)
	})
	if err != nil {
		logger.Warn("adjudication failed, falling back to votes", "error", err.Error())
		return FromVotes(s.Tally, "adjudicator unavailable; decided by audience vote")
	}

	result, err := ParseVerdict(raw)
	if err != nil {
		logger.Warn("adjudication verdict unreadable, falling back to votes", "error", err.Error())
		return FromVotes(s.Tally, "adjudicator verdict unreadable; decided by audience vote")
	}

	logger.Info("session adjudicated", "winner", result.Winner)
	return result
}

type verdict struct {
	Winner    string        `json:"winner"`
	Scores    verdictScores `json:"scores"`
	Rationale string        `json:"rationale"`
}

type verdictScores struct {
	A *float64 `json:"A"`
	B *float64 `json:"B"`
}

// ParseVerdict extracts the JSON verdict object from adjudicator output.
// Surrounding prose and code fences are ignored. If the winner field is
// missing or invalid it is derived from the scores.
func ParseVerdict(raw string) (battle.Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return battle.Result{}, errors.NewValidationError("verdict contains no JSON object").WithCause(errors.ErrEmptyOutput)
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &v); err != nil {
		return battle.Result{}, fmt.Errorf("decode verdict: %w", err)
	}
	if v.Scores.A == nil || v.Scores.B == nil {
		return battle.Result{}, errors.NewValidationError("verdict is missing scores").WithField("scores")
	}

	result := battle.Result{
		Scores:    battle.Scores{A: *v.Scores.A, B: *v.Scores.B},
		Rationale: strings.TrimSpace(v.Rationale),
		Source:    battle.SourceAdjudicator,
	}

	switch w := strings.ToLower(strings.TrimSpace(v.Winner)); w {
	case "a":
		result.Winner = string(battle.SideA)
	case "b":
		result.Winner = string(battle.SideB)
	case battle.Tie:
		result.Winner = battle.Tie
	default:
		result.Winner = byScores(result.Scores)
	}
	return result, nil
}

func byScores(s battle.Scores) string {
	switch {
	case s.A > s.B:
		return string(battle.SideA)
	case s.B > s.A:
		return string(battle.SideB)
	default:
		return battle.Tie
	}
}

// FromVotes derives a deterministic result from the vote tally alone.
// Scores are each side's share of the votes; an empty tally is an even tie.
func FromVotes(t battle.Tally, rationale string) battle.Result {
	return battle.Result{
		Winner:    t.Leader(),
		Scores:    voteShares(t),
		Rationale: fmt.Sprintf("%s (A %d, B %d)", rationale, t.A, t.B),
		Source:    battle.SourceVotes,
	}
}

// Degraded builds the result of a session aborted by a fatal scheduler error.
func Degraded(t battle.Tally, reason string) battle.Result {
	r := FromVotes(t, "session aborted: "+reason)
	r.Source = battle.SourceDegraded
	return r
}

func voteShares(t battle.Tally) battle.Scores {
	total := t.A + t.B
	if total == 0 {
		return battle.Scores{A: 0.5, B: 0.5}
	}
	return battle.Scores{
		A: float64(t.A) / float64(total),
		B: float64(t.B) / float64(total),
	}
}
