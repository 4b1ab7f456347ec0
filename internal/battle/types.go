package battle

import (
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/cypher/internal/errors"
)

// Status represents the lifecycle state of a battle session.
type Status string

const (
	// StatusPending indicates the session was created but not started.
	StatusPending Status = "pending"

	// StatusActive indicates a scheduler loop owns the session.
	StatusActive Status = "active"

	// StatusCompleted indicates all turns finished or the session was force-ended.
	StatusCompleted Status = "completed"
)

// Side identifies one of the two participants.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Tie is the winner value when neither side prevails.
const Tie = "tie"

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// ParseSide parses a vote choice or winner value. It accepts "A"/"B" in any case.
func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(SideA):
		return SideA, nil
	case string(SideB):
		return SideB, nil
	default:
		return "", errors.NewValidationError("choice must be A or B").
			WithField("choice").WithValue(v).WithCause(errors.ErrInvalidChoice)
	}
}

// Profile holds the generation parameters for one participant.
type Profile struct {
	Model       string  `json:"model,omitempty"`
	Persona     string  `json:"persona,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Participant is one MC. Immutable for the lifetime of a session.
type Participant struct {
	ID          string  `json:"id"`
	Side        Side    `json:"side"`
	DisplayName string  `json:"display_name"`
	Profile     Profile `json:"profile"`
}

// Participants holds both sides of a battle.
type Participants struct {
	A Participant `json:"a"`
	B Participant `json:"b"`
}

// Get returns the participant on the given side.
func (p Participants) Get(side Side) Participant {
	if side == SideB {
		return p.B
	}
	return p.A
}

// Violation is one detected compliance category.
type Violation struct {
	Category string  `json:"category"`
	Match    string  `json:"match,omitempty"`
	Penalty  float64 `json:"penalty"`
}

// Content is the generated payload of a turn.
type Content struct {
	Text                 string      `json:"text"`
	ComplianceScore      float64     `json:"compliance_score"`
	Violations           []Violation `json:"violations,omitempty"`
	AudioRef             string      `json:"audio_ref,omitempty"`
	GeneratedAtMs        int64       `json:"generated_at_ms"`
	GenerationDurationMs int64       `json:"generation_duration_ms"`
	Attempts             int         `json:"attempts"`
	Fallback             bool        `json:"fallback,omitempty"`
}

// Flagged reports whether the content was force-accepted with violations.
func (c Content) Flagged() bool {
	return len(c.Violations) > 0
}

// Turn is one participant's verse.
type Turn struct {
	Index         int     `json:"index"`
	Round         int     `json:"round"`
	ParticipantID string  `json:"participant_id"`
	Side          Side    `json:"side"`
	Content       Content `json:"content"`
}

// Tally counts accepted votes per side.
type Tally struct {
	A int `json:"A"`
	B int `json:"B"`
}

// Add returns the tally with one more vote for side.
func (t Tally) Add(side Side) Tally {
	if side == SideA {
		t.A++
	} else {
		t.B++
	}
	return t
}

// Leader returns "A", "B" or Tie.
func (t Tally) Leader() string {
	switch {
	case t.A > t.B:
		return string(SideA)
	case t.B > t.A:
		return string(SideB)
	default:
		return Tie
	}
}

// Scores are the per-side adjudication scores.
type Scores struct {
	A float64 `json:"A"`
	B float64 `json:"B"`
}

// ResultSource records how a result was produced.
type ResultSource string

const (
	SourceAdjudicator ResultSource = "adjudicator"
	SourceVotes       ResultSource = "votes"
	SourceDegraded    ResultSource = "degraded"
)

// Result is the final verdict of a completed session.
type Result struct {
	Winner    string       `json:"winner"`
	Scores    Scores       `json:"scores"`
	Rationale string       `json:"rationale"`
	Source    ResultSource `json:"source"`
}

// Vote is one viewer's choice for a turn group (round).
type Vote struct {
	SessionID      string    `json:"session_id"`
	TurnGroupIndex int       `json:"turn_group_index"`
	VoterID        string    `json:"voter_id"`
	Choice         Side      `json:"choice"`
	CastAt         time.Time `json:"cast_at"`
}

// Validate checks the vote fields that do not depend on session state.
func (v Vote) Validate() error {
	if strings.TrimSpace(v.SessionID) == "" {
		return errors.NewValidationError("session id cannot be empty").WithField("session_id")
	}
	if strings.TrimSpace(v.VoterID) == "" {
		return errors.NewValidationError("voter id cannot be empty").WithField("voter_id")
	}
	if v.TurnGroupIndex < 1 {
		return errors.NewValidationError("turn group index must be positive").
			WithField("turn_group_index").WithValue(v.TurnGroupIndex)
	}
	if _, err := ParseSide(string(v.Choice)); err != nil {
		return err
	}
	return nil
}

// Session is one battle.
type Session struct {
	ID           string       `json:"id"`
	Status       Status       `json:"status"`
	Topic        string       `json:"topic"`
	Format       Format       `json:"format"`
	Participants Participants `json:"participants"`
	Turns        []Turn       `json:"turns"`
	Tally        Tally        `json:"vote_tally"`
	ViewerCount  int          `json:"viewer_count"`
	CreatedAt    time.Time    `json:"created_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`
	Result       *Result      `json:"result,omitempty"`
	Degraded     bool         `json:"degraded,omitempty"`
	EndReason    string       `json:"end_reason,omitempty"`
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		c.Turns[i] = t
		if t.Content.Violations != nil {
			c.Turns[i].Content.Violations = append([]Violation(nil), t.Content.Violations...)
		}
	}
	if s.EndedAt != nil {
		ended := *s.EndedAt
		c.EndedAt = &ended
	}
	if s.Result != nil {
		result := *s.Result
		c.Result = &result
	}
	return &c
}

// TurnsBy returns the turns spoken by side, in order.
func (s *Session) TurnsBy(side Side) []Turn {
	var turns []Turn
	for _, t := range s.Turns {
		if t.Side == side {
			turns = append(turns, t)
		}
	}
	return turns
}

// String implements fmt.Stringer for log lines.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s, %d/%d turns)", s.ID, s.Status, len(s.Turns), s.Format.TotalTurns())
}
