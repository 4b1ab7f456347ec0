package event

import (
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// Type identifies the kind of a session event.
type Type string

// Session event types, in the order a normal session emits them.
const (
	TypeSessionStart  Type = "session_start"
	TypeRoundStart    Type = "round_start"
	TypeTurnGenerated Type = "turn_generated"
	TypeAudioReady    Type = "audio_ready"
	TypeRoundEnd      Type = "round_end"
	TypeVoteUpdate    Type = "vote_update"
	TypeSessionEnd    Type = "session_end"
)

// Event is one sequenced notification for a session's observers.
// Sequence starts at 1 and increases by exactly one per event within a session.
type Event struct {
	SessionID string    `json:"session_id"`
	Sequence  uint64    `json:"sequence_number"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Terminal reports whether no further events follow this one.
func (e Event) Terminal() bool {
	return e.Type == TypeSessionEnd
}

// SessionStart is the payload of session_start.
type SessionStart struct {
	Topic        string              `json:"topic"`
	Format       battle.Format       `json:"format"`
	Participants battle.Participants `json:"participants"`
}

// RoundStart is the payload of round_start.
type RoundStart struct {
	RoundIndex int            `json:"round_index"`
	Order      [2]battle.Side `json:"order"`
}

// TurnGenerated is the payload of turn_generated.
type TurnGenerated struct {
	RoundIndex    int            `json:"round_index"`
	TurnIndex     int            `json:"turn_index"`
	ParticipantID string         `json:"participant_id"`
	Side          battle.Side    `json:"side"`
	Content       battle.Content `json:"content"`
}

// AudioReady is the payload of audio_ready. AudioRef is empty when synthesis
// failed or is disabled.
type AudioReady struct {
	RoundIndex int    `json:"round_index"`
	TurnIndex  int    `json:"turn_index"`
	AudioRef   string `json:"audio_ref"`
}

// RoundEnd is the payload of round_end.
type RoundEnd struct {
	RoundIndex int `json:"round_index"`
}

// VoteUpdate is the payload of vote_update.
type VoteUpdate struct {
	TurnGroupIndex int          `json:"turn_group_index"`
	Choice         battle.Side  `json:"choice"`
	Tally          battle.Tally `json:"tally"`
}

// SessionEnd is the payload of session_end.
type SessionEnd struct {
	Winner    string              `json:"winner"`
	Scores    battle.Scores       `json:"scores"`
	Rationale string              `json:"rationale"`
	Source    battle.ResultSource `json:"source"`
	Tally     battle.Tally        `json:"tally"`
	Degraded  bool                `json:"degraded,omitempty"`
	Reason    string              `json:"reason,omitempty"`
}
