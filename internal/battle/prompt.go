package battle

// Prompt is the generation context for one turn. History always carries every
// prior turn of the session, not just the current round, so later verses can
// answer earlier ones.
type Prompt struct {
	SessionID string
	Topic     string
	Style     Style
	Bars      int
	Round     int
	Rounds    int
	TurnIndex int
	Speaker   Participant
	Opponent  Participant
	History   []Turn
	Attempt   int
}

// LastOpponentVerse returns the most recent verse by the opponent, if any.
func (p Prompt) LastOpponentVerse() (Turn, bool) {
	for i := len(p.History) - 1; i >= 0; i-- {
		if p.History[i].Side == p.Opponent.Side {
			return p.History[i], true
		}
	}
	return Turn{}, false
}

// Transcript is the adjudication input: the full ordered history plus the
// verses grouped per participant.
type Transcript struct {
	SessionID    string
	Topic        string
	Participants Participants
	Turns        []Turn
	VersesA      []string
	VersesB      []string
	Tally        Tally
}

// NewTranscript builds a transcript from a session snapshot.
func NewTranscript(s *Session) Transcript {
	t := Transcript{
		SessionID:    s.ID,
		Topic:        s.Topic,
		Participants: s.Participants,
		Turns:        append([]Turn(nil), s.Turns...),
		Tally:        s.Tally,
	}
	for _, turn := range s.Turns {
		if turn.Side == SideA {
			t.VersesA = append(t.VersesA, turn.Content.Text)
		} else {
			t.VersesB = append(t.VersesB, turn.Content.Text)
		}
	}
	return t
}
