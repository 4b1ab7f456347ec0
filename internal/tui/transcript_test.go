package tui

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/event"
)

func TestTranscript_Plain(t *testing.T) {
	tr := NewTranscript(nil, false, 0)
	if tr.Width != DefaultWidth {
		t.Errorf("Width = %d, want %d", tr.Width, DefaultWidth)
	}

	tr.Format(event.Event{Payload: event.SessionStart{
		Topic:  "pizza",
		Format: battle.Format{TurnsPerParticipant: 3, TurnOrder: battle.OrderAlternating},
		Participants: battle.Participants{
			A: battle.Participant{ID: "a", Side: battle.SideA, DisplayName: "Lefty"},
			B: battle.Participant{ID: "b", Side: battle.SideB},
		},
	}})

	tests := []struct {
		name   string
		ev     event.Event
		want   string
		wantOK bool
	}{
		{"round", event.Event{Payload: event.RoundStart{RoundIndex: 2}}, "ROUND 2", true},
		{"silent audio", event.Event{Payload: event.AudioReady{TurnIndex: 1}}, "", false},
		{"audio", event.Event{Payload: event.AudioReady{TurnIndex: 1, AudioRef: "x.mp3"}}, "  audio: x.mp3", true},
		{"round end", event.Event{Payload: event.RoundEnd{RoundIndex: 2}}, "", true},
		{"unknown payload", event.Event{Payload: 42}, "", false},
		{"winner without name", event.Event{Payload: event.SessionEnd{Winner: "B", Source: battle.SourceAdjudicator,
			Scores: battle.Scores{A: 6, B: 8.5}, Rationale: "tighter rhymes"}},
			"WINNER: B  (adjudicator, A 6.0 / B 8.5)\ntighter rhymes", true},
		{"degraded", event.Event{Payload: event.SessionEnd{Winner: "A", Source: battle.SourceDegraded, Degraded: true}},
			"WINNER: Lefty  (degraded, A 0.0 / B 0.0)  degraded", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.Format(tt.ev)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Format() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTranscript_WrapsVerses(t *testing.T) {
	tr := NewTranscript(nil, false, 24)
	block, _ := tr.Format(event.Event{Payload: event.TurnGenerated{
		TurnIndex: 1,
		Side:      battle.SideA,
		Content:   battle.Content{Text: "one two three four five six seven eight nine ten", ComplianceScore: 1},
	}})

	lines := strings.Split(block, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected the verse to wrap, got %q", block)
	}
	for _, line := range lines[1:] {
		if len(line) > 22 {
			t.Errorf("line %q exceeds the wrap width", line)
		}
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %q should be indented", line)
		}
	}
}
