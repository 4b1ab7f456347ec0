package evaluator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
)

type adjudicatorFunc func(ctx context.Context, t battle.Transcript) (string, error)

func (f adjudicatorFunc) Adjudicate(ctx context.Context, t battle.Transcript) (string, error) {
	return f(ctx, t)
}

func session(tally battle.Tally) *battle.Session {
	return &battle.Session{
		ID:    "s-1",
		Topic: "cats vs dogs",
		Turns: []battle.Turn{
			{Index: 1, Side: battle.SideA, Content: battle.Content{Text: "a"}},
			{Index: 2, Side: battle.SideB, Content: battle.Content{Text: "b"}},
		},
		Tally: tally,
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantWinner string
		wantErr    bool
	}{
		{"plain", `{"winner":"A","scores":{"A":8,"B":6},"rationale":"sharper"}`, "A", false},
		{"fenced with prose", "Here you go:\n```json\n{\"winner\": \"b\", \"scores\": {\"A\": 5, \"B\": 7}, \"rationale\": \"x\"}\n```", "B", false},
		{"tie", `{"winner":"TIE","scores":{"A":5,"B":5}}`, battle.Tie, false},
		{"winner from scores", `{"winner":"nobody","scores":{"A":3,"B":9}}`, "B", false},
		{"missing scores", `{"winner":"A"}`, "", true},
		{"no json", "A wins", "", true},
		{"broken json", `{"winner": "A", "scores": {`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseVerdict(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVerdict() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if r.Winner != tt.wantWinner {
				t.Errorf("Winner = %q, want %q", r.Winner, tt.wantWinner)
			}
			if r.Source != battle.SourceAdjudicator {
				t.Errorf("Source = %q", r.Source)
			}
		})
	}
}

func TestFromVotes(t *testing.T) {
	tests := []struct {
		tally      battle.Tally
		wantWinner string
		wantA      float64
	}{
		{battle.Tally{A: 3, B: 1}, "A", 0.75},
		{battle.Tally{A: 1, B: 3}, "B", 0.25},
		{battle.Tally{}, battle.Tie, 0.5},
	}

	for _, tt := range tests {
		r := FromVotes(tt.tally, "votes")
		if r.Winner != tt.wantWinner || r.Scores.A != tt.wantA || r.Source != battle.SourceVotes {
			t.Errorf("FromVotes(%+v) = %+v", tt.tally, r)
		}
	}

	d := Degraded(battle.Tally{A: 1}, "panic")
	if d.Source != battle.SourceDegraded || d.Winner != "A" || !strings.Contains(d.Rationale, "panic") {
		t.Errorf("Degraded() = %+v", d)
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("adjudicator verdict", func(t *testing.T) {
		var got battle.Transcript
		e := New(adjudicatorFunc(func(ctx context.Context, tr battle.Transcript) (string, error) {
			got = tr
			return `{"winner":"B","scores":{"A":4,"B":9},"rationale":"B answered every bar"}`, nil
		}), time.Second, nil)

		r := e.Evaluate(context.Background(), session(battle.Tally{A: 10}))
		if r.Winner != "B" || r.Source != battle.SourceAdjudicator {
			t.Errorf("result = %+v", r)
		}
		if len(got.VersesA) != 1 || len(got.VersesB) != 1 {
			t.Errorf("transcript not grouped by participant: %+v", got)
		}
	})

	t.Run("adjudicator error falls back to votes", func(t *testing.T) {
		e := New(adjudicatorFunc(func(ctx context.Context, tr battle.Transcript) (string, error) {
			return "", fmt.Errorf("rate limited")
		}), time.Second, nil)

		r := e.Evaluate(context.Background(), session(battle.Tally{A: 2, B: 5}))
		if r.Winner != "B" || r.Source != battle.SourceVotes {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("adjudicator timeout falls back to votes", func(t *testing.T) {
		e := New(adjudicatorFunc(func(ctx context.Context, tr battle.Transcript) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}), 10*time.Millisecond, nil)

		r := e.Evaluate(context.Background(), session(battle.Tally{}))
		if r.Winner != battle.Tie || r.Source != battle.SourceVotes {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("unreadable verdict falls back to votes", func(t *testing.T) {
		e := New(adjudicatorFunc(func(ctx context.Context, tr battle.Transcript) (string, error) {
			return "I refuse to judge", nil
		}), time.Second, nil)

		r := e.Evaluate(context.Background(), session(battle.Tally{A: 1}))
		if r.Winner != "A" || r.Source != battle.SourceVotes {
			t.Errorf("result = %+v", r)
		}
	})

	t.Run("nil adjudicator uses votes", func(t *testing.T) {
		r := New(nil, 0, nil).Evaluate(context.Background(), session(battle.Tally{B: 1}))
		if r.Winner != "B" || r.Source != battle.SourceVotes {
			t.Errorf("result = %+v", r)
		}
	})
}
