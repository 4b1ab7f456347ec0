package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/tui/styles"
	"github.com/Iron-Ham/cypher/internal/vote"
)

type fakeController struct {
	mu     sync.Mutex
	votes  []battle.Vote
	ended  []string
	reject string
	endErr error
}

func (f *fakeController) End(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, id)
	return f.endErr
}

func (f *fakeController) RecordVote(_ context.Context, v battle.Vote) (vote.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, v)
	if f.reject != "" {
		return vote.Receipt{Reason: f.reject}, nil
	}
	tally := battle.Tally{}
	if v.Choice == battle.SideA {
		tally.A = 1
	} else {
		tally.B = 1
	}
	return vote.Receipt{Accepted: true, Tally: tally}, nil
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// step feeds msg to the model and runs any returned command once, feeding
// its message back, except for stream waits.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if _, isEvent := msg.(eventMsg); isEvent {
		return m
	}
	if out := cmd(); out != nil {
		if _, quit := out.(tea.QuitMsg); quit {
			return m
		}
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func startEvents() []event.Event {
	return []event.Event{
		{Sequence: 1, Type: event.TypeSessionStart, Payload: event.SessionStart{
			Topic:  "tabs vs spaces",
			Format: battle.Format{TurnsPerParticipant: 2, TurnOrder: battle.OrderFixed},
			Participants: battle.Participants{
				A: battle.Participant{ID: "a", Side: battle.SideA, DisplayName: "Tabby"},
				B: battle.Participant{ID: "b", Side: battle.SideB, DisplayName: "Spacey"},
			},
		}},
		{Sequence: 2, Type: event.TypeRoundStart, Payload: event.RoundStart{RoundIndex: 1}},
		{Sequence: 3, Type: event.TypeTurnGenerated, Payload: event.TurnGenerated{
			RoundIndex: 1, TurnIndex: 1, Side: battle.SideA,
			Content: battle.Content{Text: "indent with intent", ComplianceScore: 1},
		}},
	}
}

func newTestModel(ctl Controller) Model {
	m := NewModel(ctl, "s1", "voter-1", make(chan event.Event), styles.New(nil))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestModel_AppliesEvents(t *testing.T) {
	m := newTestModel(&fakeController{})
	for _, ev := range startEvents() {
		m = step(t, m, eventMsg(ev))
	}

	if m.topic != "tabs vs spaces" || m.rounds != 2 || m.round != 1 {
		t.Errorf("topic=%q rounds=%d round=%d", m.topic, m.rounds, m.round)
	}
	if len(m.blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3", len(m.blocks))
	}

	view := m.View()
	for _, want := range []string{"tabs vs spaces", "round 1/2", "indent with intent", "vote A"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_Voting(t *testing.T) {
	ctl := &fakeController{}
	m := newTestModel(ctl)

	m = step(t, m, runeKey('a'))
	if m.errorMessage != "no round to vote on" {
		t.Errorf("errorMessage = %q before any round", m.errorMessage)
	}

	for _, ev := range startEvents() {
		m = step(t, m, eventMsg(ev))
	}
	m = step(t, m, runeKey('b'))
	if len(ctl.votes) != 1 {
		t.Fatalf("votes recorded = %d, want 1", len(ctl.votes))
	}
	got := ctl.votes[0]
	if got.SessionID != "s1" || got.VoterID != "voter-1" || got.TurnGroupIndex != 1 || got.Choice != battle.SideB {
		t.Errorf("vote = %+v", got)
	}
	if m.tally.B != 1 || m.infoMessage != "vote counted" {
		t.Errorf("tally=%+v info=%q", m.tally, m.infoMessage)
	}

	m = step(t, m, runeKey('a'))
	if len(ctl.votes) != 1 {
		t.Error("second vote in the same round should not reach the controller")
	}
	if !strings.Contains(m.infoMessage, "already voted B in round 1") {
		t.Errorf("infoMessage = %q", m.infoMessage)
	}
}

func TestModel_VoteRejected(t *testing.T) {
	ctl := &fakeController{reject: vote.ReasonAlreadyVoted}
	m := newTestModel(ctl)
	for _, ev := range startEvents() {
		m = step(t, m, eventMsg(ev))
	}
	m = step(t, m, runeKey('1'))
	if m.errorMessage != "vote rejected: "+vote.ReasonAlreadyVoted {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestModel_EndAndQuit(t *testing.T) {
	t.Run("end then close", func(t *testing.T) {
		ctl := &fakeController{}
		m := newTestModel(ctl)
		m = step(t, m, runeKey('e'))
		m = step(t, m, runeKey('e'))
		if len(ctl.ended) != 1 || ctl.ended[0] != "s1" {
			t.Errorf("ended = %v, want [s1]", ctl.ended)
		}

		m = step(t, m, eventMsg(event.Event{Type: event.TypeSessionEnd, Payload: event.SessionEnd{
			Winner: battle.Tie, Source: battle.SourceVotes, Reason: "ended",
		}}))
		m = step(t, m, streamClosedMsg{})
		if !m.closed || m.Result() == nil {
			t.Fatal("model should hold the result after the stream closes")
		}
		if !strings.Contains(m.View(), "finished: tie") {
			t.Error("status should show the result")
		}

		_, cmd := m.Update(runeKey('q'))
		if cmd == nil {
			t.Fatal("q after close should quit")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("q after close should return tea.Quit")
		}
	})

	t.Run("quit while live waits for the stream", func(t *testing.T) {
		ctl := &fakeController{}
		m := newTestModel(ctl)
		m = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		if !m.quitting || len(ctl.ended) != 1 {
			t.Fatalf("quitting=%v ended=%v", m.quitting, ctl.ended)
		}
		_, cmd := m.Update(streamClosedMsg{})
		if cmd == nil {
			t.Fatal("stream close while quitting should quit")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.Quit")
		}
	})

	t.Run("end failure is reported", func(t *testing.T) {
		ctl := &fakeController{endErr: errors.New("boom")}
		m := newTestModel(ctl)
		m = step(t, m, runeKey('e'))
		if m.ending || !strings.Contains(m.errorMessage, "boom") {
			t.Errorf("ending=%v errorMessage=%q", m.ending, m.errorMessage)
		}
	})
}

func TestModel_LoadingBeforeSize(t *testing.T) {
	m := NewModel(&fakeController{}, "s1", "v", make(chan event.Event), nil)
	if m.View() != "Loading..." {
		t.Errorf("View() = %q", m.View())
	}
	// Events before the first resize are kept and shown afterwards.
	next, _ := m.Update(eventMsg(startEvents()[0]))
	m = next.(Model)
	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m = next.(Model)
	if !strings.Contains(m.View(), "CYPHER: tabs vs spaces") {
		t.Error("transcript should render after the first resize")
	}
}

func TestWaitForEvent(t *testing.T) {
	ch := make(chan event.Event, 1)
	ch <- event.Event{Sequence: 7}
	close(ch)

	if msg, ok := waitForEvent(ch)().(eventMsg); !ok || msg.Sequence != 7 {
		t.Errorf("first message = %#v", msg)
	}
	if _, ok := waitForEvent(ch)().(streamClosedMsg); !ok {
		t.Error("closed stream should yield streamClosedMsg")
	}
}
