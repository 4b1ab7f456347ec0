package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/tui/styles"
	"github.com/Iron-Ham/cypher/internal/util"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

// Transcript turns session events into printable blocks. Styling is only
// applied when Color is set.
type Transcript struct {
	Styles *styles.Styles
	Color  bool
	Width  int

	participants battle.Participants
}

// NewTranscript returns a transcript formatter.
func NewTranscript(s *styles.Styles, color bool, width int) *Transcript {
	if s == nil {
		s = styles.New(nil)
	}
	if width <= 20 {
		width = DefaultWidth
	}
	return &Transcript{Styles: s, Color: color, Width: width}
}

// Participants returns the participants announced by session_start.
func (t *Transcript) Participants() battle.Participants {
	return t.participants
}

func (t *Transcript) style(s lipgloss.Style, text string) string {
	if !t.Color {
		return text
	}
	return s.Render(text)
}

// Name returns the styled display name of a side.
func (t *Transcript) Name(side battle.Side) string {
	label := t.participants.Get(side).DisplayName
	if label == "" {
		label = string(side)
	}
	return t.style(t.Styles.Side(side), label)
}

// Format renders one event. ok is false for events without visible output.
func (t *Transcript) Format(ev event.Event) (block string, ok bool) {
	switch p := ev.Payload.(type) {
	case event.SessionStart:
		t.participants = p.Participants
		return t.style(t.Styles.Title, "CYPHER: "+p.Topic) + "\n" +
			fmt.Sprintf("%s vs %s, %d rounds, %s order\n",
				t.Name(battle.SideA), t.Name(battle.SideB), p.Format.Rounds(), p.Format.TurnOrder), true
	case event.RoundStart:
		return t.style(t.Styles.Round, fmt.Sprintf("ROUND %d", p.RoundIndex)), true
	case event.TurnGenerated:
		return t.verse(p), true
	case event.AudioReady:
		if p.AudioRef == "" {
			return "", false
		}
		return t.style(t.Styles.Muted, "  audio: "+p.AudioRef), true
	case event.RoundEnd:
		return "", true
	case event.VoteUpdate:
		return t.style(t.Styles.Muted, fmt.Sprintf("  votes A %d : %d B", p.Tally.A, p.Tally.B)), true
	case event.SessionEnd:
		return t.Result(p), true
	}
	return "", false
}

func (t *Transcript) verse(p event.TurnGenerated) string {
	var b strings.Builder
	b.WriteString(t.Name(p.Side))
	b.WriteString(t.style(t.Styles.Muted, fmt.Sprintf("  turn %d, score %.2f", p.TurnIndex, p.Content.ComplianceScore)))
	if p.Content.Fallback {
		b.WriteString(t.style(t.Styles.Warning, "  fallback"))
	}
	if p.Content.Flagged() {
		categories := make([]string, 0, len(p.Content.Violations))
		for _, v := range p.Content.Violations {
			categories = append(categories, v.Category)
		}
		b.WriteString(t.style(t.Styles.Warning, "  flagged: "+strings.Join(categories, ", ")))
	}
	b.WriteString("\n")

	body := ansi.Wordwrap(strings.Join(util.Lines(p.Content.Text), "\n"), t.Width-4, "")
	if t.Color {
		b.WriteString(t.Styles.Verse.Render(body))
	} else {
		for _, line := range strings.Split(body, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Result renders the final outcome of a session.
func (t *Transcript) Result(p event.SessionEnd) string {
	var b strings.Builder
	if p.Winner == battle.Tie {
		b.WriteString(t.style(t.Styles.Winner, "RESULT: tie"))
	} else {
		b.WriteString(t.style(t.Styles.Winner, "WINNER: ") + t.Name(battle.Side(p.Winner)))
	}
	b.WriteString(t.style(t.Styles.Muted, fmt.Sprintf("  (%s, A %.1f / B %.1f)", p.Source, p.Scores.A, p.Scores.B)))
	if p.Degraded {
		b.WriteString(t.style(t.Styles.Warning, "  degraded"))
	}
	if p.Reason != "" {
		b.WriteString(t.style(t.Styles.Muted, "  ended: "+p.Reason))
	}
	if p.Rationale != "" {
		b.WriteString("\n" + ansi.Wordwrap(p.Rationale, t.Width, ""))
	}
	return b.String()
}
