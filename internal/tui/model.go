package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/tui/styles"
	"github.com/Iron-Ham/cypher/internal/util"
	"github.com/Iron-Ham/cypher/internal/vote"
)

// chromeHeight is the number of lines taken by the header (2), the status
// bar (1) and the help bar (1).
const chromeHeight = 4

// Controller is the part of the session registry the view drives.
type Controller interface {
	End(ctx context.Context, id string) error
	RecordVote(ctx context.Context, v battle.Vote) (vote.Receipt, error)
}

// Model is the bubbletea model of a live battle: a scrolling transcript,
// the running tally and keyboard voting for the current round.
type Model struct {
	ctl       Controller
	sessionID string
	voterID   string
	events    <-chan event.Event

	styles     *styles.Styles
	transcript *Transcript
	keys       keyMap
	help       help.Model
	viewport   viewport.Model
	spinner    spinner.Model

	width  int
	height int
	ready  bool

	blocks []string
	topic  string
	rounds int
	round  int
	tally  battle.Tally
	voted  map[int]battle.Side
	result *event.SessionEnd

	closed   bool
	ending   bool
	quitting bool

	infoMessage  string
	errorMessage string
}

// NewModel returns a model that renders events from a session subscription
// and casts votes as voterID.
func NewModel(ctl Controller, sessionID, voterID string, events <-chan event.Event, s *styles.Styles) Model {
	if s == nil {
		s = styles.New(nil)
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Title
	return Model{
		ctl:        ctl,
		sessionID:  sessionID,
		voterID:    voterID,
		events:     events,
		styles:     s,
		transcript: NewTranscript(s, true, DefaultWidth),
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		voted:      make(map[int]battle.Side),
	}
}

// Result returns the session_end payload once it has arrived.
func (m Model) Result() *event.SessionEnd {
	return m.result
}

// Init starts listening for events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.transcript.Width = max(msg.Width, 24)
		m.help.Width = msg.Width
		m.refresh(true)
		return m, nil

	case eventMsg:
		m.apply(event.Event(msg))
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		m.closed = true
		if m.quitting {
			return m, tea.Quit
		}
		m.infoMessage = "battle over, press q to quit"
		return m, nil

	case voteResultMsg:
		switch {
		case msg.err != nil:
			m.errorMessage = msg.err.Error()
		case !msg.receipt.Accepted:
			m.errorMessage = "vote rejected: " + msg.receipt.Reason
		default:
			m.errorMessage = ""
			m.infoMessage = "vote counted"
			m.tally = msg.receipt.Tally
		}
		return m, nil

	case endedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("failed to end battle: %v", msg.err)
			m.ending = false
		}
		return m, nil

	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.closed {
			return m, tea.Quit
		}
		m.quitting = true
		return m.requestEnd()

	case key.Matches(msg, m.keys.End):
		return m.requestEnd()

	case key.Matches(msg, m.keys.VoteA):
		return m.castVote(battle.SideA)

	case key.Matches(msg, m.keys.VoteB):
		return m.castVote(battle.SideB)

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) requestEnd() (tea.Model, tea.Cmd) {
	if m.closed || m.ending {
		return m, nil
	}
	m.ending = true
	m.infoMessage = "ending battle..."
	ctl, id := m.ctl, m.sessionID
	return m, func() tea.Msg {
		return endedMsg{err: ctl.End(context.Background(), id)}
	}
}

func (m Model) castVote(side battle.Side) (tea.Model, tea.Cmd) {
	if m.closed || m.round == 0 {
		m.errorMessage = "no round to vote on"
		return m, nil
	}
	if prev, ok := m.voted[m.round]; ok {
		m.infoMessage = fmt.Sprintf("already voted %s in round %d", prev, m.round)
		return m, nil
	}
	m.voted[m.round] = side

	ctl := m.ctl
	v := battle.Vote{
		SessionID:      m.sessionID,
		TurnGroupIndex: m.round,
		VoterID:        m.voterID,
		Choice:         side,
	}
	return m, func() tea.Msg {
		receipt, err := ctl.RecordVote(context.Background(), v)
		return voteResultMsg{receipt: receipt, err: err}
	}
}

func (m *Model) apply(ev event.Event) {
	switch p := ev.Payload.(type) {
	case event.SessionStart:
		m.topic = p.Topic
		m.rounds = p.Format.Rounds()
	case event.RoundStart:
		m.round = p.RoundIndex
	case event.VoteUpdate:
		m.tally = p.Tally
	case event.SessionEnd:
		m.tally = p.Tally
		m.result = &p
	}

	if block, ok := m.transcript.Format(ev); ok {
		m.blocks = append(m.blocks, block)
		m.refresh(false)
	}
}

// refresh re-renders the transcript, following the tail unless the user
// has scrolled up.
func (m *Model) refresh(force bool) {
	if !m.ready {
		return
	}
	follow := force || m.viewport.AtBottom()
	m.viewport.SetContent(strings.Join(m.blocks, "\n"))
	if follow {
		m.viewport.GotoBottom()
	}
}

// View renders the model
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderStatus(),
		m.styles.HelpBar.Render(m.help.ShortHelpView(m.keys.ShortHelp())),
	)
}

func (m Model) renderHeader() string {
	title := "CYPHER"
	if m.topic != "" {
		title += ": " + m.topic
	}
	parts := []string{title}
	if m.rounds > 0 {
		parts = append(parts, fmt.Sprintf("round %d/%d", m.round, m.rounds))
	}
	parts = append(parts, fmt.Sprintf("%s %d : %d %s",
		m.transcript.Name(battle.SideA), m.tally.A, m.tally.B, m.transcript.Name(battle.SideB)))
	return m.styles.Header.Width(m.width).Render(util.TruncateANSI(strings.Join(parts, "  |  "), m.width))
}

func (m Model) renderStatus() string {
	var status string
	switch {
	case m.result != nil && m.result.Winner == battle.Tie:
		status = "finished: tie"
	case m.result != nil:
		status = "finished: " + m.transcript.participants.Get(battle.Side(m.result.Winner)).DisplayName + " wins"
	default:
		status = m.spinner.View() + " live"
	}
	if m.errorMessage != "" {
		status += "  " + m.styles.Error.Render(m.errorMessage)
	} else if m.infoMessage != "" {
		status += "  " + m.styles.Muted.Render(m.infoMessage)
	}
	return m.styles.StatusBar.Width(m.width).Render(status)
}
