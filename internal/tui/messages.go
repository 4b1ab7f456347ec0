package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/cypher/internal/event"
	"github.com/Iron-Ham/cypher/internal/vote"
)

// eventMsg carries one session event into the update loop
type eventMsg event.Event

// streamClosedMsg is sent once the event channel closes
type streamClosedMsg struct{}

// voteResultMsg reports the outcome of a vote cast from the keyboard
type voteResultMsg struct {
	receipt vote.Receipt
	err     error
}

// endedMsg reports the outcome of an early end request
type endedMsg struct {
	err error
}

// waitForEvent blocks on the next event of the stream.
func waitForEvent(events <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}
