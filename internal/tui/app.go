package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/cypher/internal/event"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
}

// New creates a new TUI application
func New(model Model) *App {
	return &App{model: model}
}

// Run shows the battle until the user quits or ctx is cancelled, and returns
// the session_end payload if it arrived.
func (a *App) Run(ctx context.Context) (*event.SessionEnd, error) {
	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, err := a.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if m, ok := final.(Model); ok {
		return m.Result(), err
	}
	return nil, err
}
