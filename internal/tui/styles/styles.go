package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/cypher/internal/battle"
)

// Styles is the set of lipgloss styles the transcript and battle view draw
// with, derived from one palette.
type Styles struct {
	Palette *ColorPalette

	Title   lipgloss.Style
	Round   lipgloss.Style
	SideA   lipgloss.Style
	SideB   lipgloss.Style
	Verse   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Winner  lipgloss.Style

	// Header and status bar of the interactive view
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	HelpKey   lipgloss.Style
	HelpBar   lipgloss.Style
}

// New builds styles from a palette. A nil palette selects the default.
func New(p *ColorPalette) *Styles {
	if p == nil {
		p = DefaultPalette()
	}
	return &Styles{
		Palette: p,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),
		Round: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Text).
			Background(p.Border).
			Padding(0, 1),
		SideA: lipgloss.NewStyle().Bold(true).Foreground(p.SideA),
		SideB: lipgloss.NewStyle().Bold(true).Foreground(p.SideB),
		Verse: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(p.Muted),
		Warning: lipgloss.NewStyle().Foreground(p.Warning),
		Error:   lipgloss.NewStyle().Foreground(p.Error),
		Winner:  lipgloss.NewStyle().Bold(true).Foreground(p.Winner),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Border),
		StatusBar: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Surface).
			Padding(0, 1),
		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Winner),
		HelpBar: lipgloss.NewStyle().Foreground(p.Muted),
	}
}

// Side returns the name style of one side.
func (s *Styles) Side(side battle.Side) lipgloss.Style {
	if side == battle.SideB {
		return s.SideB
	}
	return s.SideA
}
