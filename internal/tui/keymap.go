package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	VoteA key.Binding
	VoteB key.Binding
	Up    key.Binding
	Down  key.Binding
	End   key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		VoteA: key.NewBinding(key.WithKeys("a", "1"), key.WithHelp("a", "vote A")),
		VoteB: key.NewBinding(key.WithKeys("b", "2"), key.WithHelp("b", "vote B")),
		Up:    key.NewBinding(key.WithKeys("up", "k", "pgup"), key.WithHelp("↑", "scroll")),
		Down:  key.NewBinding(key.WithKeys("down", "j", "pgdown"), key.WithHelp("↓", "scroll")),
		End:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end battle")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.VoteA, k.VoteB, k.Up, k.Down, k.End, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
