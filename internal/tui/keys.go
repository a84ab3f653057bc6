package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Complete key.Binding
	Approve  key.Binding
	Reopen   key.Binding
	Cycle    key.Binding
	History  key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Left:     key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("←/h", "column")),
		Right:    key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("→/l", "column")),
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Approve:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
		Reopen:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reopen")),
		Cycle:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "next status")),
		History:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "history")),
		Back:     key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Complete, k.Approve, k.Reopen, k.Cycle, k.History, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down},
		{k.Complete, k.Approve, k.Reopen, k.Cycle},
		{k.History, k.Back, k.Help, k.Quit},
	}
}
