package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the watch TUI.
type keyMap struct {
	save    key.Binding
	flush   key.Binding
	offline key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "force save")),
		flush:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "flush queue")),
		offline: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "toggle online")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.save, k.flush, k.offline, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.save, k.flush},
		{k.offline, k.quit},
	}
}
