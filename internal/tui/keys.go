package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Add       key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	Search    key.Binding
	Completed key.Binding
	Sync      key.Binding
	Refresh   key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Toggle:    key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "done/undo")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Completed: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "show completed")),
		Sync:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.Search, k.Completed, k.Sync, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh},
		{k.Add, k.Toggle, k.Delete},
		{k.Search, k.Completed, k.Sync, k.Quit},
	}
}
