package tui

import "github.com/charmbracelet/bubbles/key"

// deviceKeyMap defines key bindings for the device screen
type deviceKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Scan   key.Binding
	Manual key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k deviceKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Manual, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k deviceKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Scan},
		{k.Manual, k.Help, k.Quit},
	}
}

// manualKeyMap defines key bindings for manual address entry
type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k manualKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k manualKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

func newDeviceKeyMap() deviceKeyMap {
	return deviceKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Scan: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "scan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual address"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func newManualKeyMap() manualKeyMap {
	return manualKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "scan"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
