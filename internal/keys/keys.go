package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Open the selected notification and mark it read
	Select key.Binding

	// Read state
	MarkRead    key.Binding
	MarkAllRead key.Binding
	Clear       key.Binding

	// Session
	Login  key.Binding
	Logout key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Help toggle
	Help key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark read"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "mark all read"),
		),
		Clear: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "clear all"),
		),
		Login: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "sign in"),
		),
		Logout: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "sign out"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.MarkAllRead,
		k.Clear, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.MarkRead, k.MarkAllRead, k.Clear},
		{k.Login, k.Logout, k.Help},
	}
}
