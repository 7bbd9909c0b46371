package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding
	Next key.Binding
	Prev key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Views
	Dashboard key.Binding
	Analytics key.Binding
	Labels    key.Binding
	Sidebar   key.Binding
	Collapse  key.Binding

	// Dashboard
	Fetch   key.Binding
	Retry   key.Binding
	Cancel  key.Binding
	Manager key.Binding
	Dates   key.Binding
	Filter  key.Binding
	Reload  key.Binding

	// Customer CRUD
	New    key.Binding
	Edit   key.Binding
	Delete key.Binding

	// Google
	Google key.Binding
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
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "next page"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "prev page"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Dashboard: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "dashboard"),
		),
		Analytics: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "analytics"),
		),
		Labels: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "labels"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle sidebar"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("B"),
			key.WithHelp("B", "collapse sidebar"),
		),
		Fetch: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fetch metrics"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry fetch"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop polling"),
		),
		Manager: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "select account"),
		),
		Dates: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "date range"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload customers"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Google: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "connect google"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Fetch, k.Filter,
		k.Quit, k.Help, k.Command,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Prev, k.Next, k.Select, k.Back, k.Quit},
		{k.Dashboard, k.Analytics, k.Labels, k.Sidebar, k.Collapse, k.Command, k.Help},
		{k.Fetch, k.Retry, k.Cancel, k.Manager, k.Dates, k.Filter, k.Reload},
		{k.New, k.Edit, k.Delete, k.Google},
	}
}
