package ui

import "github.com/charmbracelet/bubbles/key"

// TreeKeyMap defines the tree view key bindings.
type TreeKeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Select       key.Binding
	ToggleExpand key.Binding
	Right        key.Binding
	Left         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	PageDown     key.Binding
	PageUp       key.Binding
	ExpandAll    key.Binding
	CollapseAll  key.Binding
	Filter       key.Binding
	ClearFilter  key.Binding
}

// DefaultTreeKeyMap returns the default tree bindings.
func DefaultTreeKeyMap() TreeKeyMap {
	return TreeKeyMap{
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		ToggleExpand: key.NewBinding(key.WithKeys(" ", "space", "tab"), key.WithHelp("space/tab", "toggle")),
		Right:        key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand / child")),
		Left:         key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse / parent")),
		Top:          key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:       key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		PageDown:     key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "page down")),
		PageUp:       key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "page up")),
		ExpandAll:    key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "expand all")),
		CollapseAll:  key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
		Filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		ClearFilter:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear filter")),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k TreeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.ToggleExpand, k.Filter}
}

// FullHelp returns every binding, grouped for the help overlay.
func (k TreeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PageDown, k.PageUp},
		{k.Select, k.ToggleExpand, k.Right, k.Left, k.ExpandAll, k.CollapseAll},
		{k.Filter, k.ClearFilter},
	}
}
