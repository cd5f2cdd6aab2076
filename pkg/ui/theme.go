package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors and base styles shared by the tree, detail pane,
// status bar and help overlay.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor

	// Selected marks the selected branch.
	Selected lipgloss.Style
	// Cursor styles the gutter marker of the row under the cursor.
	Cursor lipgloss.Style
	// Base is the default text style.
	Base lipgloss.Style
}

// DefaultTheme returns the Dracula-flavored theme used by tnav.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#f57c00", Dark: "#F1FA8C"},
		Muted:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#F8F8F2"})
	t.Selected = r.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#50FA7B"})
	t.Cursor = r.NewStyle().Bold(true).Foreground(t.Primary)
	return t
}
