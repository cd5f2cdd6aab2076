package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// AppKeyMap holds the bindings handled by the host model.
type AppKeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Copy   key.Binding
	Reload key.Binding
	Detail key.Binding
}

// DefaultAppKeyMap returns the default host bindings.
func DefaultAppKeyMap() AppKeyMap {
	return AppKeyMap{
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Copy:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy path")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Detail: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "detail pane")),
	}
}

// combinedKeys presents tree and host bindings as one help.KeyMap.
type combinedKeys struct {
	tree TreeKeyMap
	app  AppKeyMap
}

func (k combinedKeys) ShortHelp() []key.Binding {
	return append(k.tree.ShortHelp(), k.app.Help, k.app.Quit)
}

func (k combinedKeys) FullHelp() [][]key.Binding {
	return append(k.tree.FullHelp(), []key.Binding{
		k.app.Copy, k.app.Reload, k.app.Detail, k.app.Help, k.app.Quit,
	})
}

// RenderHelp renders the key reference modal.
func RenderHelp(keys help.KeyMap, theme Theme) string {
	r := theme.Renderer

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	h := help.New()
	h.ShowAll = true
	h.Styles.FullKey = r.NewStyle().Foreground(theme.Highlight)
	h.Styles.FullDesc = r.NewStyle().Foreground(theme.Subtext)
	h.Styles.FullSeparator = r.NewStyle().Foreground(theme.Border)

	body := h.View(keys)
	footer := footerStyle.Render("Click an icon to toggle, a label to select │ Esc to close")
	ruleWidth := max(lipgloss.Width(body), lipgloss.Width(footer))

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", ruleWidth)))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(footer)

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2)

	return modalStyle.Render(b.String())
}
