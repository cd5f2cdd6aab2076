package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/logging"
	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// SplitViewThreshold is the terminal width above which the detail pane is
// shown next to the tree.
const SplitViewThreshold = 100

type focus int

const (
	focusTree focus = iota
	focusDetail
)

// Model is the tnav application: the tree, a detail pane for the selected
// branch, a status bar and a help overlay.
type Model struct {
	tree     TreeModel
	detail   viewport.Model
	renderer *glamour.TermRenderer
	help     help.Model
	keys     AppKeyMap
	theme    Theme
	worker   *BackgroundWorker
	log      *zap.Logger

	// copyText writes to the system clipboard.
	copyText func(string) error

	focused     focus
	isSplitView bool
	showDetails bool // detail pane in narrow layouts
	showHelp    bool
	ready       bool
	width       int
	height      int
	treeWidth   int

	statusMsg     string
	statusIsError bool

	detailUID uint64 // branch currently rendered in the detail pane
	detailGen uint64
}

// NewModel wraps tree in the application shell. worker may be nil when
// reloading is disabled.
func NewModel(theme Theme, tree TreeModel, worker *BackgroundWorker, log *zap.Logger) Model {
	h := help.New()
	h.Styles.ShortKey = theme.Renderer.NewStyle().Foreground(theme.Highlight)
	h.Styles.ShortDesc = theme.Renderer.NewStyle().Foreground(theme.Subtext)

	return Model{
		tree:     tree,
		detail:   viewport.New(0, 0),
		help:     h,
		keys:     DefaultAppKeyMap(),
		theme:    theme,
		worker:   worker,
		log:      logging.OrNop(log),
		copyText: clipboard.WriteAll,
	}
}

func (m Model) Init() tea.Cmd {
	return m.tree.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case ForestReadyMsg:
		changed, err := m.tree.SetForest(msg.Snapshot.Forest)
		switch {
		case err != nil:
			m.setStatus(fmt.Sprintf("Reload rejected: %v", err), true)
		case changed:
			m.setStatus(fmt.Sprintf("Reloaded %d branches", msg.Snapshot.Forest.Count()), false)
		}
		m.updateDetailContent()
		return m, nil

	case ForestErrorMsg:
		m.setStatus(fmt.Sprintf("Reload failed: %v", msg.Err), true)
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.Type == tea.KeyEsc || key.Matches(msg, m.keys.Help, m.keys.Quit) {
				m.showHelp = false
			}
			return m, nil
		}
		if m.tree.Filtering() {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.tree.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			m.copySelectedPath()
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			if m.worker != nil {
				m.worker.ResetHash()
				m.worker.TriggerRefresh()
				m.setStatus("Reloading...", false)
			}
			return m, nil
		case key.Matches(msg, m.keys.Detail):
			m.toggleDetailFocus()
			return m, nil
		}

		if m.focused == focusDetail {
			if msg.Type == tea.KeyEsc {
				m.toggleDetailFocus()
				return m, nil
			}
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		if m.isSplitView && msg.X >= m.treeWidth {
			var cmd tea.Cmd
			m.detail, cmd = m.detail.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.tree, cmd = m.tree.Update(msg)
	cmds = append(cmds, cmd)

	m.updateDetailContent()
	return m, tea.Batch(cmds...)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.isSplitView = width > SplitViewThreshold
	m.ready = true

	bodyHeight := height - 1 // status bar
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	detailWidth := width
	if m.isSplitView {
		m.treeWidth = int(float64(width) * 0.4)
		detailWidth = width - m.treeWidth - 4 // border and padding
	} else {
		m.treeWidth = width
	}
	m.tree.SetSize(m.treeWidth, bodyHeight)
	m.detail.Width = detailWidth
	m.detail.Height = bodyHeight - 2

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(detailWidth),
	)
	if err != nil {
		m.log.Warn("creating markdown renderer", zap.Error(err))
	} else {
		m.renderer = r
	}
	m.detailGen = 0
	m.updateDetailContent()
}

func (m *Model) toggleDetailFocus() {
	if m.isSplitView {
		if m.focused == focusTree {
			m.focused = focusDetail
		} else {
			m.focused = focusTree
		}
		return
	}
	m.showDetails = !m.showDetails
	if m.showDetails {
		m.focused = focusDetail
	} else {
		m.focused = focusTree
	}
}

func (m *Model) setStatus(msg string, isError bool) {
	m.statusMsg = msg
	m.statusIsError = isError
}

// focusBranch is the branch the detail pane and copy act on: the selection,
// or the cursor row when nothing is selected.
func (m *Model) focusBranch() *model.Branch {
	if sel := m.tree.Selected(); sel != nil {
		return sel
	}
	if row, ok := m.tree.CursorRow(); ok {
		return row.Branch
	}
	return nil
}

func (m *Model) copySelectedPath() {
	b := m.focusBranch()
	if b == nil {
		return
	}
	path := m.tree.Flattener().Forest().PathOf(b)
	if err := m.copyText(path); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", path), false)
}

// updateDetailContent re-renders the detail pane when the focused branch or
// the tree changed.
func (m *Model) updateDetailContent() {
	b := m.focusBranch()
	gen := m.tree.Flattener().Generation()
	var uid uint64
	if b != nil {
		uid = b.UID
	}
	if m.detailGen != 0 && uid == m.detailUID && gen == m.detailGen {
		return
	}
	m.detailUID, m.detailGen = uid, gen

	if b == nil {
		m.detail.SetContent("Nothing selected")
		return
	}
	md := detailMarkdown(b, m.tree.Flattener().Forest().PathOf(b))
	if m.renderer == nil {
		m.detail.SetContent(md)
		return
	}
	rendered, err := m.renderer.Render(md)
	if err != nil {
		m.detail.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	m.detail.SetContent(rendered)
}

func detailMarkdown(b *model.Branch, path string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", b.Label))
	sb.WriteString(fmt.Sprintf("`%s`\n\n", path))
	sb.WriteString("| Level | Children | State |\n|---|---|---|\n")
	st := model.IconFor(b).String()
	if b.Selected {
		st += ", selected"
	}
	sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n\n", b.Level, len(b.Children), st))
	if b.Description != "" {
		sb.WriteString(b.Description)
		sb.WriteString("\n\n")
	}
	if b.HasChildren() {
		sb.WriteString("### Children\n")
		for _, c := range b.Children {
			sb.WriteString(fmt.Sprintf("- %s\n", c.Label))
		}
	}
	return sb.String()
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	bodyHeight := m.height - 1
	var body string
	switch {
	case m.showHelp:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			RenderHelp(combinedKeys{tree: m.tree.Keys(), app: m.keys}, m.theme))
	case m.isSplitView:
		r := m.theme.Renderer
		border := r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Border)
		if m.focused == focusDetail {
			border = border.BorderForeground(m.theme.Primary)
		}
		treeView := r.NewStyle().Width(m.treeWidth).Height(bodyHeight).Render(m.tree.View())
		detailView := border.Width(m.detail.Width + 2).Height(bodyHeight - 2).Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, treeView, detailView)
	case m.showDetails:
		body = m.detail.View()
	default:
		body = m.tree.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderFooter())
}

func (m *Model) renderFooter() string {
	r := m.theme.Renderer

	badge := r.NewStyle().
		Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(m.theme.Primary).
		Padding(0, 1).
		Render("tnav")

	statusStyle := r.NewStyle().Foreground(m.theme.Subtext).Padding(0, 1)
	if m.statusIsError {
		statusStyle = statusStyle.Foreground(m.theme.Error)
	}
	status := statusStyle.Render(m.statusMsg)

	count := r.NewStyle().Foreground(m.theme.Secondary).Padding(0, 1).
		Render(fmt.Sprintf("%d rows", len(m.tree.Rows())))

	var keys string
	if m.tree.Filtering() {
		keys = r.NewStyle().Foreground(m.theme.Subtext).Render("enter: apply • esc: clear")
	} else {
		keys = m.help.ShortHelpView(combinedKeys{tree: m.tree.Keys(), app: m.keys}.ShortHelp())
	}

	left := lipgloss.JoinHorizontal(lipgloss.Bottom, badge, status)
	right := lipgloss.JoinHorizontal(lipgloss.Bottom, count, keys)
	remaining := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if remaining < 0 {
		remaining = 0
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, strings.Repeat(" ", remaining), right)
}

// Tree returns the tree component.
func (m Model) Tree() TreeModel {
	return m.tree
}

// StatusMessage returns the status bar message and whether it is an error.
func (m Model) StatusMessage() (string, bool) {
	return m.statusMsg, m.statusIsError
}
