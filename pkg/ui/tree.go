package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/logging"
	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/state"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

const (
	cursorMarker = "❯ "
	gutterWidth  = 2 // display width of cursorMarker
	ellipsis     = "…"

	minLabelWidth = 8
	defaultHeight = 20
)

// deferredCallbackMsg drains the selection callbacks queued during the
// update that produced it.
type deferredCallbackMsg struct{}

// TreeModel renders the rows of a tree.Flattener and maps keys and mouse
// input onto it.
type TreeModel struct {
	flat      *tree.Flattener
	callbacks *tree.Queue

	rows      []tree.FilteredRow // rows currently on display
	prefixes  []string           // box-drawing prefix per row
	rowsGen   uint64
	rowsQuery string
	synced    bool

	cursor        int
	offset        int // index of the first rendered row
	width, height int

	theme Theme
	icons model.Icons
	keys  TreeKeyMap

	filter    textinput.Model
	filtering bool // filter input has focus
	query     string

	store state.Store
	log   *zap.Logger
}

// NewTreeModel builds the flattener for forest and wraps it. Selection
// callbacks from opts are delivered through the Bubble Tea loop, so any
// Scheduler in opts is replaced.
func NewTreeModel(theme Theme, forest model.Forest, opts tree.Options) (TreeModel, error) {
	queue := &tree.Queue{}
	opts.Scheduler = queue
	flat, err := tree.New(forest, opts)
	if err != nil {
		return TreeModel{}, err
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"

	t := TreeModel{
		flat:      flat,
		callbacks: queue,
		theme:     theme,
		icons:     flat.Options().Icons,
		keys:      DefaultTreeKeyMap(),
		filter:    ti,
		log:       zap.NewNop(),
	}
	t.sync()
	t.cursorToSelection()
	return t, nil
}

// Init delivers callbacks queued by the initial selection.
func (t TreeModel) Init() tea.Cmd {
	return t.deferredCmd()
}

// Update handles input and returns the updated model.
func (t TreeModel) Update(msg tea.Msg) (TreeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case deferredCallbackMsg:
		t.callbacks.Flush()
		return t, nil
	case tea.KeyMsg:
		if t.filtering {
			return t.updateFilter(msg)
		}
		cmd := t.handleKey(msg)
		return t, tea.Batch(cmd, t.deferredCmd())
	case tea.MouseMsg:
		t.handleMouse(msg)
		return t, t.deferredCmd()
	}
	return t, nil
}

func (t *TreeModel) deferredCmd() tea.Cmd {
	if t.callbacks.Len() == 0 {
		return nil
	}
	return func() tea.Msg { return deferredCallbackMsg{} }
}

func (t *TreeModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, t.keys.Up):
		t.MoveUp()
	case key.Matches(msg, t.keys.Down):
		t.MoveDown()
	case key.Matches(msg, t.keys.Select):
		t.SelectCursor()
	case key.Matches(msg, t.keys.ToggleExpand):
		t.ToggleExpand()
	case key.Matches(msg, t.keys.Right):
		t.ExpandOrMoveToChild()
	case key.Matches(msg, t.keys.Left):
		t.CollapseOrJumpToParent()
	case key.Matches(msg, t.keys.Top):
		t.JumpToTop()
	case key.Matches(msg, t.keys.Bottom):
		t.JumpToBottom()
	case key.Matches(msg, t.keys.PageDown):
		t.PageDown()
	case key.Matches(msg, t.keys.PageUp):
		t.PageUp()
	case key.Matches(msg, t.keys.ExpandAll):
		t.ExpandAll()
	case key.Matches(msg, t.keys.CollapseAll):
		t.CollapseAll()
	case key.Matches(msg, t.keys.Filter):
		return t.StartFilter()
	case key.Matches(msg, t.keys.ClearFilter):
		t.ClearFilter()
	}
	return nil
}

func (t TreeModel) updateFilter(msg tea.KeyMsg) (TreeModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		t.ClearFilter()
		return t, nil
	case tea.KeyEnter:
		t.filtering = false
		t.filter.Blur()
		return t, nil
	}
	var cmd tea.Cmd
	t.filter, cmd = t.filter.Update(msg)
	t.SetFilter(t.filter.Value())
	return t, cmd
}

// handleMouse maps a left click on the icon cell to toggle and a click on
// the label to select. The wheel moves the cursor.
func (t *TreeModel) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		t.MoveUp()
		return
	case tea.MouseButtonWheelDown:
		t.MoveDown()
		return
	}
	if msg.Button != tea.MouseButtonLeft || msg.Action != tea.MouseActionPress {
		return
	}

	t.sync()
	idx, ok := t.rowAt(msg.Y)
	if !ok {
		return
	}
	t.cursor = idx
	row := t.rows[idx]
	iconStart := gutterWidth + runewidth.StringWidth(t.prefixes[idx])
	iconEnd := iconStart + runewidth.StringWidth(t.icons.For(row.Icon))

	switch {
	case msg.X >= iconStart && msg.X < iconEnd && row.Branch.HasChildren():
		t.toggle(row.Branch)
	case msg.X >= iconStart:
		t.flat.OnUserClick(row.Branch)
	}
}

// rowAt returns the index of the row rendered on line y.
func (t *TreeModel) rowAt(y int) (int, bool) {
	line := y - t.headerLines()
	if line < 0 || line >= t.listHeight() {
		return 0, false
	}
	idx := t.offset + line
	if idx >= len(t.rows) {
		return 0, false
	}
	return idx, true
}

// sync refreshes the displayed rows when the flattener or filter changed,
// keeping the cursor on the same branch where possible.
func (t *TreeModel) sync() {
	if t.synced && t.flat.Generation() == t.rowsGen && t.query == t.rowsQuery {
		return
	}

	var keep uint64
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		keep = t.rows[t.cursor].UID
	}

	t.rows = t.flat.Filter(t.query)
	t.prefixes = treePrefixes(t.rows)
	t.rowsGen = t.flat.Generation()
	t.rowsQuery = t.query
	t.synced = true

	if keep != 0 {
		if i := t.indexOf(keep); i >= 0 {
			t.cursor = i
		}
	}
	t.ensureVisible()
}

func (t *TreeModel) indexOf(uid uint64) int {
	for i, r := range t.rows {
		if r.UID == uid {
			return i
		}
	}
	return -1
}

func (t *TreeModel) cursorToSelection() {
	if sel := t.flat.Selected(); sel != nil {
		if i := t.indexOf(sel.UID); i >= 0 {
			t.cursor = i
			t.ensureVisible()
		}
	}
}

// treePrefixes builds the indentation and branch characters for each row.
// Roots get no prefix.
func treePrefixes(rows []tree.FilteredRow) []string {
	hasNext := make([]bool, len(rows))
	seen := make(map[int]bool)
	for i := len(rows) - 1; i >= 0; i-- {
		level := rows[i].Level
		hasNext[i] = seen[level]
		seen[level] = true
		for l := range seen {
			if l > level {
				delete(seen, l)
			}
		}
	}

	out := make([]string, len(rows))
	open := make(map[int]bool) // level -> the ancestor there has siblings below
	var sb strings.Builder
	for i, r := range rows {
		sb.Reset()
		for l := 2; l < r.Level; l++ {
			if open[l] {
				sb.WriteString("│   ")
			} else {
				sb.WriteString("    ")
			}
		}
		if r.Level > 1 {
			if hasNext[i] {
				sb.WriteString("├── ")
			} else {
				sb.WriteString("└── ")
			}
		}
		open[r.Level] = hasNext[i]
		out[i] = sb.String()
	}
	return out
}

// View renders the tree view.
func (t *TreeModel) View() string {
	t.sync()

	var sb strings.Builder
	if header := t.renderHeader(); header != "" {
		sb.WriteString(header)
		sb.WriteString("\n")
	}
	if len(t.rows) == 0 {
		sb.WriteString(t.renderEmptyState())
		return sb.String()
	}

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		sb.WriteString(t.renderRow(i))
		sb.WriteString("\n")
	}
	if len(t.rows) > end-start {
		muted := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)
		sb.WriteString(muted.Render(fmt.Sprintf("  %d/%d", t.cursor+1, len(t.rows))))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *TreeModel) renderHeader() string {
	if t.filtering {
		return t.filter.View()
	}
	if t.query != "" {
		muted := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)
		return muted.Render(fmt.Sprintf("filter: %s (esc to clear)", t.query))
	}
	return ""
}

func (t *TreeModel) renderEmptyState() string {
	muted := t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)
	if t.query != "" {
		return muted.Render("No matching branches.")
	}
	return muted.Render("Nothing to display.")
}

func (t *TreeModel) renderRow(i int) string {
	row := t.rows[i]
	r := t.theme.Renderer
	var sb strings.Builder

	if i == t.cursor {
		sb.WriteString(t.theme.Cursor.Render(cursorMarker))
	} else {
		sb.WriteString(strings.Repeat(" ", gutterWidth))
	}

	prefix := t.prefixes[i]
	sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(prefix))

	icon := t.icons.For(row.Icon)
	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(icon))
	sb.WriteString(" ")

	avail := t.width - gutterWidth - runewidth.StringWidth(prefix) - runewidth.StringWidth(icon) - 1
	if t.width <= 0 {
		avail = len(row.Label)
	}
	if avail < minLabelWidth {
		avail = minLabelWidth
	}
	sb.WriteString(t.styleLabel(row, truncateLabel(row.Label, avail)))
	return sb.String()
}

// styleLabel colors label and highlights the characters that matched the
// filter.
func (t *TreeModel) styleLabel(row tree.FilteredRow, label string) string {
	base := t.theme.Base
	switch {
	case row.Context:
		base = t.theme.Renderer.NewStyle().Foreground(t.theme.Muted)
	case row.Branch == t.flat.Selected():
		base = t.theme.Selected
	}
	if len(row.Matched) == 0 {
		return base.Render(label)
	}

	hit := base.Foreground(t.theme.Highlight).Underline(true)
	matched := make(map[int]bool, len(row.Matched))
	for _, m := range row.Matched {
		matched[m] = true
	}
	limit := len(label)
	if label != row.Label {
		limit -= len(ellipsis)
	}

	var sb strings.Builder
	for i, ch := range label {
		if i < limit && matched[i] {
			sb.WriteString(hit.Render(string(ch)))
		} else {
			sb.WriteString(base.Render(string(ch)))
		}
	}
	return sb.String()
}

// truncateLabel shortens label to maxWidth display cells.
func truncateLabel(label string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(label, maxWidth, ellipsis)
}

func (t *TreeModel) headerLines() int {
	if t.filtering || t.query != "" {
		return 1
	}
	return 0
}

// listHeight is the number of lines available for rows.
func (t *TreeModel) listHeight() int {
	h := t.height
	if h <= 0 {
		h = defaultHeight
	}
	h -= t.headerLines()
	if len(t.rows) > h {
		h-- // position indicator
	}
	if h < 1 {
		h = 1
	}
	return h
}

// visibleRange returns the rows [start, end) that fit the viewport.
func (t *TreeModel) visibleRange() (start, end int) {
	start = t.offset
	end = start + t.listHeight()
	if end > len(t.rows) {
		end = len(t.rows)
	}
	return start, end
}

func (t *TreeModel) ensureVisible() {
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	h := t.listHeight()
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.cursor >= t.offset+h {
		t.offset = t.cursor - h + 1
	}
	if maxOffset := len(t.rows) - h; t.offset > maxOffset {
		t.offset = maxOffset
	}
	if t.offset < 0 {
		t.offset = 0
	}
}

// SetSize updates the available dimensions for the tree view.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.filter.Width = width - 2
	t.ensureVisible()
}

// MoveDown moves the cursor down one row.
func (t *TreeModel) MoveDown() {
	t.moveTo(t.cursor + 1)
}

// MoveUp moves the cursor up one row.
func (t *TreeModel) MoveUp() {
	t.moveTo(t.cursor - 1)
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.moveTo(0)
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	t.sync()
	t.moveTo(len(t.rows) - 1)
}

// PageDown moves the cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.moveTo(t.cursor + t.pageSize())
}

// PageUp moves the cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.moveTo(t.cursor - t.pageSize())
}

func (t *TreeModel) pageSize() int {
	if n := t.listHeight() / 2; n > 0 {
		return n
	}
	return 1
}

func (t *TreeModel) moveTo(i int) {
	t.sync()
	t.cursor = i
	t.ensureVisible()
}

// SelectCursor selects the branch under the cursor, as a label click does.
func (t *TreeModel) SelectCursor() {
	if row, ok := t.CursorRow(); ok {
		t.flat.OnUserClick(row.Branch)
	}
}

// ToggleExpand expands or collapses the branch under the cursor.
func (t *TreeModel) ToggleExpand() {
	if row, ok := t.CursorRow(); ok {
		t.toggle(row.Branch)
	}
}

func (t *TreeModel) toggle(b *model.Branch) {
	if b == nil || !b.HasChildren() {
		return
	}
	t.flat.ToggleExpand(b)
	t.saveState()
	t.sync()
}

func (t *TreeModel) setExpanded(b *model.Branch, expanded bool) {
	t.flat.SetExpanded(b, expanded)
	t.saveState()
	t.sync()
}

// ExpandOrMoveToChild expands a collapsed branch, or moves to the first
// child of an expanded one. Leaves are left alone.
func (t *TreeModel) ExpandOrMoveToChild() {
	row, ok := t.CursorRow()
	if !ok || !row.Branch.HasChildren() {
		return
	}
	if !row.Branch.Expanded {
		t.setExpanded(row.Branch, true)
		return
	}
	if next := t.cursor + 1; next < len(t.rows) && t.rows[next].Level == row.Level+1 {
		t.moveTo(next)
	}
}

// CollapseOrJumpToParent collapses an expanded branch, otherwise moves to
// the parent row.
func (t *TreeModel) CollapseOrJumpToParent() {
	row, ok := t.CursorRow()
	if !ok {
		return
	}
	if row.Branch.HasChildren() && row.Branch.Expanded {
		t.setExpanded(row.Branch, false)
		return
	}
	t.JumpToParent()
}

// JumpToParent moves the cursor to the parent of the current row. Roots
// stay put.
func (t *TreeModel) JumpToParent() {
	row, ok := t.CursorRow()
	if !ok {
		return
	}
	for i := t.cursor - 1; i >= 0; i-- {
		if t.rows[i].Level < row.Level {
			t.moveTo(i)
			return
		}
	}
}

// ExpandAll expands every branch.
func (t *TreeModel) ExpandAll() {
	t.flat.ExpandAll()
	t.saveState()
	t.sync()
}

// CollapseAll collapses every branch.
func (t *TreeModel) CollapseAll() {
	t.flat.CollapseAll()
	t.saveState()
	t.sync()
}

// StartFilter focuses the filter input.
func (t *TreeModel) StartFilter() tea.Cmd {
	t.filtering = true
	t.filter.SetValue(t.query)
	t.filter.CursorEnd()
	return t.filter.Focus()
}

// SetFilter restricts the rows to fuzzy matches of query and their
// ancestors.
func (t *TreeModel) SetFilter(query string) {
	t.query = query
	t.sync()
}

// ClearFilter drops the filter and returns to the plain visible rows.
func (t *TreeModel) ClearFilter() {
	t.filtering = false
	t.filter.Blur()
	t.filter.SetValue("")
	t.SetFilter("")
}

// Filtering reports whether the filter input has focus.
func (t *TreeModel) Filtering() bool {
	return t.filtering
}

// Query returns the active filter query.
func (t *TreeModel) Query() string {
	return t.query
}

// SetStore enables persistence of expand state and applies what was saved.
// A store that fails to load is logged and treated as empty.
func (t *TreeModel) SetStore(ctx context.Context, store state.Store, log *zap.Logger) {
	t.store = store
	t.log = logging.OrNop(log)

	saved, err := store.Load(ctx)
	if err != nil {
		t.log.Warn("loading tree state", zap.Error(err))
	}
	if n := state.Apply(t.flat.Forest(), saved); n > 0 {
		t.flat.Invalidate()
		t.sync()
		t.log.Debug("applied saved tree state", zap.Int("branches", n))
	}
}

// saveState persists expand overrides. Failures only cost the saved view,
// so they are logged and otherwise ignored.
func (t *TreeModel) saveState() {
	if t.store == nil {
		return
	}
	s := state.Capture(t.flat.Forest(), t.flat.Options().ExpandLevel)
	if err := t.store.Save(context.Background(), s); err != nil {
		t.log.Warn("saving tree state", zap.Error(err))
	}
}

// SetForest hands new data to the flattener. It reports whether anything
// changed.
func (t *TreeModel) SetForest(forest model.Forest) (bool, error) {
	changed, err := t.flat.SetForest(forest)
	if err != nil || !changed {
		return changed, err
	}
	t.sync()
	return true, nil
}

// Flattener returns the underlying flattener.
func (t *TreeModel) Flattener() *tree.Flattener {
	return t.flat
}

// Rows returns the rows on display.
func (t *TreeModel) Rows() []tree.FilteredRow {
	t.sync()
	return t.rows
}

// Cursor returns the cursor's row index.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

// CursorRow returns the row under the cursor.
func (t *TreeModel) CursorRow() (tree.FilteredRow, bool) {
	t.sync()
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return tree.FilteredRow{}, false
	}
	return t.rows[t.cursor], true
}

// Selected returns the selected branch, or nil.
func (t *TreeModel) Selected() *model.Branch {
	return t.flat.Selected()
}

// SelectByUID moves the cursor to the row with uid. It returns false when
// the row is not on display.
func (t *TreeModel) SelectByUID(uid uint64) bool {
	t.sync()
	if i := t.indexOf(uid); i >= 0 {
		t.moveTo(i)
		return true
	}
	return false
}

// Keys returns the key bindings.
func (t *TreeModel) Keys() TreeKeyMap {
	return t.keys
}

// Close drops pending selection callbacks.
func (t *TreeModel) Close() {
	t.flat.Close()
}
