// Package tree turns a forest of branches into a flat list of rows and keeps
// that list in sync with expand/collapse, selection and data changes.
//
// A Flattener is not safe for concurrent use. It is meant to be owned by a
// single UI event loop; deferred selection callbacks are handed to a
// Scheduler which the host drains after each update cycle.
package tree

import (
	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// DefaultExpandLevel is the expand threshold used when Options.ExpandLevel
// is zero: branches with Level < 3 start expanded.
const DefaultExpandLevel = 3

// SelectFunc is called with the newly selected branch.
type SelectFunc func(*model.Branch)

// Options configures a Flattener.
type Options struct {
	// ExpandLevel is the threshold below which branches start expanded.
	ExpandLevel int

	// InitialSelection selects the first branch with this label at setup.
	InitialSelection string

	// Icons are carried for renderers; the flattener itself only deals in
	// model.TreeIcon values.
	Icons model.Icons

	// OnSelect is the tree-wide selection callback. A branch's own
	// OnSelect takes precedence.
	OnSelect SelectFunc

	// Scheduler runs selection callbacks after the current update cycle.
	// When nil, callbacks queue internally until Flush is called.
	Scheduler Scheduler
}

// IDAllocator hands out row identities. Each Flattener owns one, so ids are
// deterministic for a given construction order.
type IDAllocator struct {
	next uint64
}

// Next returns a fresh, non-zero id.
func (a *IDAllocator) Next() uint64 {
	a.next++
	return a.next
}

// Flattener maintains the row list for a forest.
//
// The forest passed to New or SetForest becomes owned by the Flattener: it
// is normalized and its view state (Level, UID, Expanded, Selected) is
// written in place. Callers must not modify it afterwards except through
// the Flattener, or must call Refresh/Invalidate when they do.
type Flattener struct {
	forest   model.Forest
	hash     uint64
	rows     []model.Row
	dirty    bool
	selected *model.Branch

	opts  Options
	ids   IDAllocator
	sched Scheduler
	queue *Queue
	life  *lifetime

	generation uint64
}

// New validates and adopts forest, assigns levels, ids and default expand
// state, applies the initial selection and builds the first row list.
//
// A nil or empty forest returns model.ErrNoTreeData. There is no partial
// result: on error nothing is usable.
//
// The flattener takes ownership of forest and writes Level, UID, Expanded
// and Selected on its branches. Callers must not share a forest between
// flatteners.
func New(forest model.Forest, opts Options) (*Flattener, error) {
	if err := model.Validate(forest); err != nil {
		return nil, err
	}
	if opts.ExpandLevel <= 0 {
		opts.ExpandLevel = DefaultExpandLevel
	}
	opts.Icons = opts.Icons.WithDefaults()

	f := &Flattener{
		opts: opts,
		life: &lifetime{},
	}
	if opts.Scheduler != nil {
		f.sched = opts.Scheduler
	} else {
		f.queue = &Queue{}
		f.sched = f.queue
	}

	model.Normalize(forest)
	hash, err := forest.Hash()
	if err != nil {
		return nil, err
	}
	f.forest = forest
	f.hash = hash
	AssignLevelsAndDefaults(forest, opts.ExpandLevel, &f.ids)
	f.rebuild()

	if opts.InitialSelection != "" {
		f.InitialSelection(opts.InitialSelection)
	}
	return f, nil
}

// AssignLevelsAndDefaults walks forest in pre-order, sets Level (roots are
// 1), gives every branch without an id a fresh one from ids, and sets
// Expanded to Level < expandThreshold, or to the data's explicit expanded
// value when one was given. It resets every branch's expand state, so it
// only runs when a forest is first adopted.
func AssignLevelsAndDefaults(forest model.Forest, expandThreshold int, ids *IDAllocator) {
	var walk func(b *model.Branch, level int)
	walk = func(b *model.Branch, level int) {
		if b == nil {
			return
		}
		initBranch(b, level, expandThreshold, ids)
		for _, child := range b.Children {
			walk(child, level+1)
		}
	}
	for _, root := range forest {
		walk(root, 1)
	}
}

func initBranch(b *model.Branch, level, expandThreshold int, ids *IDAllocator) {
	b.Level = level
	if b.UID == 0 {
		b.UID = ids.Next()
	}
	b.Expanded = level < expandThreshold
	if b.ExpandedOverride != nil {
		b.Expanded = *b.ExpandedOverride
	}
}

// RebuildRows flattens forest into one row per branch, in pre-order. A row
// is visible when every ancestor is expanded. Levels are refreshed from the
// traversal depth as a side effect.
func RebuildRows(forest model.Forest) []model.Row {
	rows := make([]model.Row, 0, len(forest))

	var walk func(b *model.Branch, level int, visible bool)
	walk = func(b *model.Branch, level int, visible bool) {
		if b == nil {
			return
		}
		b.Level = level
		rows = append(rows, model.Row{
			UID:     b.UID,
			Level:   level,
			Branch:  b,
			Label:   b.Label,
			Icon:    model.IconFor(b),
			Visible: visible,
		})
		for _, child := range b.Children {
			walk(child, level+1, visible && b.Expanded)
		}
	}
	for _, root := range forest {
		walk(root, 1, true)
	}
	return rows
}

func (f *Flattener) rebuild() {
	f.rows = RebuildRows(f.forest)
	f.dirty = false
	f.generation++
}

// touch records a mutation that invalidates the row snapshots.
func (f *Flattener) touch() {
	f.dirty = true
	f.generation++
}

// Forest returns the adopted forest.
func (f *Flattener) Forest() model.Forest {
	return f.forest
}

// Options returns the effective options (defaults applied).
func (f *Flattener) Options() Options {
	return f.opts
}

// Generation increases on every change a renderer might need to redraw:
// row rebuilds, expand/collapse, selection and data changes.
func (f *Flattener) Generation() uint64 {
	return f.generation
}

// Rows returns the current row list, rebuilding it first if a mutation made
// through the Flattener has invalidated it. The returned slice is never
// modified afterwards.
func (f *Flattener) Rows() []model.Row {
	if f.dirty {
		f.rebuild()
	}
	return f.rows
}

// VisibleRows returns the rows whose ancestors are all expanded.
func (f *Flattener) VisibleRows() []model.Row {
	rows := f.Rows()
	visible := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if r.Visible {
			visible = append(visible, r)
		}
	}
	return visible
}

// Invalidate marks the rows stale. Use it after changing Expanded directly
// on a branch.
func (f *Flattener) Invalidate() {
	f.touch()
}

// Selected returns the current selection, or nil.
func (f *Flattener) Selected() *model.Branch {
	return f.selected
}

// SelectBranch makes b the single selected branch and defers the selection
// callback. Selecting the current selection again does nothing. Expand
// state and rows are not touched.
func (f *Flattener) SelectBranch(b *model.Branch) {
	if b == nil || b == f.selected {
		return
	}
	if f.selected != nil {
		f.selected.Selected = false
	}
	b.Selected = true
	f.selected = b
	f.generation++

	cb := f.callbackFor(b)
	if cb == nil {
		return
	}
	f.sched.Defer(f.life.guard(func() { cb(b) }))
}

func (f *Flattener) callbackFor(b *model.Branch) SelectFunc {
	if b.OnSelect != nil {
		return b.OnSelect
	}
	return f.opts.OnSelect
}

// ClearSelection deselects the current branch without firing callbacks.
func (f *Flattener) ClearSelection() {
	if f.selected == nil {
		return
	}
	f.selected.Selected = false
	f.selected = nil
	f.generation++
}

// OnUserClick handles a click on a branch label: it selects the branch
// unless it already is the selection.
func (f *Flattener) OnUserClick(b *model.Branch) {
	if b != nil && b != f.selected {
		f.SelectBranch(b)
	}
}

// InitialSelection selects the first branch in pre-order whose label is
// label. It reports whether a branch was found.
func (f *Flattener) InitialSelection(label string) bool {
	b := f.forest.Find(label)
	if b == nil {
		return false
	}
	f.SelectBranch(b)
	return true
}

// ToggleExpand flips b's expanded state. It never changes the selection.
func (f *Flattener) ToggleExpand(b *model.Branch) {
	if b == nil {
		return
	}
	b.Expanded = !b.Expanded
	f.touch()
}

// SetExpanded sets b's expanded state.
func (f *Flattener) SetExpanded(b *model.Branch, expanded bool) {
	if b == nil || b.Expanded == expanded {
		return
	}
	b.Expanded = expanded
	f.touch()
}

// ExpandAll expands every branch.
func (f *Flattener) ExpandAll() {
	f.setAll(func(*model.Branch) bool { return true })
}

// CollapseAll collapses every branch.
func (f *Flattener) CollapseAll() {
	f.setAll(func(*model.Branch) bool { return false })
}

// ExpandToLevel expands branches with Level < level and collapses the rest.
func (f *Flattener) ExpandToLevel(level int) {
	f.setAll(func(b *model.Branch) bool { return b.Level < level })
}

func (f *Flattener) setAll(expanded func(*model.Branch) bool) {
	f.forest.Walk(func(b, _ *model.Branch) bool {
		b.Expanded = expanded(b)
		return true
	})
	f.touch()
}

// ExpandPathTo expands every ancestor of target so its row becomes visible.
// It reports whether target is part of the forest.
func (f *Flattener) ExpandPathTo(target *model.Branch) bool {
	var path []*model.Branch
	var find func(b *model.Branch) bool
	find = func(b *model.Branch) bool {
		if b == target {
			return true
		}
		path = append(path, b)
		for _, child := range b.Children {
			if find(child) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	for _, root := range f.forest {
		path = path[:0]
		if find(root) {
			for _, ancestor := range path {
				ancestor.Expanded = true
			}
			f.touch()
			return true
		}
	}
	return false
}

// Parent returns b's parent, or nil for roots and unknown branches.
func (f *Flattener) Parent(b *model.Branch) *model.Branch {
	var parent *model.Branch
	f.forest.Walk(func(node, p *model.Branch) bool {
		if parent != nil {
			return false
		}
		if node == b {
			parent = p
			return false
		}
		return true
	})
	return parent
}

// Flush runs callbacks waiting on the internal queue. It returns 0 when an
// external Scheduler was configured.
func (f *Flattener) Flush() int {
	if f.queue == nil {
		return 0
	}
	return f.queue.Flush()
}

// Close drops every selection callback that has been scheduled but has not
// run yet. The Flattener stays readable.
func (f *Flattener) Close() {
	f.life.closed.Store(true)
}
