package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/zerr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/model/modeltest"
	"github.com/Dicklesworthstone/treenav/pkg/state"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

func newTreeTestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(nil))
}

func newTestTree(t *testing.T, forest model.Forest, opts tree.Options) TreeModel {
	t.Helper()
	tm, err := NewTreeModel(newTreeTestTheme(), forest, opts)
	if err != nil {
		t.Fatalf("NewTreeModel failed: %v", err)
	}
	return tm
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends msg and runs any resulting deferred callback message, the way
// the Bubble Tea loop would.
func press(t *testing.T, tm TreeModel, msg tea.Msg) TreeModel {
	t.Helper()
	tm, cmd := tm.Update(msg)
	return drain(tm, cmd)
}

func drain(tm TreeModel, cmd tea.Cmd) TreeModel {
	if cmd == nil {
		return tm
	}
	switch msg := cmd().(type) {
	case deferredCallbackMsg:
		tm, _ = tm.Update(msg)
	case tea.BatchMsg:
		for _, c := range msg {
			tm = drain(tm, c)
		}
	}
	return tm
}

// typeKey sends msg without running the returned commands; the filter
// input answers keys with cursor blink timers.
func typeKey(tm TreeModel, msg tea.Msg) TreeModel {
	tm, _ = tm.Update(msg)
	return tm
}

func labels(tm TreeModel) []string {
	var out []string
	for _, r := range tm.Rows() {
		out = append(out, r.Label)
	}
	return out
}

func TestTreeViewPrefixes(t *testing.T) {
	tm := newTestTree(t, modeltest.Deep(), tree.Options{})
	view := tm.View()

	want := []string{
		"❯ ▾ docs",
		"  ├── ▾ guides",
		"  │   ├── • install",
		"  │   └── • usage",
		"  └── • api",
		"  ▾ src",
		"  └── • main",
	}
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(want), len(lines), view)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestTreeCustomIcons(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{
		Icons: model.Icons{Expand: "+", Collapse: "-", Leaf: "·"},
	})
	view := tm.View()
	if !strings.Contains(view, "- Root") || !strings.Contains(view, "· A") {
		t.Errorf("Expected custom icons in view:\n%s", view)
	}
}

func TestTreeEmptyFilterState(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{})
	tm.SetFilter("zzz")
	if !strings.Contains(tm.View(), "No matching branches.") {
		t.Errorf("Expected empty-filter message, got:\n%s", tm.View())
	}
}

func TestTreeNavigation(t *testing.T) {
	tm := newTestTree(t, modeltest.Deep(), tree.Options{})

	tm = press(t, tm, keyRunes("j"))
	tm = press(t, tm, keyRunes("j"))
	if row, _ := tm.CursorRow(); row.Label != "install" {
		t.Errorf("Expected cursor on install, got %q", row.Label)
	}

	tm = press(t, tm, keyRunes("G"))
	if row, _ := tm.CursorRow(); row.Label != "main" {
		t.Errorf("Expected cursor on main, got %q", row.Label)
	}
	tm = press(t, tm, keyRunes("j"))
	if tm.Cursor() != 6 {
		t.Errorf("Expected cursor to stay on the last row, got %d", tm.Cursor())
	}

	tm = press(t, tm, keyRunes("g"))
	if tm.Cursor() != 0 {
		t.Errorf("Expected cursor at top, got %d", tm.Cursor())
	}
	tm = press(t, tm, keyRunes("k"))
	if tm.Cursor() != 0 {
		t.Errorf("Expected cursor to stay at top, got %d", tm.Cursor())
	}
}

func TestTreeSelectDefersCallback(t *testing.T) {
	var got []string
	tm := newTestTree(t, modeltest.Sample(), tree.Options{
		OnSelect: func(b *model.Branch) { got = append(got, b.Label) },
	})

	tm = press(t, tm, keyRunes("j"))
	tm, cmd := tm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if tm.Selected() == nil || tm.Selected().Label != "A" {
		t.Fatalf("Expected A selected, got %v", tm.Selected())
	}
	if len(got) != 0 {
		t.Fatalf("Expected callback deferred past the update, got %v", got)
	}
	if cmd == nil {
		t.Fatal("Expected a command delivering the callback")
	}

	tm = drain(tm, cmd)
	if len(got) != 1 || got[0] != "A" {
		t.Errorf("Expected callback for A, got %v", got)
	}

	// Selecting the selection again does nothing.
	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyEnter})
	if len(got) != 1 {
		t.Errorf("Expected no second callback, got %v", got)
	}
}

func TestTreeInitDeliversInitialSelection(t *testing.T) {
	var got []string
	tm := newTestTree(t, modeltest.Deep(), tree.Options{
		InitialSelection: "usage",
		OnSelect:         func(b *model.Branch) { got = append(got, b.Label) },
	})
	if row, _ := tm.CursorRow(); row.Label != "usage" {
		t.Errorf("Expected cursor on the initial selection, got %q", row.Label)
	}
	if len(got) != 0 {
		t.Fatalf("Expected no callback before Init, got %v", got)
	}
	drain(tm, tm.Init())
	if len(got) != 1 {
		t.Errorf("Expected initial selection callback, got %v", got)
	}
}

func TestTreeCloseDropsPendingCallbacks(t *testing.T) {
	fired := false
	tm := newTestTree(t, modeltest.Sample(), tree.Options{
		OnSelect: func(*model.Branch) { fired = true },
	})
	tm, cmd := tm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	tm.Close()
	drain(tm, cmd)
	if fired {
		t.Error("Expected callback dropped after Close")
	}
}

func TestTreeToggleExpand(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{})
	if len(tm.Rows()) != 3 {
		t.Fatalf("Expected 3 rows, got %v", labels(tm))
	}

	tm = press(t, tm, tea.KeyMsg{Type: tea.KeySpace})
	if got := labels(tm); len(got) != 1 || got[0] != "Root" {
		t.Errorf("Expected only Root after collapse, got %v", got)
	}
	if tm.Selected() != nil {
		t.Error("Expected toggle not to change the selection")
	}

	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyTab})
	if len(tm.Rows()) != 3 {
		t.Errorf("Expected 3 rows after expand, got %v", labels(tm))
	}
}

func TestTreeExpandOrMoveToChild(t *testing.T) {
	tm := newTestTree(t, modeltest.Deep(), tree.Options{ExpandLevel: 1})
	if got := labels(tm); len(got) != 2 {
		t.Fatalf("Expected two collapsed roots, got %v", got)
	}

	tm = press(t, tm, keyRunes("l"))
	if len(tm.Rows()) != 4 {
		t.Errorf("Expected docs expanded, got %v", labels(tm))
	}
	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyRight})
	if row, _ := tm.CursorRow(); row.Label != "guides" {
		t.Errorf("Expected cursor on first child, got %q", row.Label)
	}

	// Leaf: nothing happens.
	tm = press(t, tm, keyRunes("j"))
	tm = press(t, tm, keyRunes("l"))
	if row, _ := tm.CursorRow(); row.Label != "api" {
		t.Errorf("Expected cursor to stay on api, got %q", row.Label)
	}
}

func TestTreeCollapseOrJumpToParent(t *testing.T) {
	tm := newTestTree(t, modeltest.Deep(), tree.Options{})
	tm.SelectByUID(tm.Flattener().Forest().Find("usage").UID)

	tm = press(t, tm, keyRunes("h"))
	if row, _ := tm.CursorRow(); row.Label != "guides" {
		t.Fatalf("Expected jump to guides, got %q", row.Label)
	}
	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyLeft})
	if got := labels(tm); len(got) != 5 {
		t.Errorf("Expected guides collapsed, got %v", got)
	}
	tm = press(t, tm, keyRunes("h"))
	if row, _ := tm.CursorRow(); row.Label != "docs" {
		t.Errorf("Expected jump to docs, got %q", row.Label)
	}
	tm = press(t, tm, keyRunes("h"))
	tm = press(t, tm, keyRunes("h"))
	if row, _ := tm.CursorRow(); row.Label != "docs" {
		t.Errorf("Expected root to stay put, got %q", row.Label)
	}
}

func TestTreeExpandCollapseAll(t *testing.T) {
	tm := newTestTree(t, modeltest.Deep(), tree.Options{})
	tm = press(t, tm, keyRunes("C"))
	if got := labels(tm); len(got) != 2 {
		t.Errorf("Expected roots only, got %v", got)
	}
	tm = press(t, tm, keyRunes("E"))
	if got := labels(tm); len(got) != 7 {
		t.Errorf("Expected every row, got %v", got)
	}
}

func TestTreeFilterInput(t *testing.T) {
	tm := newTestTree(t, modeltest.Deep(), tree.Options{})
	tm = press(t, tm, keyRunes("C"))

	tm = typeKey(tm, keyRunes("/"))
	if !tm.Filtering() {
		t.Fatal("Expected filter input focused")
	}
	for _, r := range "usg" {
		tm = typeKey(tm, keyRunes(string(r)))
	}
	if tm.Query() != "usg" {
		t.Errorf("Expected query usg, got %q", tm.Query())
	}
	got := labels(tm)
	if strings.Join(got, ",") != "docs,guides,usage" {
		t.Errorf("Expected usage with context, got %v", got)
	}
	if !tm.Rows()[0].Context {
		t.Error("Expected docs to be a context row")
	}

	// Keys go to the input while filtering.
	tm = typeKey(tm, keyRunes("j"))
	if tm.Query() != "usgj" {
		t.Errorf("Expected j typed into the filter, got %q", tm.Query())
	}
	tm = typeKey(tm, tea.KeyMsg{Type: tea.KeyBackspace})

	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyEnter})
	if tm.Filtering() || tm.Query() != "usg" {
		t.Errorf("Expected enter to keep the query, got filtering=%v query=%q", tm.Filtering(), tm.Query())
	}
	if !strings.Contains(tm.View(), "filter: usg") {
		t.Errorf("Expected filter header, got:\n%s", tm.View())
	}

	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyEsc})
	if tm.Query() != "" || len(tm.Rows()) != 2 {
		t.Errorf("Expected filter cleared, got %q %v", tm.Query(), labels(tm))
	}
}

func TestTreeMouseIconTogglesLabelSelects(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{})

	// Row 0 is "❯ ▾ Root": gutter of 2, icon at column 2.
	tm = press(t, tm, tea.MouseMsg{X: 2, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if len(tm.Rows()) != 1 {
		t.Errorf("Expected icon click to collapse Root, got %v", labels(tm))
	}
	if tm.Selected() != nil {
		t.Error("Expected icon click not to select")
	}

	tm = press(t, tm, tea.MouseMsg{X: 5, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if tm.Selected() == nil || tm.Selected().Label != "Root" {
		t.Errorf("Expected label click to select Root, got %v", tm.Selected())
	}
	if len(tm.Rows()) != 1 {
		t.Error("Expected label click not to expand")
	}

	// Clicks below the last row are ignored.
	tm = press(t, tm, tea.MouseMsg{X: 5, Y: 4, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if tm.Selected().Label != "Root" {
		t.Error("Expected click on empty space to be ignored")
	}
}

func TestTreeMouseLeafIconSelects(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{})
	// Row 1 is "  ├── • A": icon at column 6.
	tm = press(t, tm, tea.MouseMsg{X: 6, Y: 1, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	if tm.Selected() == nil || tm.Selected().Label != "A" {
		t.Errorf("Expected A selected, got %v", tm.Selected())
	}
}

func TestTreeWindowing(t *testing.T) {
	var roots model.Forest
	for i := 0; i < 30; i++ {
		roots = append(roots, model.NewLeaf(strings.Repeat("x", i%5+1)))
	}
	tm := newTestTree(t, roots, tree.Options{})
	tm.SetSize(40, 10)

	lines := strings.Split(strings.TrimRight(tm.View(), "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("Expected 10 lines, got %d", len(lines))
	}
	if strings.TrimSpace(lines[9]) != "1/30" {
		t.Errorf("Expected position indicator, got %q", lines[9])
	}

	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyCtrlD})
	if tm.Cursor() != 4 {
		t.Errorf("Expected half-page move to 4, got %d", tm.Cursor())
	}
	tm = press(t, tm, keyRunes("G"))
	lines = strings.Split(strings.TrimRight(tm.View(), "\n"), "\n")
	if !strings.HasPrefix(lines[8], "❯") {
		t.Errorf("Expected cursor on the last rendered row, got %q", lines[8])
	}
	if strings.TrimSpace(lines[9]) != "30/30" {
		t.Errorf("Expected 30/30, got %q", lines[9])
	}
	tm = press(t, tm, tea.KeyMsg{Type: tea.KeyCtrlU})
	if tm.Cursor() != 25 {
		t.Errorf("Expected half-page move up to 25, got %d", tm.Cursor())
	}
}

func TestTreeTruncatesLongLabels(t *testing.T) {
	tm := newTestTree(t, model.Forest{model.NewLeaf(strings.Repeat("界", 30))}, tree.Options{})
	tm.SetSize(20, 5)
	line := strings.Split(tm.View(), "\n")[0]
	if !strings.HasSuffix(line, ellipsis) {
		t.Errorf("Expected truncated label, got %q", line)
	}
	if w := lipgloss.Width(line); w > 20 {
		t.Errorf("Expected line to fit 20 cells, got %d", w)
	}
}

func TestTreeSetForestKeepsCursor(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{})
	tm = press(t, tm, keyRunes("G"))

	next := model.Forest{model.NewBranch("Root", model.NewLeaf("Z"), model.NewLeaf("A"), model.NewLeaf("B"))}
	changed, err := tm.SetForest(next)
	if err != nil || !changed {
		t.Fatalf("Expected change, got changed=%v err=%v", changed, err)
	}
	if row, _ := tm.CursorRow(); row.Label != "B" {
		t.Errorf("Expected cursor to follow B, got %q", row.Label)
	}
}

func TestTreeStatePersistence(t *testing.T) {
	ctx := context.Background()
	store := state.NewFileStore(filepath.Join(t.TempDir(), state.FileName))

	tm := newTestTree(t, modeltest.Deep(), tree.Options{})
	tm.SetStore(ctx, store, nil)
	tm.SelectByUID(tm.Flattener().Forest().Find("guides").UID)
	tm = press(t, tm, tea.KeyMsg{Type: tea.KeySpace})

	saved, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if expanded, ok := saved.Expanded["docs/guides"]; !ok || expanded {
		t.Errorf("Expected docs/guides saved as collapsed, got %v", saved.Expanded)
	}

	restored := newTestTree(t, modeltest.Deep(), tree.Options{})
	restored.SetStore(ctx, store, nil)
	if got := labels(restored); len(got) != 5 {
		t.Errorf("Expected guides restored collapsed, got %v", got)
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context) (*state.TreeState, error) {
	return state.New(), state.ErrCorruptState
}

func (failingStore) Save(context.Context, *state.TreeState) error {
	return zerr.New("disk full")
}

func (failingStore) Close() error { return nil }

func TestTreeStateFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tm := newTestTree(t, modeltest.Deep(), tree.Options{})
	tm.SetStore(context.Background(), failingStore{}, zap.New(core))

	if logs.FilterMessage("loading tree state").Len() != 1 {
		t.Errorf("Expected a load warning, got %v", logs.All())
	}

	tm = press(t, tm, tea.KeyMsg{Type: tea.KeySpace})
	if logs.FilterMessage("saving tree state").Len() != 1 {
		t.Errorf("Expected a save warning, got %v", logs.All())
	}
	if got := labels(tm); len(got) != 3 {
		t.Errorf("Expected docs collapsed despite the failed save, got %v", got)
	}
}

func TestTreeUnknownKeyIsIgnored(t *testing.T) {
	tm := newTestTree(t, modeltest.Sample(), tree.Options{})
	before := labels(tm)
	tm = press(t, tm, keyRunes("x"))
	if strings.Join(labels(tm), ",") != strings.Join(before, ",") || tm.Cursor() != 0 {
		t.Error("Expected unknown key to change nothing")
	}
}
