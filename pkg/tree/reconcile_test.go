package tree_test

import (
	"errors"
	"testing"

	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/model/modeltest"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

func TestSetForestUnchangedIsNoop(t *testing.T) {
	f, forest := newSample(t, tree.Options{})
	gen := f.Generation()

	changed, err := f.SetForest(modeltest.Sample())
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("expected structurally equal forest to be ignored")
	}
	if f.Generation() != gen {
		t.Error("expected no generation bump for an unchanged forest")
	}
	if f.Forest()[0] != forest[0] {
		t.Error("expected the original forest to stay adopted")
	}
}

func TestSetForestCarriesStateByPath(t *testing.T) {
	fired := 0
	f, forest := newSample(t, tree.Options{OnSelect: func(*model.Branch) { fired++ }})
	f.SelectBranch(forest[0].Children[1])
	f.Flush()
	f.ToggleExpand(forest[0])
	oldRoot, oldB := forest[0].UID, forest[0].Children[1].UID

	next := model.Forest{
		model.NewBranch("Root", model.NewLeaf("A"), model.NewLeaf("B"), model.NewLeaf("C")),
	}
	changed, err := f.SetForest(next)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected a structural change to be adopted")
	}

	root := next[0]
	if root.UID != oldRoot || root.Children[1].UID != oldB {
		t.Errorf("expected uids carried by label path, got root=%d B=%d", root.UID, root.Children[1].UID)
	}
	if root.Expanded {
		t.Error("expected collapsed state of Root to carry over")
	}
	if f.Selected() != root.Children[1] || !root.Children[1].Selected {
		t.Error("expected selection to move to the new B")
	}
	if forest[0].Children[1].Selected {
		t.Error("expected old B to be deselected")
	}

	c := root.Children[2]
	if c.UID == 0 || c.UID == oldRoot || c.UID == oldB || c.UID == root.Children[0].UID {
		t.Errorf("expected a fresh uid for C, got %d", c.UID)
	}
	if c.Level != 2 {
		t.Errorf("expected C at level 2, got %d", c.Level)
	}

	rows := f.Rows()
	if len(rows) != 4 || rows[3].Visible {
		t.Errorf("expected 4 rows with C hidden under collapsed Root, got %+v", summarize(rows))
	}
	f.Flush()
	if fired != 1 {
		t.Errorf("expected no callback for carried selection, fired=%d", fired)
	}
}

func TestSetForestDropsSelectionOfRemovedBranch(t *testing.T) {
	f, forest := newSample(t, tree.Options{})
	f.SelectBranch(forest[0].Children[0])

	if _, err := f.SetForest(model.Forest{model.NewBranch("Root", model.NewLeaf("B"))}); err != nil {
		t.Fatal(err)
	}
	if f.Selected() != nil {
		t.Errorf("expected selection cleared, got %v", f.Selected().Label)
	}
}

func TestSetForestNewBranchesGetDefaults(t *testing.T) {
	f, _ := newSample(t, tree.Options{ExpandLevel: 2})
	next := model.Forest{
		model.NewBranch("Root", model.NewLeaf("A"), model.NewBranch("D", model.NewLeaf("deep"))),
	}
	if _, err := f.SetForest(next); err != nil {
		t.Fatal(err)
	}
	d := next[0].Children[1]
	if d.Expanded {
		t.Error("expected new D at level 2 to start collapsed with expand level 2")
	}
	if !next[0].Expanded {
		t.Error("expected Root to keep its expanded state")
	}
}

func TestSetForestRejectsEmpty(t *testing.T) {
	f, forest := newSample(t, tree.Options{})
	if _, err := f.SetForest(nil); !errors.Is(err, model.ErrNoTreeData) {
		t.Errorf("expected ErrNoTreeData, got %v", err)
	}
	if f.Forest()[0] != forest[0] {
		t.Error("expected failed SetForest to keep the current forest")
	}
}

func TestSetForestDuplicatePathsPairInOrder(t *testing.T) {
	forest := model.Forest{model.NewLeaf("dup"), model.NewLeaf("dup")}
	f, err := tree.New(forest, tree.Options{})
	if err != nil {
		t.Fatal(err)
	}
	first, second := forest[0].UID, forest[1].UID

	next := model.Forest{model.NewLeaf("dup"), model.NewLeaf("dup"), model.NewLeaf("dup")}
	if _, err := f.SetForest(next); err != nil {
		t.Fatal(err)
	}
	if next[0].UID != first || next[1].UID != second {
		t.Errorf("expected duplicates paired in order, got %d, %d", next[0].UID, next[1].UID)
	}
	if next[2].UID == first || next[2].UID == second {
		t.Error("expected the extra duplicate to get a fresh uid")
	}
}

func TestRefreshAfterInPlaceEdit(t *testing.T) {
	f, forest := newSample(t, tree.Options{})
	oldA := forest[0].Children[0].UID
	forest[0].Children = append(forest[0].Children, &model.Branch{Label: "C"})

	changed, err := f.Refresh()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected in-place append to be detected")
	}
	c := forest[0].Children[2]
	if c.UID == 0 || c.Children == nil || c.Level != 2 {
		t.Errorf("expected C initialized, got uid=%d level=%d", c.UID, c.Level)
	}
	if forest[0].Children[0].UID != oldA {
		t.Error("expected A to keep its uid")
	}
	if len(f.Rows()) != 4 {
		t.Errorf("expected 4 rows, got %d", len(f.Rows()))
	}

	if changed, _ := f.Refresh(); changed {
		t.Error("expected second Refresh to see no change")
	}
}

func TestSetForestKeepsIdentityOfMovedBranch(t *testing.T) {
	f, forest := newSample(t, tree.Options{})
	b := forest[0].Children[1]
	b.Children = []*model.Branch{model.NewLeaf("inner")}
	if _, err := f.Refresh(); err != nil {
		t.Fatal(err)
	}
	f.ToggleExpand(b)
	f.SelectBranch(b)
	uid, expanded := b.UID, b.Expanded

	// A new branch at B's old path must not take B's uid.
	impostor := model.NewLeaf("B")
	next := model.Forest{
		model.NewBranch("Root", model.NewLeaf("A"), impostor),
		model.NewBranch("Other", b),
	}
	changed, err := f.SetForest(next)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected the move to be adopted")
	}

	if b.UID != uid {
		t.Errorf("expected moved branch to keep uid %d, got %d", uid, b.UID)
	}
	if b.Expanded != expanded {
		t.Errorf("expected moved branch to keep expanded=%v", expanded)
	}
	if b.Level != 2 {
		t.Errorf("expected moved branch at level 2, got %d", b.Level)
	}
	if f.Selected() != b || !b.Selected {
		t.Error("expected selection to stay on the moved branch")
	}
	if impostor.UID == 0 || impostor.UID == uid {
		t.Errorf("expected a fresh uid for the new B, got %d", impostor.UID)
	}
	if impostor.Selected {
		t.Error("expected the new B to stay unselected")
	}

	seen := make(map[uint64]bool)
	for _, row := range f.Rows() {
		if seen[row.UID] {
			t.Errorf("duplicate uid %d in rows", row.UID)
		}
		seen[row.UID] = true
	}
}

func TestSetForestAppliesChangedExpandedValue(t *testing.T) {
	f, _ := newSample(t, tree.Options{})

	collapsed := false
	next := modeltest.Sample()
	next[0].ExpandedOverride = &collapsed
	changed, err := f.SetForest(next)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected an expanded value in the data to count as a change")
	}
	if next[0].Expanded {
		t.Error("expected Root collapsed by the new expanded value")
	}

	// Carried state wins once the data stops changing.
	f.ToggleExpand(next[0])
	again := modeltest.Sample()
	again[0].ExpandedOverride = &collapsed
	if changed, _ := f.SetForest(again); changed {
		t.Error("expected identical data to be ignored")
	}
	if !next[0].Expanded {
		t.Error("expected user toggle to survive an unchanged reload")
	}
}
