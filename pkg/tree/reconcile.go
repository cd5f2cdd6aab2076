package tree

import (
	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// SetForest adopts next if it differs structurally from the current forest.
// It reports whether anything changed.
//
// A branch object that is already part of the current forest keeps its uid
// and expand state wherever it appears in next. Other branches in next that
// have the same label path as an unclaimed branch in the current forest
// inherit its uid, expand state and selection; duplicate paths are paired
// in pre-order. Everything else is treated as new and gets a fresh uid and
// the default expand state. A changed expanded value in the data wins over
// carried state. No selection callback fires for a carried-over selection.
func (f *Flattener) SetForest(next model.Forest) (bool, error) {
	if err := model.Validate(next); err != nil {
		return false, err
	}
	model.Normalize(next)
	hash, err := next.Hash()
	if err != nil {
		return false, err
	}
	if hash == f.hash {
		return false, nil
	}

	f.adopt(next, hash)
	return true, nil
}

// Refresh re-reads the adopted forest after the caller edited its
// structure in place. Branches added since the last adoption get ids and
// default expand state; existing ones keep theirs.
func (f *Flattener) Refresh() (bool, error) {
	return f.SetForest(f.forest)
}

func (f *Flattener) adopt(next model.Forest, hash uint64) {
	current := make(map[*model.Branch]bool)
	previous := make(map[string][]*model.Branch)
	f.forest.WalkPaths(func(b *model.Branch, path string) {
		if b.UID != 0 {
			current[b] = true
			previous[path] = append(previous[path], b)
		}
	})

	// Reused objects own their uid; claim them before any path pairing.
	claimed := make(map[*model.Branch]bool)
	next.Walk(func(b, _ *model.Branch) bool {
		if current[b] {
			claimed[b] = true
		}
		return true
	})

	var selected *model.Branch
	var walk func(b *model.Branch, prefix string, level int)
	walk = func(b *model.Branch, prefix string, level int) {
		path := model.JoinPath(prefix, b.Label)
		switch {
		case current[b]:
			b.Level = level
			if b == f.selected {
				selected = b
			}
		default:
			old := popUnclaimed(previous, path, claimed)
			if old == nil {
				b.UID = 0
				initBranch(b, level, f.opts.ExpandLevel, &f.ids)
				break
			}
			claimed[old] = true
			b.Level = level
			b.UID = old.UID
			b.Expanded = old.Expanded
			if b.ExpandedOverride != nil && !sameOverride(old.ExpandedOverride, b.ExpandedOverride) {
				b.Expanded = *b.ExpandedOverride
			}
			if old == f.selected {
				selected = b
			}
		}
		b.Selected = false
		for _, child := range b.Children {
			walk(child, path, level+1)
		}
	}
	for _, root := range next {
		walk(root, "", 1)
	}

	if f.selected != nil {
		f.selected.Selected = false
	}
	if selected != nil {
		selected.Selected = true
	}
	f.selected = selected
	f.forest = next
	f.hash = hash
	f.rebuild()
}

func sameOverride(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func popUnclaimed(previous map[string][]*model.Branch, path string, claimed map[*model.Branch]bool) *model.Branch {
	queue := previous[path]
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		if !claimed[head] {
			previous[path] = queue
			return head
		}
	}
	previous[path] = queue
	return nil
}
