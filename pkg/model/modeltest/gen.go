// Package modeltest provides rapid generators and fixtures for tree data.
package modeltest

import (
	"pgregory.net/rapid"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// MaxDepth bounds generated forests so shrinking stays fast.
const MaxDepth = 5

var labels = []string{"Root", "A", "B", "C", "docs", "src", "a/b", "Ünïcødé", ""}

// Forest generates non-empty forests of up to MaxDepth levels. Children
// slices are sometimes nil so normalization has work to do.
func Forest() *rapid.Generator[model.Forest] {
	return rapid.Custom(func(t *rapid.T) model.Forest {
		n := rapid.IntRange(1, 4).Draw(t, "roots")
		f := make(model.Forest, 0, n)
		for i := 0; i < n; i++ {
			f = append(f, drawBranch(t, 1))
		}
		return f
	})
}

func drawBranch(t *rapid.T, depth int) *model.Branch {
	b := &model.Branch{Label: rapid.SampledFrom(labels).Draw(t, "label")}
	if depth >= MaxDepth {
		return b
	}
	n := rapid.IntRange(0, 3).Draw(t, "children")
	if n == 0 {
		if rapid.Bool().Draw(t, "emptyChildren") {
			b.Children = []*model.Branch{}
		}
		return b
	}
	b.Children = make([]*model.Branch, 0, n)
	for i := 0; i < n; i++ {
		b.Children = append(b.Children, drawBranch(t, depth+1))
	}
	return b
}

// Sample returns the forest used throughout the examples:
//
//	Root
//	├── A
//	└── B
func Sample() model.Forest {
	return model.Forest{
		model.NewBranch("Root", model.NewLeaf("A"), model.NewLeaf("B")),
	}
}

// Deep returns a three-level forest with two roots:
//
//	docs
//	├── guides
//	│   ├── install
//	│   └── usage
//	└── api
//	src
//	└── main
func Deep() model.Forest {
	return model.Forest{
		model.NewBranch("docs",
			model.NewBranch("guides", model.NewLeaf("install"), model.NewLeaf("usage")),
			model.NewLeaf("api"),
		),
		model.NewBranch("src", model.NewLeaf("main")),
	}
}
