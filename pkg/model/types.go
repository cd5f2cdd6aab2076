package model

import (
	"strconv"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// Branch is a node in a tree forest.
//
// The data fields (Label, Children, Description) come from the tree data
// file, along with ExpandedOverride. The remaining fields are view state
// owned by the flattener that adopted the forest; they are never serialized
// and are excluded from the structural hash.
type Branch struct {
	Label       string    `json:"label" yaml:"label"`
	Children    []*Branch `json:"children,omitempty" yaml:"children,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`

	// ExpandedOverride pins the initial expanded state from the data file.
	// Nil means "use the expand level default".
	ExpandedOverride *bool `json:"expanded,omitempty" yaml:"expanded,omitempty"`

	Level    int    `json:"-" yaml:"-"` // 1-based depth (root = 1)
	Expanded bool   `json:"-" yaml:"-"`
	Selected bool   `json:"-" yaml:"-"`
	UID      uint64 `json:"-" yaml:"-"` // 0 = not yet assigned

	// OnSelect, when set, replaces the tree-wide selection callback for
	// this branch.
	OnSelect func(*Branch) `json:"-" yaml:"-"`
}

// NewLeaf returns a branch with no children.
func NewLeaf(label string) *Branch {
	return &Branch{Label: label, Children: []*Branch{}}
}

// NewBranch returns a branch with the given children.
func NewBranch(label string, children ...*Branch) *Branch {
	if children == nil {
		children = []*Branch{}
	}
	return &Branch{Label: label, Children: children}
}

// HasChildren reports whether the branch has at least one child.
func (b *Branch) HasChildren() bool {
	return b != nil && len(b.Children) > 0
}

// Forest is an ordered sequence of root branches.
type Forest []*Branch

// Walk visits every branch in pre-order. parent is nil for roots.
// Returning false from fn skips the branch's subtree.
func (f Forest) Walk(fn func(b, parent *Branch) bool) {
	var walk func(b, parent *Branch)
	walk = func(b, parent *Branch) {
		if b == nil {
			return
		}
		if !fn(b, parent) {
			return
		}
		for _, child := range b.Children {
			walk(child, b)
		}
	}
	for _, root := range f {
		walk(root, nil)
	}
}

// WalkPaths visits every branch in pre-order together with its label path.
func (f Forest) WalkPaths(fn func(b *Branch, path string)) {
	var walk func(b *Branch, prefix string)
	walk = func(b *Branch, prefix string) {
		if b == nil {
			return
		}
		path := JoinPath(prefix, b.Label)
		fn(b, path)
		for _, child := range b.Children {
			walk(child, path)
		}
	}
	for _, root := range f {
		walk(root, "")
	}
}

// Count returns the number of branches in the forest.
func (f Forest) Count() int {
	n := 0
	f.Walk(func(*Branch, *Branch) bool {
		n++
		return true
	})
	return n
}

// Find returns the first branch in pre-order with the given label.
func (f Forest) Find(label string) *Branch {
	var found *Branch
	f.Walk(func(b, _ *Branch) bool {
		if found != nil {
			return false
		}
		if b.Label == label {
			found = b
			return false
		}
		return true
	})
	return found
}

// Hash returns a structural hash of the forest. Labels, descriptions,
// explicit expanded values and the shape of the tree contribute; view state
// does not. Two forests with equal hashes are treated as the same data.
func (f Forest) Hash() (uint64, error) {
	return hashstructure.Hash(hashView(f), hashstructure.FormatV2, nil)
}

// hashedBranch is the data half of a Branch. Expanded is "" when the data
// gives no explicit value so that it hashes apart from false.
type hashedBranch struct {
	Label       string
	Description string
	Expanded    string
	Children    []hashedBranch
}

func hashView(branches []*Branch) []hashedBranch {
	out := make([]hashedBranch, 0, len(branches))
	for _, b := range branches {
		if b == nil {
			continue
		}
		h := hashedBranch{
			Label:       b.Label,
			Description: b.Description,
			Children:    hashView(b.Children),
		}
		if b.ExpandedOverride != nil {
			h.Expanded = strconv.FormatBool(*b.ExpandedOverride)
		}
		out = append(out, h)
	}
	return out
}

// pathSeparator joins labels into a label path.
const pathSeparator = "/"

// JoinPath appends label to a label path, escaping separators in the label.
func JoinPath(prefix, label string) string {
	label = strings.ReplaceAll(label, `\`, `\\`)
	label = strings.ReplaceAll(label, pathSeparator, `\`+pathSeparator)
	if prefix == "" {
		return label
	}
	return prefix + pathSeparator + label
}

// PathOf returns the label path of b within the forest, or "" if b is not
// reachable.
func (f Forest) PathOf(target *Branch) string {
	result := ""
	f.WalkPaths(func(b *Branch, path string) {
		if result == "" && b == target {
			result = path
		}
	})
	return result
}

// TreeIcon identifies which of the three affordances a row shows.
type TreeIcon int

const (
	IconLeaf     TreeIcon = iota // no children
	IconExpand                   // has children, collapsed
	IconCollapse                 // has children, expanded
)

func (i TreeIcon) String() string {
	switch i {
	case IconExpand:
		return "expand"
	case IconCollapse:
		return "collapse"
	default:
		return "leaf"
	}
}

// IconFor picks the icon for a branch from its children and expanded state.
// A branch without children is always a leaf, even when Expanded is set.
func IconFor(b *Branch) TreeIcon {
	if !b.HasChildren() {
		return IconLeaf
	}
	if b.Expanded {
		return IconCollapse
	}
	return IconExpand
}

// Icons maps the three tree icons to display strings.
type Icons struct {
	Expand   string `koanf:"expand" yaml:"expand,omitempty" json:"expand,omitempty"`
	Collapse string `koanf:"collapse" yaml:"collapse,omitempty" json:"collapse,omitempty"`
	Leaf     string `koanf:"leaf" yaml:"leaf,omitempty" json:"leaf,omitempty"`
}

// DefaultIcons returns the glyphs used when no icons are configured.
func DefaultIcons() Icons {
	return Icons{
		Expand:   "▸",
		Collapse: "▾",
		Leaf:     "•",
	}
}

// WithDefaults fills empty icons from DefaultIcons.
func (i Icons) WithDefaults() Icons {
	d := DefaultIcons()
	if i.Expand == "" {
		i.Expand = d.Expand
	}
	if i.Collapse == "" {
		i.Collapse = d.Collapse
	}
	if i.Leaf == "" {
		i.Leaf = d.Leaf
	}
	return i
}

// For returns the display string for icon.
func (i Icons) For(icon TreeIcon) string {
	switch icon {
	case IconExpand:
		return i.Expand
	case IconCollapse:
		return i.Collapse
	default:
		return i.Leaf
	}
}

// Row is the flattened view-model of one branch. Rows are snapshots taken
// when the row list was built and are never modified afterwards.
type Row struct {
	UID     uint64
	Level   int
	Branch  *Branch // back-reference, not owned
	Label   string
	Icon    TreeIcon
	Visible bool // every ancestor expanded
}
