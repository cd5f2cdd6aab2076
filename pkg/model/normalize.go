package model

import (
	"fmt"

	"github.com/goccy/go-json"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoTreeData means no forest was supplied, or it was empty.
	ErrNoTreeData = zerr.New("no tree data supplied")

	// ErrMalformedTreeData means the supplied tree data is neither a
	// non-empty sequence of branches nor a single labeled branch.
	ErrMalformedTreeData = zerr.New("tree data must be a list of branches or a single labeled branch")
)

// Normalize makes every branch reachable from the forest well formed: absent
// children become an empty slice and nil children are dropped. It mutates
// the forest in place and is idempotent.
func Normalize(f Forest) {
	f.Walk(func(b, _ *Branch) bool {
		if b.Children == nil {
			b.Children = []*Branch{}
			return true
		}
		kept := b.Children[:0]
		for _, child := range b.Children {
			if child != nil {
				kept = append(kept, child)
			}
		}
		b.Children = kept
		return true
	})
}

// Validate checks that f is usable as tree data.
func Validate(f Forest) error {
	if len(f) == 0 {
		return ErrNoTreeData
	}
	for i, root := range f {
		if root == nil {
			return zerr.With(ErrMalformedTreeData, "root", i)
		}
	}
	return nil
}

// FromValue converts tree data of any supported shape into a normalized
// forest. Accepted shapes:
//
//   - Forest, []*Branch, *Branch, Branch
//   - generic decoded data ([]any, map[string]any, string) as produced by
//     JSON or YAML decoders, where a string is a leaf label
//
// A single branch is promoted to a one-element forest. Anything else,
// including a single branch without a label, is ErrMalformedTreeData.
func FromValue(v any) (Forest, error) {
	var f Forest
	switch data := v.(type) {
	case nil:
		return nil, ErrNoTreeData
	case Forest:
		f = data
	case []*Branch:
		f = Forest(data)
	case *Branch:
		if data == nil || data.Label == "" {
			return nil, ErrMalformedTreeData
		}
		f = Forest{data}
	case Branch:
		if data.Label == "" {
			return nil, ErrMalformedTreeData
		}
		f = Forest{&data}
	case []any:
		for i, item := range data {
			b, err := branchFromValue(item)
			if err != nil {
				return nil, zerr.With(err, "index", i)
			}
			f = append(f, b)
		}
	case map[string]any:
		b, err := branchFromValue(data)
		if err != nil {
			return nil, err
		}
		if b.Label == "" {
			return nil, ErrMalformedTreeData
		}
		f = Forest{b}
	default:
		return nil, zerr.With(ErrMalformedTreeData, "type", fmt.Sprintf("%T", v))
	}

	if err := Validate(f); err != nil {
		return nil, err
	}
	Normalize(f)
	return f, nil
}

func branchFromValue(v any) (*Branch, error) {
	switch data := v.(type) {
	case string:
		return NewLeaf(data), nil
	case *Branch:
		return data, nil
	case map[string]any:
		b := &Branch{Children: []*Branch{}}
		if label, ok := data["label"].(string); ok {
			b.Label = label
		}
		if desc, ok := data["description"].(string); ok {
			b.Description = desc
		}
		if expanded, ok := data["expanded"].(bool); ok {
			b.ExpandedOverride = &expanded
		}
		switch children := data["children"].(type) {
		case nil:
		case []any:
			for _, c := range children {
				child, err := branchFromValue(c)
				if err != nil {
					return nil, err
				}
				b.Children = append(b.Children, child)
			}
		default:
			return nil, zerr.With(ErrMalformedTreeData, "label", b.Label)
		}
		return b, nil
	default:
		return nil, zerr.With(ErrMalformedTreeData, "type", fmt.Sprintf("%T", v))
	}
}

// rawBranch has Branch's fields without its decoding methods.
type rawBranch Branch

// UnmarshalJSON accepts either a branch object or a bare string label.
func (b *Branch) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*b = *NewLeaf(label)
		return nil
	}
	var raw rawBranch
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Branch(raw)
	if b.Children == nil {
		b.Children = []*Branch{}
	}
	return nil
}

// UnmarshalYAML accepts either a branch mapping or a bare scalar label.
func (b *Branch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*b = *NewLeaf(value.Value)
		return nil
	}
	var raw rawBranch
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*b = Branch(raw)
	if b.Children == nil {
		b.Children = []*Branch{}
	}
	return nil
}
