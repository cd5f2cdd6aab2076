package tree

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// FilteredRow is a row in a filtered view.
type FilteredRow struct {
	model.Row

	// Context marks an ancestor shown only because a descendant matches.
	Context bool

	// Matched holds the byte offsets of label characters that matched.
	Matched []int
}

// Filter returns the rows whose label fuzzy-matches query, together with
// all their ancestors as context rows, in pre-order. Matches inside
// collapsed branches are included. An empty query returns the visible rows
// unchanged.
func (f *Flattener) Filter(query string) []FilteredRow {
	rows := f.Rows()
	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]FilteredRow, 0, len(rows))
		for _, r := range rows {
			if r.Visible {
				out = append(out, FilteredRow{Row: r})
			}
		}
		return out
	}

	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
	}
	matched := make(map[int][]int)
	for _, m := range fuzzy.Find(query, labels) {
		matched[m.Index] = m.MatchedIndexes
	}
	if len(matched) == 0 {
		return nil
	}

	parents := parentIndexes(rows)
	context := make(map[int]bool)
	for i := range matched {
		for p := parents[i]; p >= 0 && !context[p]; p = parents[p] {
			context[p] = true
		}
	}

	out := make([]FilteredRow, 0, len(matched)+len(context))
	for i, r := range rows {
		idx, isMatch := matched[i]
		switch {
		case isMatch:
			out = append(out, FilteredRow{Row: r, Matched: idx})
		case context[i]:
			out = append(out, FilteredRow{Row: r, Context: true})
		}
	}
	return out
}

// parentIndexes maps each row to the index of its parent row, or -1 for
// roots. rows must be in pre-order.
func parentIndexes(rows []model.Row) []int {
	parents := make([]int, len(rows))
	var stack []int
	for i, r := range rows {
		for len(stack) > 0 && rows[stack[len(stack)-1]].Level >= r.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			parents[i] = -1
		} else {
			parents[i] = stack[len(stack)-1]
		}
		stack = append(stack, i)
	}
	return parents
}
