package tree_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Dicklesworthstone/treenav/pkg/model/modeltest"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

type filteredSummary struct {
	Label   string
	Context bool
}

func summarizeFiltered(rows []tree.FilteredRow) []filteredSummary {
	out := make([]filteredSummary, len(rows))
	for i, r := range rows {
		out[i] = filteredSummary{r.Label, r.Context}
	}
	return out
}

func TestFilterShowsAncestorsAsContext(t *testing.T) {
	f, err := tree.New(modeltest.Deep(), tree.Options{})
	if err != nil {
		t.Fatal(err)
	}
	f.CollapseAll()

	got := f.Filter("usage")
	want := []filteredSummary{
		{"docs", true},
		{"guides", true},
		{"usage", false},
	}
	if diff := cmp.Diff(want, summarizeFiltered(got)); diff != "" {
		t.Errorf("filtered rows mismatch (-want +got):\n%s", diff)
	}
	if len(got[2].Matched) != len("usage") {
		t.Errorf("expected every character of usage matched, got %v", got[2].Matched)
	}
}

func TestFilterEmptyQueryReturnsVisibleRows(t *testing.T) {
	f, err := tree.New(modeltest.Deep(), tree.Options{ExpandLevel: 2})
	if err != nil {
		t.Fatal(err)
	}
	got := f.Filter("  ")
	if len(got) != len(f.VisibleRows()) {
		t.Errorf("expected %d rows, got %d", len(f.VisibleRows()), len(got))
	}
	for _, r := range got {
		if r.Context {
			t.Errorf("unexpected context row %q", r.Label)
		}
	}
}

func TestFilterNoMatches(t *testing.T) {
	f, _ := newSample(t, tree.Options{})
	if got := f.Filter("zzz"); len(got) != 0 {
		t.Errorf("expected no rows, got %+v", summarizeFiltered(got))
	}
}

func TestFilterMatchedAncestorIsNotContext(t *testing.T) {
	f, err := tree.New(modeltest.Deep(), tree.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range f.Filter("src") {
		if r.Label == "src" && r.Context {
			t.Error("expected a matching row never to be marked as context")
		}
	}
}
