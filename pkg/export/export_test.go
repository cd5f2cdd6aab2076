package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/model/modeltest"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

func rowsFor(t *testing.T, forest model.Forest, expandLevel int) []model.Row {
	t.Helper()
	f, err := tree.New(forest, tree.Options{ExpandLevel: expandLevel})
	if err != nil {
		t.Fatal(err)
	}
	return f.Rows()
}

func TestGenerateMarkdownGolden(t *testing.T) {
	tests := []struct {
		name   string
		forest model.Forest
		level  int
		title  string
	}{
		{"sample_outline", modeltest.Sample(), 3, ""},
		{"deep_outline", modeltest.Deep(), 2, "Deep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := GenerateMarkdown(rowsFor(t, tt.forest, tt.level), MarkdownOptions{Title: tt.title})
			g := goldie.New(t)
			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestGenerateMarkdownIncludeHidden(t *testing.T) {
	rows := rowsFor(t, modeltest.Deep(), 1)
	visible := GenerateMarkdown(rows, MarkdownOptions{})
	all := GenerateMarkdown(rows, MarkdownOptions{IncludeHidden: true})

	if strings.Count(visible, "\n") != 2 {
		t.Errorf("expected only the 2 roots, got:\n%s", visible)
	}
	if strings.Count(all, "\n") != len(rows) {
		t.Errorf("expected all %d rows, got:\n%s", len(rows), all)
	}
	if !strings.Contains(all, "    - install") {
		t.Errorf("expected install indented at level 3, got:\n%s", all)
	}
}

func TestGenerateMarkdownEscapesAndDescriptions(t *testing.T) {
	forest := model.Forest{{Label: "a_b *c*", Description: "see [docs]", Children: []*model.Branch{}}}
	out := GenerateMarkdown(rowsFor(t, forest, 3), MarkdownOptions{Descriptions: true})
	want := "- a\\_b \\*c\\*: see \\[docs\\]\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.md")
	if err := SaveMarkdownToFile(rowsFor(t, modeltest.Sample(), 3), MarkdownOptions{Title: "T"}, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# T\n") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestGenerateSVG(t *testing.T) {
	forest := modeltest.Deep()
	forest[1].Label = "src <main>"
	rows := rowsFor(t, forest, 2)

	var buf bytes.Buffer
	GenerateSVG(&buf, rows, SVGOptions{})
	out := buf.String()

	if !strings.Contains(out, "<svg") || !strings.Contains(out, "</svg>") {
		t.Fatalf("expected an svg document, got:\n%s", out)
	}
	if n := strings.Count(out, "<text"); n != 5 {
		t.Errorf("expected 5 text rows for the visible rows, got %d", n)
	}
	// 3 visible rows have a parent, each gets two connector segments.
	if n := strings.Count(out, "<line"); n != 6 {
		t.Errorf("expected 6 connector lines, got %d", n)
	}
	if strings.Contains(out, "<main>") || !strings.Contains(out, "&lt;main&gt;") {
		t.Error("expected labels to be XML escaped")
	}

	buf.Reset()
	GenerateSVG(&buf, rows, SVGOptions{IncludeHidden: true})
	if n := strings.Count(buf.String(), "<text"); n != len(rows) {
		t.Errorf("expected %d text rows with hidden rows included, got %d", len(rows), n)
	}
}
