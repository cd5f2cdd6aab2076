// Package export renders flattened tree rows as Markdown outlines and SVG
// images.
package export

import (
	"os"
	"strings"

	"go.trai.ch/zerr"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// MarkdownOptions controls GenerateMarkdown.
type MarkdownOptions struct {
	Title string
	Icons model.Icons

	// IncludeHidden also lists rows under collapsed branches.
	IncludeHidden bool

	// Descriptions appends each branch's description after its label.
	Descriptions bool
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
)

// GenerateMarkdown renders rows as a nested bullet outline. Branches with
// children are prefixed with their expand or collapse icon; leaves are not.
func GenerateMarkdown(rows []model.Row, opts MarkdownOptions) string {
	icons := opts.Icons.WithDefaults()
	var sb strings.Builder

	if opts.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(opts.Title)
		sb.WriteString("\n\n")
	}

	for _, r := range rows {
		if !r.Visible && !opts.IncludeHidden {
			continue
		}
		sb.WriteString(strings.Repeat("  ", r.Level-1))
		sb.WriteString("- ")
		if r.Icon != model.IconLeaf {
			sb.WriteString(icons.For(r.Icon))
			sb.WriteString(" ")
		}
		sb.WriteString(markdownEscaper.Replace(r.Label))
		if opts.Descriptions && r.Branch != nil && r.Branch.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(markdownEscaper.Replace(r.Branch.Description))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SaveMarkdownToFile writes the outline to filename.
func SaveMarkdownToFile(rows []model.Row, opts MarkdownOptions, filename string) error {
	content := GenerateMarkdown(rows, opts)
	if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
		return zerr.With(zerr.Wrap(err, "write markdown export"), "path", filename)
	}
	return nil
}
