package commands

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/export"
	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// ErrUnknownExportFormat is returned for a --format other than md, svg or
// html.
var ErrUnknownExportFormat = zerr.New("unknown export format")

func (c *CLI) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the tree as Markdown, SVG or HTML",
		Long: "Export the flattened tree. Only rows visible with the saved expand\n" +
			"state are exported unless --all is given. HTML always contains the\n" +
			"whole tree, with branches open as they are in the saved state.\n" +
			"Without -o the result is written to stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			all, _ := cmd.Flags().GetBool("all")
			title, _ := cmd.Flags().GetString("title")
			descriptions, _ := cmd.Flags().GetBool("descriptions")

			switch format {
			case "md", "svg", "html":
			default:
				return zerr.With(ErrUnknownExportFormat, "format", format)
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			f, err := newFlattener(cmd.Context(), sess, sess.forest)
			if err != nil {
				return err
			}
			rows := f.Rows()

			var buf bytes.Buffer
			switch format {
			case "md":
				buf.WriteString(export.GenerateMarkdown(rows, export.MarkdownOptions{
					Title:         title,
					Icons:         sess.cfg.Icons,
					IncludeHidden: all,
					Descriptions:  descriptions,
				}))
			case "svg":
				export.GenerateSVG(&buf, rows, export.SVGOptions{
					Icons:         sess.cfg.Icons,
					IncludeHidden: all,
				})
			case "html":
				hash, _ := f.Forest().Hash()
				page, err := export.GenerateHTML(f.Forest(), export.HTMLOptions{Title: title, DataHash: hash})
				if err != nil {
					return err
				}
				buf.WriteString(page)
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return zerr.With(zerr.Wrap(err, "write export"), "path", output)
			}
			sess.log.Info("exported tree",
				zap.String("format", format),
				zap.String("path", output),
				zap.Int("rows", countExported(rows, all)),
			)
			cmd.Printf("Wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().String("format", "md", "Output format: md, svg or html")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().Bool("all", false, "Include rows hidden under collapsed branches")
	cmd.Flags().String("title", "", "Markdown heading or HTML page title")
	cmd.Flags().Bool("descriptions", false, "Append branch descriptions in Markdown")
	return cmd
}

func countExported(rows []model.Row, all bool) int {
	n := 0
	for _, r := range rows {
		if all || r.Visible {
			n++
		}
	}
	return n
}
