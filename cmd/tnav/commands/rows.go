package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/state"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

// rowJSON is the machine-readable form of a row.
type rowJSON struct {
	UID     uint64 `json:"uid"`
	Level   int    `json:"level"`
	Icon    string `json:"icon"`
	Label   string `json:"label"`
	Path    string `json:"path"`
	Visible bool   `json:"visible"`
	Context bool   `json:"context,omitempty"`
}

func (c *CLI) newRowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print the flattened rows",
		Long: "Print the flattened rows of the tree: uid, level, icon and label.\n" +
			"Only visible rows are printed unless --all is given. Saved expand\n" +
			"state is applied first, so the output matches the interactive view.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			query, _ := cmd.Flags().GetString("filter")
			asJSON, _ := cmd.Flags().GetBool("json")

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			f, err := newFlattener(cmd.Context(), sess, sess.forest)
			if err != nil {
				return err
			}
			rows := selectRows(f, all, query)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeRowsJSON(out, f, rows)
			}
			writeRowsTable(out, rows, sess.cfg.Icons.For, outputWidth(out))
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Include rows hidden under collapsed branches")
	cmd.Flags().String("filter", "", "Only rows fuzzy-matching this query, with their ancestors")
	cmd.Flags().Bool("json", false, "Output JSON")
	return cmd
}

// newFlattener builds a flattener for forest and applies saved expand
// state. Selection callbacks are not needed outside the interactive view.
func newFlattener(ctx context.Context, sess *session, forest model.Forest) (*tree.Flattener, error) {
	f, err := tree.New(forest, sess.treeOptions(nil))
	if err != nil {
		return nil, err
	}
	store, err := state.Open(ctx, sess.cfg.State.Backend, sess.cfg.StatePath())
	if err != nil {
		sess.log.Warn("tree state unavailable", zap.Error(err))
		return f, nil
	}
	defer store.Close()

	saved, err := store.Load(ctx)
	if err != nil {
		sess.log.Warn("loading tree state", zap.Error(err))
	}
	if state.Apply(f.Forest(), saved) > 0 {
		f.Invalidate()
	}
	return f, nil
}

// selectRows picks the rows to print. A filter query wins over all.
func selectRows(f *tree.Flattener, all bool, query string) []tree.FilteredRow {
	if query != "" {
		return f.Filter(query)
	}
	var out []tree.FilteredRow
	for _, r := range f.Rows() {
		if all || r.Visible {
			out = append(out, tree.FilteredRow{Row: r})
		}
	}
	return out
}

func writeRowsJSON(w io.Writer, f *tree.Flattener, rows []tree.FilteredRow) error {
	out := make([]rowJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowJSON{
			UID:     r.UID,
			Level:   r.Level,
			Icon:    r.Icon.String(),
			Label:   r.Label,
			Path:    f.Forest().PathOf(r.Branch),
			Visible: r.Visible,
			Context: r.Context,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeRowsTable prints one line per row. Labels are cut to width when it
// is positive.
func writeRowsTable(w io.Writer, rows []tree.FilteredRow, icon func(model.TreeIcon) string, width int) {
	for _, r := range rows {
		line := fmt.Sprintf("%4d %2d %s%s %s", r.UID, r.Level, strings.Repeat("  ", r.Level-1), icon(r.Icon), r.Label)
		if !r.Visible {
			line += " (hidden)"
		}
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		_, _ = fmt.Fprintln(w, line)
	}
}

// outputWidth returns the terminal width when w is a terminal, otherwise 0.
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}
