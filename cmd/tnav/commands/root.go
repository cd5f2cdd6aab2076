// Package commands implements the tnav command line interface.
package commands

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/treenav/pkg/version"
)

// CLI represents the command line interface for tnav.
type CLI struct {
	rootCmd *cobra.Command

	// teaOptions are appended to the Bubble Tea program options.
	teaOptions []tea.ProgramOption
}

// New creates the command tree.
func New() *CLI {
	c := &CLI{}

	rootCmd := &cobra.Command{
		Use:           "tnav",
		Short:         "Navigate a collapsible tree in the terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		RunE:          c.runTUI,
	}
	rootCmd.SetVersionTemplate("{{.Name}} version " + version.String() + "\n")

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: .treenav/config.yaml in the project)")
	pf.StringSlice("data", nil, "Tree data file (JSON or YAML); repeat to merge several")
	pf.String("select", "", "Label of the branch selected at startup")
	pf.Int("expand-level", 0, "Branches above this level start expanded")
	pf.String("log-file", "", "Write logs to this file")

	rootCmd.Flags().Bool("no-watch", false, "Do not reload when data files change")

	c.rootCmd = rootCmd
	rootCmd.AddCommand(c.newRowsCmd())
	rootCmd.AddCommand(c.newExportCmd())
	rootCmd.AddCommand(c.newInitCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetInput sets the input stream. Used for testing.
func (c *CLI) SetInput(in io.Reader) {
	c.rootCmd.SetIn(in)
}

// WithTeaOptions adds Bubble Tea program options, e.g. to run headless in
// tests.
func (c *CLI) WithTeaOptions(opts ...tea.ProgramOption) {
	c.teaOptions = append(c.teaOptions, opts...)
}
