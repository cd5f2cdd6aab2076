package commands

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/Dicklesworthstone/treenav/pkg/config"
	"github.com/Dicklesworthstone/treenav/pkg/loader"
	"github.com/Dicklesworthstone/treenav/pkg/state"
)

// ErrAlreadyInitialized is returned when the project already has a config
// file and --force was not given.
var ErrAlreadyInitialized = zerr.New("project already initialized")

// initAnswers holds the values the init form edits.
type initAnswers struct {
	Data        string
	ExpandLevel int
	Backend     string
	Watch       bool
}

func (c *CLI) newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create .treenav/config.yaml for a project",
		Long: "Ask a few questions and write .treenav/config.yaml. The saved view\n" +
			"state file is added to .gitignore. Use --yes to accept the defaults\n" +
			"without prompting.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			force, _ := cmd.Flags().GetBool("force")

			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			path := config.ConfigPath(root)
			if _, err := os.Stat(path); err == nil && !force {
				return zerr.With(ErrAlreadyInitialized, "path", path)
			}

			answers := defaultAnswers(root)
			if !yes {
				form := initForm(&answers).
					WithInput(cmd.InOrStdin()).
					WithOutput(cmd.OutOrStdout())
				if err := form.RunWithContext(cmd.Context()); err != nil {
					return zerr.Wrap(err, "init form")
				}
			}

			cfg := answers.config()
			cfg.Root = root
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Write(path, cfg); err != nil {
				return err
			}
			if err := loader.EnsureGitignored(root, cfg.State.Path); err != nil {
				return err
			}
			cmd.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().Bool("force", false, "Overwrite an existing config")
	return cmd
}

// defaultAnswers prefills the form from the built-in defaults and any data
// file already present in root.
func defaultAnswers(root string) initAnswers {
	def := config.Default()
	a := initAnswers{
		Data:        filepath.Join(config.DirName, loader.DataFileNames[0]),
		ExpandLevel: def.ExpandLevel,
		Backend:     def.State.Backend,
		Watch:       def.Watch.Enabled,
	}
	if found, err := loader.FindDataFile(root); err == nil {
		if rel, err := filepath.Rel(root, found); err == nil {
			a.Data = rel
		}
	}
	return a
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tree data file").
				Description("JSON or YAML, relative to the project").
				Value(&a.Data).
				Validate(func(s string) error {
					if _, err := loader.FormatFromPath(s); err != nil {
						return err
					}
					return nil
				}),
			huh.NewSelect[int]().
				Title("Expand branches above level").
				Options(huh.NewOptions(1, 2, 3, 4, 5)...).
				Value(&a.ExpandLevel),
			huh.NewSelect[string]().
				Title("Save expand state in").
				Options(
					huh.NewOption("JSON file", state.BackendJSON),
					huh.NewOption("SQLite database", state.BackendSQLite),
				).
				Value(&a.Backend),
			huh.NewConfirm().
				Title("Reload when the data file changes?").
				Value(&a.Watch),
		),
	)
}

func (a initAnswers) config() config.Config {
	cfg := config.Default()
	cfg.Data = []string{filepath.ToSlash(a.Data)}
	cfg.ExpandLevel = a.ExpandLevel
	cfg.State.Backend = a.Backend
	if a.Backend == state.BackendSQLite {
		cfg.State.Path = filepath.Join(config.DirName, state.DBFileName)
	}
	cfg.Watch.Enabled = a.Watch
	return cfg
}
