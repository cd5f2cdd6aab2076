package commands

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/state"
	"github.com/Dicklesworthstone/treenav/pkg/ui"
)

func (c *CLI) runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	log := sess.log

	onSelect := func(b *model.Branch) {
		log.Info("branch selected", zap.String("label", b.Label), zap.Uint64("uid", b.UID))
	}
	theme := ui.DefaultTheme(lipgloss.NewRenderer(os.Stdout))
	tm, err := ui.NewTreeModel(theme, sess.forest, sess.treeOptions(onSelect))
	if err != nil {
		return err
	}
	if sel := sess.cfg.InitialSelection; sel != "" && tm.Selected() == nil {
		log.Warn("initial selection not found", zap.String("label", sel))
	}

	store, err := state.Open(ctx, sess.cfg.State.Backend, sess.cfg.StatePath())
	if err != nil {
		log.Warn("tree state disabled", zap.Error(err))
	} else {
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("closing tree state", zap.Error(err))
			}
		}()
		tm.SetStore(ctx, store, log)
	}

	noWatch, _ := cmd.Flags().GetBool("no-watch")
	var worker *ui.BackgroundWorker
	if sess.cfg.Watch.Enabled && !noWatch {
		worker, err = ui.NewBackgroundWorker(ui.WorkerConfig{
			Paths:         sess.paths,
			DebounceDelay: sess.cfg.Watch.Debounce,
			Logger:        log,
			Watch:         true,
		})
		if err != nil {
			log.Warn("file watching disabled", zap.Error(err))
			worker = nil
		} else if hash, err := sess.forest.Hash(); err == nil {
			worker.SeedHash(hash)
		}
	}

	m := ui.NewModel(theme, tm, worker, log)
	opts := append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	}, c.teaOptions...)
	p := tea.NewProgram(m, opts...)

	if worker != nil {
		worker.SetProgram(p)
		if err := worker.Start(); err != nil {
			log.Warn("file watching disabled", zap.Error(err))
		}
		defer worker.Stop()
	}

	_, err = p.Run()
	return err
}
