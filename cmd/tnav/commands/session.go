package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/treenav/pkg/config"
	"github.com/Dicklesworthstone/treenav/pkg/loader"
	"github.com/Dicklesworthstone/treenav/pkg/logging"
	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/tree"
)

// session is the configuration, logger and tree data shared by commands.
type session struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
	paths    []string
	forest   model.Forest
}

// openSession loads configuration, applies command line overrides, opens
// the log and reads the tree data.
func openSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	cfgPath, _ := flags.GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	logCfg.File = cfg.LogPath()
	log, closeLog, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	paths, err := dataPaths(cfg)
	if err != nil {
		closeLog()
		return nil, err
	}
	forest, err := loader.LoadForests(cmd.Context(), paths)
	if err != nil {
		closeLog()
		return nil, err
	}
	log.Info("loaded tree data",
		zap.Strings("paths", paths),
		zap.Int("branches", forest.Count()),
	)

	return &session{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		paths:    paths,
		forest:   forest,
	}, nil
}

func (s *session) Close() {
	s.closeLog()
}

// treeOptions builds flattener options from the configuration.
func (s *session) treeOptions(onSelect tree.SelectFunc) tree.Options {
	return tree.Options{
		ExpandLevel:      s.cfg.ExpandLevel,
		InitialSelection: s.cfg.InitialSelection,
		Icons:            s.cfg.Icons,
		OnSelect:         onSelect,
	}
}

// applyFlags overrides configuration with flags set on the command line.
// Paths given as flags are relative to the working directory.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) error {
	if flags.Changed("data") {
		data, _ := flags.GetStringSlice("data")
		cfg.Data = cfg.Data[:0]
		for _, p := range data {
			abs, err := filepath.Abs(p)
			if err != nil {
				return err
			}
			cfg.Data = append(cfg.Data, abs)
		}
	}
	if flags.Changed("select") {
		cfg.InitialSelection, _ = flags.GetString("select")
	}
	if flags.Changed("expand-level") {
		cfg.ExpandLevel, _ = flags.GetInt("expand-level")
	}
	if flags.Changed("log-file") {
		p, _ := flags.GetString("log-file")
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		cfg.Log.File = abs
	}
	return cfg.Validate()
}

// dataPaths returns the configured data files, or the one found in the
// project when none are configured.
func dataPaths(cfg *config.Config) ([]string, error) {
	if len(cfg.Data) > 0 {
		return cfg.DataPaths(), nil
	}
	p, err := loader.FindDataFile(cfg.Root)
	if err != nil {
		return nil, err
	}
	return []string{p}, nil
}
