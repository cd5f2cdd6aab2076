// Package config loads treenav settings.
//
// Precedence, highest first:
//  1. command line flags (applied by the caller)
//  2. TREENAV_* environment variables
//  3. .treenav/config.yaml
//  4. defaults
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.trai.ch/zerr"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/treenav/pkg/logging"
	"github.com/Dicklesworthstone/treenav/pkg/model"
	"github.com/Dicklesworthstone/treenav/pkg/state"
	"github.com/Dicklesworthstone/treenav/pkg/watcher"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TREENAV_"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = zerr.New("invalid configuration")

// Config is the full treenav configuration.
type Config struct {
	Data             []string       `koanf:"data" yaml:"data,omitempty"`
	InitialSelection string         `koanf:"initial_selection" yaml:"initial_selection,omitempty"`
	ExpandLevel      int            `koanf:"expand_level" yaml:"expand_level"`
	Icons            model.Icons    `koanf:"icons" yaml:"icons"`
	State            StateConfig    `koanf:"state" yaml:"state"`
	Watch            WatchConfig    `koanf:"watch" yaml:"watch"`
	Log              logging.Config `koanf:"log" yaml:"log"`

	// Root is the project directory relative paths are resolved against.
	Root string `koanf:"-" yaml:"-"`
}

// StateConfig selects where expand state is saved.
type StateConfig struct {
	Backend string `koanf:"backend" yaml:"backend"`
	Path    string `koanf:"path" yaml:"path"`
}

// WatchConfig controls reloading when data files change.
type WatchConfig struct {
	Enabled  bool          `koanf:"enabled" yaml:"enabled"`
	Debounce time.Duration `koanf:"debounce" yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ExpandLevel: 3,
		Icons:       model.DefaultIcons(),
		State: StateConfig{
			Backend: state.BackendJSON,
			Path:    filepath.Join(DirName, state.FileName),
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: watcher.DefaultDebounce,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// sections are the nested keys; env names starting with one of them map
// to section.field.
var sections = []string{"icons", "state", "watch", "log"}

func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	for _, s := range sections {
		if strings.HasPrefix(key, s+"_") {
			return s + "." + strings.TrimPrefix(key, s+"_")
		}
	}
	return key
}

// Load reads configuration from path, or from the discovered project's
// .treenav/config.yaml when path is empty. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	var root string
	if path != "" {
		root = projectRootFor(path)
	} else if found, ok := DetectProjectRoot(); ok {
		root = found
		path = ConfigPath(root)
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, zerr.Wrap(err, "get working directory")
		}
		root = wd
	}
	cfg.Root = root

	k := koanf.New(".")
	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, zerr.With(zerr.Wrap(err, "parse config file"), "path", path)
			}
		case !os.IsNotExist(err):
			return nil, zerr.With(zerr.Wrap(err, "read config file"), "path", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, zerr.Wrap(err, "load environment")
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, zerr.Wrap(err, "decode config")
	}

	cfg.Icons = cfg.Icons.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// projectRootFor guesses the project root from a config path: the parent of
// a .treenav directory, or the file's own directory.
func projectRootFor(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	dir := filepath.Dir(abs)
	if filepath.Base(dir) == DirName {
		return filepath.Dir(dir)
	}
	return dir
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.ExpandLevel < 1 {
		return zerr.With(ErrInvalidConfig, "expand_level", c.ExpandLevel)
	}
	switch c.State.Backend {
	case state.BackendJSON, state.BackendSQLite:
	default:
		return zerr.With(ErrInvalidConfig, "state.backend", c.State.Backend)
	}
	if c.Watch.Debounce < 0 {
		return zerr.With(ErrInvalidConfig, "watch.debounce", c.Watch.Debounce.String())
	}
	return nil
}

// Resolve makes path absolute against the project root.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// DataPaths returns the configured data files resolved against the root.
func (c *Config) DataPaths() []string {
	out := make([]string, 0, len(c.Data))
	for _, p := range c.Data {
		out = append(out, c.Resolve(p))
	}
	return out
}

// LogPath returns the resolved log file path, or "" when logging is off.
func (c *Config) LogPath() string {
	return c.Resolve(c.Log.File)
}

// StatePath returns the resolved state file path.
func (c *Config) StatePath() string {
	return c.Resolve(c.State.Path)
}

// Write saves cfg as YAML to path, creating the directory if needed.
func Write(path string, cfg Config) error {
	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return zerr.Wrap(err, "encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerr.Wrap(err, "create config directory")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return zerr.With(zerr.Wrap(err, "write config file"), "path", path)
	}
	return nil
}
