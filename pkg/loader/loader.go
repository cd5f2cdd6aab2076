// Package loader reads tree data files and locates them on disk.
package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/treenav/pkg/model"
)

// StateDirName is the per-project directory holding tree data, config and
// saved view state.
const StateDirName = ".treenav"

// DataFileNames are the file names FindDataFile looks for, in order.
var DataFileNames = []string{"tree.json", "tree.yaml", "tree.yml"}

var (
	// ErrUnknownFormat is returned for files that are neither JSON nor YAML.
	ErrUnknownFormat = zerr.New("unknown tree data format")

	// ErrNoDataFile means no tree data file was found.
	ErrNoDataFile = zerr.New("no tree data file found")
)

// Format is a tree data encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", zerr.With(ErrUnknownFormat, "path", path)
	}
}

// Decode parses tree data in the given format. The document may be a list
// of branches or a single labeled branch; children may be branch objects or
// plain string labels.
func Decode(data []byte, format Format) (model.Forest, error) {
	var raw any
	switch format {
	case FormatJSON:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, model.ErrNoTreeData
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, zerr.Wrap(err, "decode json tree data")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, zerr.Wrap(err, "decode yaml tree data")
		}
	default:
		return nil, zerr.With(ErrUnknownFormat, "format", string(format))
	}
	return model.FromValue(raw)
}

// LoadForest reads and decodes a single tree data file.
func LoadForest(path string) (model.Forest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "read tree data"), "path", path)
	}
	forest, err := Decode(data, format)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return forest, nil
}

// LoadForests loads every path concurrently and concatenates the forests in
// the order the paths were given. The first error cancels the rest.
func LoadForests(ctx context.Context, paths []string) (model.Forest, error) {
	if len(paths) == 0 {
		return nil, model.ErrNoTreeData
	}
	results := make([]model.Forest, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			forest, err := LoadForest(path)
			if err != nil {
				return err
			}
			results[i] = forest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged model.Forest
	for _, f := range results {
		merged = append(merged, f...)
	}
	return merged, nil
}

// FindDataFile looks for a tree data file under dir/.treenav and then in
// dir itself.
func FindDataFile(dir string) (string, error) {
	for _, base := range []string{filepath.Join(dir, StateDirName), dir} {
		for _, name := range DataFileNames {
			candidate := filepath.Join(base, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", zerr.With(ErrNoDataFile, "dir", dir)
}
