package config

import (
	"os"
	"path/filepath"
)

// DirName is the per-project directory holding config, tree data and
// saved state.
const DirName = ".treenav"

// FileName is the config file name inside DirName.
const FileName = "config.yaml"

// DetectProjectRoot finds the current project by walking up from the
// working directory looking for .treenav/.
func DetectProjectRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return findProjectRoot(dir)
}

// findProjectRoot walks up from dir looking for a .treenav/ directory. It
// stops at the filesystem root or the home directory.
func findProjectRoot(dir string) (string, bool) {
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return dir, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", false
}

// ConfigPath returns the config file path for a project root.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, FileName)
}
