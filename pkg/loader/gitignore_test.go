package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const stateEntry = ".treenav/tree-state.json"

func TestCoversEntry(t *testing.T) {
	tests := []struct {
		line    string
		matches bool
	}{
		{".treenav/tree-state.json", true},
		{"/.treenav/tree-state.json", true},
		{".treenav", true},
		{".treenav/", true},
		{".treenav/*", true},
		{"/.treenav/**", true},

		{"", false},
		{"tree-state.json", false},
		{".treenav2/", false},
		{".treenav/tree.yaml", false},
		{"*.json", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := coversEntry(tt.line, stateEntry); got != tt.matches {
				t.Errorf("coversEntry(%q) = %v, want %v", tt.line, got, tt.matches)
			}
		})
	}
}

func TestIsIgnored(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"empty file", "", false},
		{"has entry", "node_modules/\n.treenav/tree-state.json\n", true},
		{"has directory", ".treenav/\n", true},
		{"commented out", "# .treenav/tree-state.json\n", false},
		{"with whitespace", "  .treenav/tree-state.json  \n", true},
		{"different pattern", "node_modules/\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".gitignore")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}
			got, err := isIgnored(path, stateEntry)
			if err != nil {
				t.Fatalf("isIgnored() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("isIgnored() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppendToGitignore(t *testing.T) {
	tests := []struct {
		name            string
		existingContent string
		wantPrefix      string
	}{
		{"new file", "", "#"},
		{"existing file with newline", "node_modules/\n", "node_modules/\n\n#"},
		{"existing file without trailing newline", "node_modules/", "node_modules/\n\n#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".gitignore")
			if tt.existingContent != "" {
				if err := os.WriteFile(path, []byte(tt.existingContent), 0644); err != nil {
					t.Fatalf("failed to write existing file: %v", err)
				}
			}

			if err := appendToGitignore(path, stateEntry); err != nil {
				t.Fatalf("appendToGitignore() error = %v", err)
			}
			content, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read result: %v", err)
			}
			if !strings.HasPrefix(string(content), tt.wantPrefix) {
				t.Errorf("expected file to start with %q, got:\n%s", tt.wantPrefix, content)
			}
			if !strings.HasSuffix(string(content), stateEntry+"\n") {
				t.Errorf("expected entry on the last line, got:\n%s", content)
			}
		})
	}
}

func TestEnsureGitignored(t *testing.T) {
	t.Run("creates gitignore if not exists", func(t *testing.T) {
		dir := t.TempDir()
		if err := EnsureGitignored(dir, stateEntry); err != nil {
			t.Fatalf("EnsureGitignored() error = %v", err)
		}
		content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
		if err != nil {
			t.Fatalf("failed to read .gitignore: %v", err)
		}
		if !strings.Contains(string(content), stateEntry) {
			t.Errorf("expected %s in .gitignore, got:\n%s", stateEntry, content)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		dir := t.TempDir()
		for i := 0; i < 2; i++ {
			if err := EnsureGitignored(dir, stateEntry); err != nil {
				t.Fatalf("EnsureGitignored() error = %v", err)
			}
		}
		content, _ := os.ReadFile(filepath.Join(dir, ".gitignore"))
		if n := strings.Count(string(content), stateEntry); n != 1 {
			t.Errorf("expected exactly 1 occurrence, got %d:\n%s", n, content)
		}
	})

	t.Run("respects directory pattern", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".gitignore")
		if err := os.WriteFile(path, []byte(".treenav/\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := EnsureGitignored(dir, stateEntry); err != nil {
			t.Fatal(err)
		}
		content, _ := os.ReadFile(path)
		if strings.Contains(string(content), gitignoreHeader) {
			t.Errorf("should not append when the directory is ignored, got:\n%s", content)
		}
	})
}

func TestEnsureGitignoredUsesCurrentDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if err := EnsureGitignored("", stateEntry); err != nil {
		t.Fatalf("EnsureGitignored() error = %v", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if !strings.Contains(string(content), stateEntry) {
		t.Errorf("expected entry in .gitignore, got:\n%s", content)
	}
}
