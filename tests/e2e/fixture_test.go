package main_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTree = `
- label: docs
  children:
    - label: guides
      children: [install, usage]
    - api
- label: src
  children: [main]
`

// newProjectFixture writes content to .treenav/tree.yaml in a fresh
// project directory.
func newProjectFixture(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".treenav"), 0755); err != nil {
		t.Fatal(err)
	}
	writeTree(t, dir, content)
	return dir
}

func writeTree(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".treenav", "tree.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// generateTree returns YAML for a complete tree with the given fan-out and
// depth. Labels encode their position, e.g. n1.3.2.
func generateTree(fanout, depth int) string {
	var sb strings.Builder
	var walk func(prefix string, level int)
	walk = func(prefix string, level int) {
		for i := 1; i <= fanout; i++ {
			label := fmt.Sprintf("%s.%d", prefix, i)
			indent := strings.Repeat("    ", level-1)
			fmt.Fprintf(&sb, "%s- label: %s\n", indent, label)
			if level < depth {
				fmt.Fprintf(&sb, "%s  children:\n", indent)
				walk(label, level+1)
			}
		}
	}
	walk("n", 1)
	return sb.String()
}

// treeSize is the number of branches generateTree produces.
func treeSize(fanout, depth int) int {
	n, layer := 0, 1
	for i := 0; i < depth; i++ {
		layer *= fanout
		n += layer
	}
	return n
}
