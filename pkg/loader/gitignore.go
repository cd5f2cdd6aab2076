package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

const gitignoreHeader = "# treenav saved view state"

// EnsureGitignored makes sure entry (a path relative to projectDir, such as
// ".treenav/tree-state.json") is listed in projectDir/.gitignore. Tree data
// and config under .treenav stay tracked; only the saved view state is
// local.
//
// An empty projectDir means the working directory. Existing content is
// preserved and calling it again is a no-op.
func EnsureGitignored(projectDir, entry string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}
	entry = filepath.ToSlash(filepath.Clean(entry))

	gitignorePath := filepath.Join(projectDir, ".gitignore")
	present, err := isIgnored(gitignorePath, entry)
	if err != nil && !os.IsNotExist(err) {
		return zerr.With(zerr.Wrap(err, "read .gitignore"), "path", gitignorePath)
	}
	if present {
		return nil
	}
	if err := appendToGitignore(gitignorePath, entry); err != nil {
		return zerr.With(zerr.Wrap(err, "update .gitignore"), "path", gitignorePath)
	}
	return nil
}

func isIgnored(path, entry string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversEntry(line, entry) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// coversEntry reports whether a gitignore line already ignores entry,
// either literally or by ignoring its whole directory.
func coversEntry(line, entry string) bool {
	normalized := strings.TrimPrefix(line, "/")
	if normalized == entry {
		return true
	}
	dir := filepath.ToSlash(filepath.Dir(entry))
	if dir == "." {
		return false
	}
	for _, pattern := range []string{dir, dir + "/", dir + "/*", dir + "/**"} {
		if normalized == pattern {
			return true
		}
	}
	return false
}

func appendToGitignore(path, entry string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) == 0 {
		toWrite = gitignoreHeader + "\n" + entry + "\n"
	} else {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n" + gitignoreHeader + "\n" + entry + "\n"
	}
	_, err = file.WriteString(toWrite)
	return err
}
