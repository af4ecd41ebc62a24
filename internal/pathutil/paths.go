// Package pathutil provides path helpers for riskloop's working directories
// and report files.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/riskloop/internal/constants"
)

// RedactPath reduces a full path to .../<parent>/<basename> for safe error messages.
// For example, "/home/user/.riskloop/config.yaml" becomes ".../.riskloop/config.yaml".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	dir := filepath.Dir(cleaned)
	base := filepath.Base(cleaned)
	parent := filepath.Base(dir)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// ProjectDir returns <root>/.riskloop.
func ProjectDir(root string) string {
	return filepath.Join(root, constants.DirName)
}

// EnsureProjectDir creates <root>/.riskloop if needed and returns its path.
func EnsureProjectDir(root string) (string, error) {
	dir := ProjectDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", constants.DirName, err)
	}
	return dir, nil
}

// ResolveOutput validates a report path and resolves bare file names against
// outDir. Absolute paths and paths with a directory component are used as
// given. The parent directory must already exist.
func ResolveOutput(path, outDir string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("output path is empty")
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("output path contains null byte")
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) && filepath.Dir(resolved) == "." && outDir != "" {
		resolved = filepath.Join(outDir, resolved)
	}

	parent := filepath.Dir(resolved)
	info, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("output directory %q: %w", RedactPath(parent), err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output directory %q is not a directory", RedactPath(parent))
	}
	return resolved, nil
}
