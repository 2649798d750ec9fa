// Package pathutil normalizes file paths to the project-relative,
// forward-slash form used everywhere in staging entries and annotations,
// so the same path string round-trips identically on any OS.
package pathutil

import "path/filepath"

// Relativize converts an absolute path to a path relative to projectDir,
// always using forward slashes.
func Relativize(absPath, projectDir string) string {
	if absPath == "" {
		return ""
	}
	rel, err := filepath.Rel(projectDir, absPath)
	if err != nil {
		return absPath
	}
	return filepath.ToSlash(rel)
}
