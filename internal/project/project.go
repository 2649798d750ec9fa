// Package project resolves the filesystem layout a linetrace-enabled
// repository uses: the git root, the real .git directory (honoring
// worktrees), and the tracking-dir layout spec §6 mandates.
package project

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/linetrace/linetrace/internal/annotation"
)

// Paths holds all relevant directories for a linetrace-enabled repo.
type Paths struct {
	Root          string // git repo root
	GitDir        string // actual .git directory (resolved for worktrees)
	TrackingDir   string // <gitdir>/linetrace/ — staging entries, one <path>.json per file
	PendingFile   string // <gitdir>/linetrace/pending_commit_metadata.json
	ArchiveDir    string // <gitdir>/linetrace/archive/
	LogDir        string // <gitdir>/linetrace/logs/
	IndexDB       string // <gitdir>/linetrace/index.db
	LockFile      string // <gitdir>/linetrace/.lock
}

// FindRoot returns the git project root, preferring CLAUDE_PROJECT_DIR if set.
func FindRoot() (string, error) {
	if dir := os.Getenv("CLAUDE_PROJECT_DIR"); dir != "" {
		return dir, nil
	}
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not inside a git repository")
	}
	return strings.TrimSpace(string(out)), nil
}

// NewPaths constructs all path constants from a project root.
func NewPaths(root string) Paths {
	gitDir := resolveGitDir(root)
	trackingDir := filepath.Join(gitDir, "linetrace")
	return Paths{
		Root:        root,
		GitDir:      gitDir,
		TrackingDir: trackingDir,
		PendingFile: filepath.Join(trackingDir, "pending_commit_metadata.json"),
		ArchiveDir:  filepath.Join(trackingDir, "archive"),
		LogDir:      filepath.Join(trackingDir, "logs"),
		IndexDB:     filepath.Join(trackingDir, "index.db"),
		LockFile:    filepath.Join(trackingDir, ".lock"),
	}
}

// resolveGitDir returns the actual .git directory, handling worktrees
// where .git is a file containing "gitdir: <path>".
func resolveGitDir(root string) string {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Lstat(dotGit)
	if err != nil {
		return dotGit
	}
	if info.IsDir() {
		return dotGit
	}
	// .git is a file (worktree) — read the gitdir pointer
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return dotGit
	}
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, "gitdir: ") {
		return dotGit
	}
	gitdir := strings.TrimPrefix(content, "gitdir: ")
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(root, gitdir)
	}
	return gitdir
}

// IsInitialized returns true if the annotation metadata ref already
// exists in this repository.
func IsInitialized(root string) bool {
	cmd := exec.Command("git", "rev-parse", "--verify", "--quiet", annotation.RefName)
	cmd.Dir = root
	return cmd.Run() == nil
}
