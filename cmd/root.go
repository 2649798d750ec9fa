// Package cmd implements the linetrace CLI surface spec §6 names:
// track-changes, pre-commit, post-commit, pre-push, rollup,
// rollup-squash, plus a query group for the Query API (C7). Every
// hook-invoked subcommand catches its errors here and logs them via
// internal/debug instead of returning them to cobra. Most failures exit
// 0; a few worth surfacing to scripting (a busy staging lock, a failed
// post-commit write, a failed pre-push) exit hookExitCode (1); pre-commit
// always exits 0 so the commit itself is never aborted; genuinely
// invalid arguments exit 2 per spec §6.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/debug"
	"github.com/linetrace/linetrace/internal/project"
)

var rootCmd = &cobra.Command{
	Use:           "linetrace",
	Short:         "Track which lines of code an AI coding assistant authored",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. It is the sole entry point main() calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

// hookExitCode is 1, the "recoverable internal error" code spec §6
// reserves for hook subcommands — still success from the user's git
// operation's point of view, just worth a non-zero process exit for
// scripting.
const hookExitCode = 1

// logAndContinue implements spec §7's propagation policy for a hook
// subcommand: log the failure to <tracking-dir>/logs/<logName>, tell
// the user on stderr, and let the caller exit 0 (or hookExitCode if the
// caller chooses) rather than ever returning a cobra error that would
// abort the user's git hook.
func logAndContinue(paths project.Paths, logName, message string, err error) {
	detail := "(no error detail)"
	if err != nil {
		detail = err.Error()
	}
	fmt.Fprintf(os.Stderr, "linetrace: %s: %s\n", message, detail)
	debug.Log(paths.TrackingDir, logName, message, map[string]string{"error": detail})
}

// loadPaths resolves the project root and tracking-dir layout, the
// first step of every subcommand. Failure here (not inside a git repo)
// is reported but still does not block the caller by default; hook
// subcommands call this and simply return early on error.
func loadPaths() (project.Paths, error) {
	root, err := project.FindRoot()
	if err != nil {
		return project.Paths{}, err
	}
	return project.NewPaths(root), nil
}
