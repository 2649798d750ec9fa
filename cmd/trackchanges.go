package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/event"
	"github.com/linetrace/linetrace/internal/stage"
)

var trackChangesCmd = &cobra.Command{
	Use:   "track-changes",
	Short: "Ingest a tool-event payload from stdin and update the staging store (C2)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			// Not inside a git repository: nothing to track against.
			// Hooks must never fail the caller's workflow over this.
			return nil
		}

		ev, err := event.Parse(os.Stdin)
		if err != nil {
			// spec §7 InvalidEvent: logged and dropped, never surfaced.
			logAndContinue(paths, "track-changes.log", "invalid tool event", err)
			return nil
		}

		ext, err := event.Extract(ev, paths.Root)
		if err != nil {
			logAndContinue(paths, "track-changes.log", "invalid tool event", err)
			return nil
		}

		lock, err := stage.Acquire(paths.LockFile)
		if err != nil {
			logAndContinue(paths, "track-changes.log", "staging lock unavailable", err)
			os.Exit(hookExitCode)
		}
		defer lock.Release()

		if err := stage.Apply(paths.TrackingDir, ext); err != nil {
			// spec §7 StagingIOError: abort this write, tell the user's
			// editor/hook success so their workflow is not blocked.
			logAndContinue(paths, "track-changes.log", "staging write failed", err)
			return nil
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trackChangesCmd)
}
