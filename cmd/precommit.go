package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/reconcile"
	"github.com/linetrace/linetrace/internal/stage"
)

var preCommitCmd = &cobra.Command{
	Use:   "pre-commit",
	Short: "Reconcile staged AI claims against the about-to-be-committed blobs (C3)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return nil
		}

		lock, err := stage.Acquire(paths.LockFile)
		if err != nil {
			logAndContinue(paths, "pre-commit.log", "staging lock unavailable", err)
			return nil
		}
		defer lock.Release()

		pending, err := reconcile.Run(paths.Root, paths.TrackingDir)
		if err != nil {
			// spec §4.3: "on any unrecoverable error the commit is still
			// allowed to proceed without an annotation."
			logAndContinue(paths, "pre-commit.log", "reconciliation failed", err)
			return nil
		}

		if pending.IsEmpty() && len(pending.ReconciledPaths) == 0 {
			// spec §4.3/S4: no tracking for this commit, no pending record.
			os.Remove(paths.PendingFile)
			return nil
		}

		data, err := json.Marshal(pending)
		if err != nil {
			logAndContinue(paths, "pre-commit.log", "marshal pending record failed", err)
			return nil
		}
		if err := stage.AtomicWrite(paths.PendingFile, data); err != nil {
			logAndContinue(paths, "pre-commit.log", "write pending record failed", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preCommitCmd)
}
