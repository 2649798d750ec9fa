package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/stage"
)

var postCommitCmd = &cobra.Command{
	Use:   "post-commit",
	Short: "Write the pending record's annotation onto the new commit and clear staging (C4)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return nil
		}

		data, err := os.ReadFile(paths.PendingFile)
		if err != nil {
			// spec S4: no pending record means no tracking happened for
			// this commit; nothing to annotate.
			return nil
		}

		var pending annotation.PendingRecord
		if err := json.Unmarshal(data, &pending); err != nil {
			logAndContinue(paths, "post-commit.log", "corrupt pending record", err)
			os.Remove(paths.PendingFile)
			return nil
		}
		if pending.IsEmpty() && len(pending.ReconciledPaths) == 0 {
			os.Remove(paths.PendingFile)
			return nil
		}

		lock, err := stage.Acquire(paths.LockFile)
		if err != nil {
			logAndContinue(paths, "post-commit.log", "staging lock unavailable", err)
			os.Exit(hookExitCode)
		}
		defer lock.Release()

		if !pending.IsEmpty() {
			commitID := gitplumb.HeadSHA(paths.Root)
			if commitID == "" {
				logAndContinue(paths, "post-commit.log", "no HEAD commit to annotate", nil)
			} else if err := annotation.Write(paths.Root, paths.GitDir, commitID, pending.ToRecord()); err != nil {
				// spec §7 RefUpdateConflict: retried inside annotation.Write;
				// having exhausted retries here we log and give up, the
				// commit itself is never undone.
				logAndContinue(paths, "post-commit.log", "annotate commit failed", err)
				os.Exit(hookExitCode)
			}
		}

		// Every path C3 reconciled is now committed, whether or not its
		// surviving claim was non-empty: its staging entry must go, per
		// spec §6's "until the next successful commit."
		for _, path := range pending.ReconciledPaths {
			_ = stage.Remove(paths.TrackingDir, path)
		}
		os.Remove(paths.PendingFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postCommitCmd)
}
