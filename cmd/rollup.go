package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/gitplumb"
	"github.com/linetrace/linetrace/internal/rollup"
)

var (
	rollupBase   string
	rollupHead   string
	rollupCommit string
)

// rollupCmd implements spec §6's `rollup --base B --head H`: walk the
// still-reachable commit sequence (B, H] and write the resulting
// annotation onto --commit (HEAD by default). This is the path used
// when the squash commit's own history has not yet replaced
// C_1..C_k — e.g. immediately after `git merge --squash` but before the
// squash commit itself is created, or any time the individual commits
// are still resolvable from base..head. When they are not (a hub
// already discarded them during the squash), use rollup-squash instead.
var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Compute and write the squash-merge annotation from B..H (C6)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return err
		}
		if rollupBase == "" || rollupHead == "" {
			return rollupUsageError()
		}

		target := rollupCommit
		if target == "" {
			target = gitplumb.HeadSHA(paths.Root)
		}
		if target == "" {
			logAndContinue(paths, "rollup.log", "no commit to annotate", nil)
			os.Exit(hookExitCode)
		}

		commits, err := gitplumb.RevList(paths.Root, rollupBase, rollupHead)
		if err != nil {
			logAndContinue(paths, "rollup.log", "rev-list base..head failed", err)
			os.Exit(hookExitCode)
		}

		rec, err := rollup.Run(paths.Root, rollupBase, commits, rollup.FromRef(paths.Root))
		if err != nil {
			logAndContinue(paths, "rollup.log", "rollup computation failed", err)
			os.Exit(hookExitCode)
		}
		if rec.IsEmpty() {
			return nil
		}

		if err := annotation.Write(paths.Root, paths.GitDir, target, rec); err != nil {
			logAndContinue(paths, "rollup.log", "write rollup annotation failed", err)
			os.Exit(hookExitCode)
		}
		return nil
	},
}

func rollupUsageError() error {
	return &usageError{"rollup requires --base and --head"}
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func init() {
	rollupCmd.Flags().StringVar(&rollupBase, "base", "", "merge-base commit B")
	rollupCmd.Flags().StringVar(&rollupHead, "head", "", "branch tip commit H")
	rollupCmd.Flags().StringVar(&rollupCommit, "commit", "", "commit to annotate (default: HEAD)")
	rootCmd.AddCommand(rollupCmd)
}
