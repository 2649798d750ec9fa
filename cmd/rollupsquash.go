package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/annotation"
	"github.com/linetrace/linetrace/internal/rollup"
)

var (
	squashDataFile string
	squashBase     string
	squashMerge    string
)

// squashData is the on-disk shape of --data-file: the ordered commit
// sequence being squashed away plus each one's annotation, collected
// before the squash discarded them from history. A CI step (or the
// merge tool itself) is expected to produce this file from `rollup`
// output while the individual commits are still reachable, then hand
// it to rollup-squash once they no longer are.
type squashData struct {
	Commits     []string                     `json:"commits"`
	Annotations map[string]annotation.Record `json:"annotations"`
}

// rollupSquashCmd implements spec §6's `rollup-squash --data-file F
// --base B --merge M`: the same C6 per-path forward-remap-then-union
// loop as rollup, but sourced from a pre-collected data file instead of
// live ref lookups, because after a squash merge C_1..C_k are no longer
// reachable from the resulting history. The per-commit annotations the
// squash superseded are then deleted so a later query against M never
// double-counts a line claimed by both the squash and a leftover
// individual-commit annotation.
var rollupSquashCmd = &cobra.Command{
	Use:   "rollup-squash",
	Short: "Compute and write the squash-merge annotation from a pre-collected data file (C6)",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return err
		}
		if squashDataFile == "" || squashBase == "" || squashMerge == "" {
			return &usageError{"rollup-squash requires --data-file, --base and --merge"}
		}

		raw, err := os.ReadFile(squashDataFile)
		if err != nil {
			logAndContinue(paths, "rollup-squash.log", "read data file failed", err)
			os.Exit(hookExitCode)
		}
		var data squashData
		if err := json.Unmarshal(raw, &data); err != nil {
			logAndContinue(paths, "rollup-squash.log", "corrupt data file", err)
			os.Exit(hookExitCode)
		}

		rec, err := rollup.Run(paths.Root, squashBase, data.Commits, rollup.FromMap(data.Annotations))
		if err != nil {
			logAndContinue(paths, "rollup-squash.log", "rollup computation failed", err)
			os.Exit(hookExitCode)
		}
		if rec.IsEmpty() {
			return nil
		}

		if err := annotation.Write(paths.Root, paths.GitDir, squashMerge, rec); err != nil {
			logAndContinue(paths, "rollup-squash.log", "write rollup annotation failed", err)
			os.Exit(hookExitCode)
		}

		for _, commitID := range data.Commits {
			if _, ok := data.Annotations[commitID]; !ok {
				continue
			}
			if err := annotation.Delete(paths.Root, paths.GitDir, commitID); err != nil {
				logAndContinue(paths, "rollup-squash.log", "delete superseded annotation failed", err)
			}
		}
		return nil
	},
}

func init() {
	rollupSquashCmd.Flags().StringVar(&squashDataFile, "data-file", "", "JSON file of squashed commits and their annotations")
	rollupSquashCmd.Flags().StringVar(&squashBase, "base", "", "merge-base commit B")
	rollupSquashCmd.Flags().StringVar(&squashMerge, "merge", "", "resulting squash/merge commit to annotate")
	rootCmd.AddCommand(rollupSquashCmd)
}
