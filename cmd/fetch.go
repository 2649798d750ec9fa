package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/sync"
)

// fetchCmd exposes C5-fetch, typically wired to a post-merge or
// post-checkout hook so a clone picks up a remote's annotations as soon
// as it pulls the commits they describe.
var fetchCmd = &cobra.Command{
	Use:   "fetch [remote]",
	Short: "Fetch the remote's metadata ref and reconcile divergent annotations (C5)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := loadPaths()
		if err != nil {
			return nil
		}

		remote := "origin"
		if len(args) > 0 && args[0] != "" {
			remote = args[0]
		}

		result, err := sync.Fetch(paths.Root, paths.GitDir, remote)
		if err != nil {
			logAndContinue(paths, "fetch.log", "metadata ref fetch failed", err)
			os.Exit(hookExitCode)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "agreed=%d adopted=%d unioned=%d\n",
			len(result.Agreed), len(result.Adopted), len(result.Unioned))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
