package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/linetrace/linetrace/internal/sync"
)

var prePushCmd = &cobra.Command{
	Use:   "pre-push [remote]",
	Short: "Push the metadata ref alongside the user's own push (C5)",
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

		// spec §4.5: "Failure is non-fatal and logged; the user's push
		// is never blocked by an inability to publish annotations."
		if err := sync.Push(paths.Root, remote); err != nil {
			logAndContinue(paths, "pre-push.log", "metadata ref push failed", err)
			os.Exit(hookExitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prePushCmd)
}
