package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:          "jobctl",
		Short:        "Operate the tasks job queue",
		SilenceUsage: true,
	}

	root.AddCommand(
		enqueueCmd(e),
		failedCmd(e),
		retryCmd(e),
		scanCmd(e),
		migrateCmd(e),
		tokenCmd(e),
	)
	return root
}
