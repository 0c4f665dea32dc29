package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func scanCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run the overdue task scanner once and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.backend(cmd.Context())
			if err != nil {
				return err
			}

			res, err := b.scanner.CheckOverdueTasks(cmd.Context())
			if err != nil {
				return fmt.Errorf("overdue scan failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
