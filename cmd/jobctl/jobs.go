package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/spf13/cobra"
)

func failedCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List retained failed jobs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.backend(cmd.Context())
			if err != nil {
				return err
			}

			jobs, err := b.jobs.ListFailed(cmd.Context(), b.client.Queue(), limit)
			if err != nil {
				return fmt.Errorf("failed to list failed jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintf(out, "No failed jobs on %s\n", b.client.Queue())
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tATTEMPTS\tFINISHED\tERROR")
			for _, j := range jobs {
				finished := "-"
				if j.FinishedAt != nil {
					finished = j.FinishedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
					j.ID, j.Type, j.Attempts, j.MaxAttempts, finished, j.LastError)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", job.DefaultListLimit, "maximum number of jobs to list")
	return cmd
}

func retryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Move a failed job back to waiting with a fresh attempt budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.backend(cmd.Context())
			if err != nil {
				return err
			}

			switch err := b.jobs.Retry(cmd.Context(), args[0]); {
			case errors.Is(err, job.ErrJobNotFound):
				return fmt.Errorf("job %s not found", args[0])
			case errors.Is(err, job.ErrNotRetryable):
				return fmt.Errorf("job %s is not in the failed state", args[0])
			case err != nil:
				return fmt.Errorf("failed to retry job: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "job %s moved to %s\n", args[0], job.StateWaiting)
			return nil
		},
	}
}
