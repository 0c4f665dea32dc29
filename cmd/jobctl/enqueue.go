package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/spf13/cobra"
)

func enqueueCmd(e *env) *cobra.Command {
	var (
		payload      string
		jobID        string
		attempts     int
		delay        time.Duration
		backoff      string
		backoffDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "enqueue <type>",
		Short: "Add a job of the given type to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !json.Valid([]byte(payload)) {
				return errors.New("--payload must be valid JSON")
			}

			var opts []job.Option
			if jobID != "" {
				opts = append(opts, job.WithJobID(jobID))
			}
			if attempts > 0 {
				opts = append(opts, job.WithAttempts(attempts))
			}
			if delay > 0 {
				opts = append(opts, job.WithDelay(delay))
			}
			if backoff != "" {
				opts = append(opts, job.WithBackoff(job.BackoffType(backoff), backoffDelay))
			}

			b, err := e.backend(cmd.Context())
			if err != nil {
				return err
			}

			h, err := b.client.Enqueue(cmd.Context(), args[0], json.RawMessage(payload), opts...)
			if err != nil {
				return fmt.Errorf("failed to enqueue job: %w", err)
			}

			if h.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s\n", h.ID, b.client.Queue())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "job %s already exists, nothing enqueued\n", h.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "{}", "job payload as a JSON object")
	cmd.Flags().StringVar(&jobID, "id", "", "stable job id used for deduplication")
	cmd.Flags().IntVar(&attempts, "attempts", 0, "maximum attempts (default 3)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "wait before the job becomes ready")
	cmd.Flags().StringVar(&backoff, "backoff", "", "retry backoff: exponential or fixed")
	cmd.Flags().DurationVar(&backoffDelay, "backoff-delay", job.DefaultBackoffBase, "base retry delay")
	return cmd
}
