package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nanoqueue/spscq/common/go/xcmd"
)

// withInterrupt wraps a RunE so that SIGINT/SIGTERM cancel the command's
// context instead of killing the process mid-operation. A clean interrupt
// is reported as success, not as a command error.
func withInterrupt(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		cmd.SetContext(ctx)

		go func() {
			_ = xcmd.WaitInterrupted(ctx)
			cancel()
		}()

		err := run(cmd, args)
		if ctx.Err() != nil && err == ctx.Err() {
			return nil
		}
		return err
	}
}
