package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nanoqueue/spscq/common/go/logging"
	"github.com/nanoqueue/spscq/memprovider/shm"
	"github.com/nanoqueue/spscq/ring"
)

var consumeCmd = &cobra.Command{
	Use:   "consume [name]",
	Short: "Drain a queue and print each message to stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}

		log, _, err := logging.Init(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		defer log.Sync()

		name := cfg.Queue.Name
		if len(args) == 1 {
			name = args[0]
		}

		region, err := shm.Attach(name)
		if err != nil {
			return fmt.Errorf("failed to attach to queue %q: %w", name, err)
		}
		defer region.Close()

		storage, err := ring.Attach(region)
		if err != nil {
			return fmt.Errorf("failed to attach queue header: %w", err)
		}
		q := ring.NewQueue(storage)

		ctx := cmd.Context()
		count := 0

		// dequeue_begin never blocks by design (spec), so polling here is
		// the caller's policy, the same shape as the teacher's
		// ringBuffer.spawnWakers ticker loop in
		// modules/pdump/controlplane/ring.go: check for data, otherwise
		// wait a short interval before checking again.
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()

		for {
			view := q.DequeueBegin()
			if view.Size == 0 {
				select {
				case <-ctx.Done():
					log.Infow("consumed messages", "queue", name, "count", count)
					return ctx.Err()
				case <-ticker.C:
					continue
				}
			}

			os.Stdout.Write(view.Data)
			os.Stdout.Write([]byte("\n"))
			q.DequeueCommit(view)
			count++
		}
	},
}

func init() {
	consumeCmd.RunE = withInterrupt(consumeCmd.RunE)
	rootCmd.AddCommand(consumeCmd)
}
