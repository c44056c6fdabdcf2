package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanoqueue/spscq/memprovider/shm"
	"github.com/nanoqueue/spscq/ring"
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create and initialize a named shared-memory queue",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}

		name := cfg.Queue.Name
		if len(args) == 1 {
			name = args[0]
		}

		region, err := shm.Create(name, uint64(cfg.Queue.Size))
		if err != nil {
			return fmt.Errorf("failed to create shared memory object %q: %w", name, err)
		}
		// Deliberately do not close the region: closing would unmap and
		// remove the backing object, but the whole point of "create" is
		// to leave it in place for a separate producer/consumer process
		// to attach to later. The mapping is reclaimed by the OS when
		// this short-lived process exits; the backing object survives.

		storage, err := ring.OpenFresh(region)
		if err != nil {
			return fmt.Errorf("failed to initialize queue header: %w", err)
		}

		q := ring.NewQueue(storage)
		fmt.Printf("created queue %q: buffer_size=%d max_payload_size=%d\n",
			name, q.BufferSize(), q.MaxPayloadSize())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
