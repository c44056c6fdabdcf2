package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nanoqueue/spscq/memprovider/shm"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [name]",
	Short: "Remove a named shared-memory queue's backing object",
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

		if err := shm.Remove(name); err != nil {
			return fmt.Errorf("failed to remove %q: %w", name, err)
		}
		fmt.Printf("removed queue %q\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(destroyCmd)
}
