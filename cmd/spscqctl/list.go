package main

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List shared-memory queue objects under /dev/shm matching a glob pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := "spscq-*"
		if len(args) == 1 {
			pattern = args[0]
		}

		g, err := glob.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		entries, err := os.ReadDir("/dev/shm")
		if err != nil {
			return fmt.Errorf("failed to scan /dev/shm: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !g.Match(entry.Name()) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}
			fmt.Printf("%-40s %d bytes\n", entry.Name(), info.Size())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
