// Command spscqctl drives a single named SPSC shared-memory queue from the
// command line: create it, produce into it, consume from it, inspect its
// counters, list queue objects on the host, or run an in-process
// benchmark. It exists to exercise the ring/memprovider core end-to-end,
// the way the teacher's controlplane/cmd/yncp-director drives the control
// plane.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spscqctl",
	Short: "Operate a single-producer single-consumer shared-memory queue",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file (optional; defaults are used otherwise)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
