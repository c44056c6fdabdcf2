package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/nanoqueue/spscq/memprovider/shm"
	"github.com/nanoqueue/spscq/ring"
)

var statCmd = &cobra.Command{
	Use:   "stat [name]",
	Short: "Print counters for a named queue",
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

		p := message.NewPrinter(language.English)
		p.Printf("queue:              %s\n", name)
		p.Printf("is_empty:           %v\n", q.IsEmpty())
		p.Printf("length:             %v\n", number.Decimal(q.Length()))
		p.Printf("buffer_size:        %v\n", number.Decimal(q.BufferSize()))
		p.Printf("max_message_size:   %v\n", number.Decimal(q.MaxMessageSize()))
		p.Printf("max_payload_size:   %v\n", number.Decimal(q.MaxPayloadSize()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}
