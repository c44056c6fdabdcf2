package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/nanoqueue/spscq/common/go/logging"
	"github.com/nanoqueue/spscq/memprovider/shm"
	"github.com/nanoqueue/spscq/ring"
)

var errQueueFull = errors.New("queue full")

var produceCmd = &cobra.Command{
	Use:   "produce [name]",
	Short: "Read newline-delimited messages from stdin and enqueue them",
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

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Millisecond

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), int(q.MaxPayloadSize()))

		count := 0
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return err
			}

			payload := append([]byte(nil), scanner.Bytes()...)
			if len(payload) == 0 {
				continue
			}

			_, err := backoff.Retry(ctx, func() (struct{}, error) {
				ok, err := q.Enqueue(payload)
				if err != nil {
					return struct{}{}, backoff.Permanent(err)
				}
				if !ok {
					return struct{}{}, errQueueFull
				}
				return struct{}{}, nil
			}, backoff.WithBackOff(b))
			if err != nil {
				return fmt.Errorf("failed to enqueue message %d: %w", count, err)
			}

			count++
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}

		log.Infow("produced messages", "queue", name, "count", count)
		return nil
	},
}

func init() {
	produceCmd.RunE = withInterrupt(produceCmd.RunE)
	rootCmd.AddCommand(produceCmd)
}
