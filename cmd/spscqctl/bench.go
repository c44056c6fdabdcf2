package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/nanoqueue/spscq/common/go/bitset"
	"github.com/nanoqueue/spscq/memprovider"
	"github.com/nanoqueue/spscq/ring"
)

var (
	benchPairs      int
	benchMessages   int
	benchRegionSize uint64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run N in-process producer/consumer pairs and report throughput",
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchPairs <= 0 || benchPairs > bitset.MaxBitsetWords*64 {
			return fmt.Errorf("pairs must be in [1, %d]", bitset.MaxBitsetWords*64)
		}

		var done bitset.TinyBitset
		var mu sync.Mutex

		wg, ctx := errgroup.WithContext(cmd.Context())
		start := time.Now()

		for i := range benchPairs {
			wg.Go(func() error {
				if err := runPair(ctx, i, benchMessages, benchRegionSize); err != nil {
					return fmt.Errorf("pair %d: %w", i, err)
				}
				mu.Lock()
				done.Insert(uint32(i))
				mu.Unlock()
				return nil
			})
		}

		if err := wg.Wait(); err != nil {
			return err
		}

		elapsed := time.Since(start)
		total := uint64(benchPairs) * uint64(benchMessages)
		rate := float64(total) / elapsed.Seconds()

		p := message.NewPrinter(language.English)
		p.Printf("pairs completed:    %d/%d\n", done.Count(), benchPairs)
		p.Printf("messages total:     %v\n", number.Decimal(total))
		p.Printf("elapsed:            %s\n", elapsed)
		p.Printf("throughput:         %v msg/s\n", number.Decimal(uint64(rate)))
		return nil
	},
}

func runPair(ctx context.Context, seed, messages int, regionSize uint64) error {
	region, err := memprovider.NewHeap(regionSize)
	if err != nil {
		return err
	}
	defer region.Close()

	storage, err := ring.OpenFresh(region)
	if err != nil {
		return err
	}
	q := ring.NewQueue(storage)

	wg, ctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
		maxPayload := int(q.MaxPayloadSize())
		for range messages {
			if err := ctx.Err(); err != nil {
				return err
			}
			payload := make([]byte, 1+rng.IntN(maxPayload))
			for {
				ok, err := q.Enqueue(payload)
				if err != nil {
					return err
				}
				if ok {
					break
				}
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
		return nil
	})

	wg.Go(func() error {
		for range messages {
			for {
				view := q.DequeueBegin()
				if view.Size != 0 {
					q.DequeueCommit(view)
					break
				}
				if err := ctx.Err(); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return wg.Wait()
}

func init() {
	benchCmd.Flags().IntVar(&benchPairs, "pairs", 4, "Number of concurrent producer/consumer pairs")
	benchCmd.Flags().IntVar(&benchMessages, "messages", 100_000, "Messages per pair")
	benchCmd.Flags().Uint64Var(&benchRegionSize, "region-size", 1<<16, "Heap region size per pair, in bytes")
	rootCmd.AddCommand(benchCmd)
}
