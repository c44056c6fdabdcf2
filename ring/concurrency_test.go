package ring

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentProducerConsumerPreservesOrder runs a real producer
// goroutine and a real consumer goroutine over a shared Queue and checks
// that the sequence of payloads delivered equals the sequence enqueued:
// no reordering, no duplication, no loss. This is the two-thread property
// from spec.md §8; the message count is reduced under -short to keep the
// default test run fast, matching the teacher's own use of testing.Short
// gating in its longer-running suites.
func TestConcurrentProducerConsumerPreservesOrder(t *testing.T) {
	n := 1_000_000
	if testing.Short() {
		n = 20_000
	}

	region := mustHeap(t, 1<<20)
	storage, err := OpenFresh(region)
	require.NoError(t, err)
	q := NewQueue(storage)

	sizes := make([]int, n)
	maxPayload := int(q.MaxPayloadSize())
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range sizes {
		sizes[i] = 1 + rng.IntN(maxPayload)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for _, size := range sizes {
			payload := make([]byte, size)
			for i := range payload {
				payload[i] = byte(size + i)
			}
			for {
				ok, err := q.Enqueue(payload)
				require.NoError(t, err)
				if ok {
					break
				}
			}
		}
	}()

	var mismatches int
	go func() {
		defer wg.Done()
		for _, wantSize := range sizes {
			var view MessageView
			for {
				view = q.DequeueBegin()
				if !view.empty() {
					break
				}
			}
			if int(view.Size) != wantSize {
				mismatches++
			} else {
				for i, b := range view.Data {
					if b != byte(wantSize+i) {
						mismatches++
						break
					}
				}
			}
			q.DequeueCommit(view)
		}
	}()

	wg.Wait()
	assert.Zero(t, mismatches)
	assert.True(t, q.IsEmpty())
	assert.EqualValues(t, 0, q.Length())
}
