package ring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustQueue(t *testing.T, size uint64) *Queue {
	t.Helper()
	region := mustHeap(t, size)
	s, err := OpenFresh(region)
	require.NoError(t, err)
	return NewQueue(s)
}

// Scenario 1 from spec.md §8.
func TestFreshQueue(t *testing.T) {
	q := mustQueue(t, 1024)

	assert.True(t, q.IsEmpty())
	assert.False(t, q.CanDequeue())
	assert.EqualValues(t, 0, q.Length())
	assert.EqualValues(t, 768, q.BufferSize())
	assert.EqualValues(t, 376, q.MaxPayloadSize())
}

// Scenario 2 from spec.md §8.
func TestEnqueueDequeueSinglePayload(t *testing.T) {
	q := mustQueue(t, 1024)

	ok, err := q.Enqueue([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.True(t, ok)

	assert.False(t, q.IsEmpty())
	assert.True(t, q.CanDequeue())
	assert.EqualValues(t, 1, q.Length())

	view := q.DequeueBegin()
	require.EqualValues(t, 5, view.Size)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, view.Data)
	assert.EqualValues(t, 0, view.Index)

	q.DequeueCommit(view)

	assert.True(t, q.IsEmpty())
	assert.EqualValues(t, 0, q.Length())
	assert.EqualValues(t, 16, q.storage.readIxCell().Load())
}

// Scenario 3 from spec.md §8.
func TestFiveEightBytePayloadsAdvanceIndices(t *testing.T) {
	q := mustQueue(t, 1024)
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	wantWriteIx := []uint64{16, 32, 48, 64, 80}
	for i := range 5 {
		ok, err := q.Enqueue(payload)
		require.NoError(t, err)
		require.True(t, ok)

		assert.EqualValues(t, i+1, q.Length())
		assert.EqualValues(t, wantWriteIx[i], q.storage.writeIxCell().Load())
	}
}

// Scenario 4 from spec.md §8.
func TestEnqueueRejectsOversizeMessage(t *testing.T) {
	q := mustQueue(t, 1024)

	ok, err := q.Enqueue(make([]byte, 400))
	require.Error(t, err)
	assert.False(t, ok)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, MessageTooLarge, rerr.Kind)

	assert.True(t, q.IsEmpty())
}

func TestEnqueueRejectsEmptyMessage(t *testing.T) {
	q := mustQueue(t, 1024)

	ok, err := q.Enqueue(nil)
	require.Error(t, err)
	assert.False(t, ok)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, MessageEmpty, rerr.Kind)
}

// Scenario 5 from spec.md §8: fill, drain until a same-size frame fits
// again, refill, drain all in order.
func TestFillDrainRefillPreservesOrder(t *testing.T) {
	q := mustQueue(t, 1024)

	payload := func(n byte) []byte {
		p := make([]byte, 20)
		for i := range p {
			p[i] = n
		}
		return p
	}

	var enqueued [][]byte
	n := byte(0)
	for {
		p := payload(n)
		ok, err := q.Enqueue(p)
		require.NoError(t, err)
		if !ok {
			break
		}
		enqueued = append(enqueued, p)
		n++
	}
	require.NotEmpty(t, enqueued)

	// Drain exactly one message.
	view := q.DequeueBegin()
	require.False(t, view.empty())
	assert.Equal(t, enqueued[0], view.Data)
	q.DequeueCommit(view)
	enqueued = enqueued[1:]

	// The fill stopped at the end of the buffer, so the next frame must
	// wrap. With one message drained read_ix is 32 and the wrapped frame
	// would end exactly at read_ix, which would read as empty: refused.
	ok, err := q.Enqueue(payload(n))
	require.NoError(t, err)
	require.False(t, ok)

	// Drain a second message so the wrapped frame ends before read_ix.
	view = q.DequeueBegin()
	require.False(t, view.empty())
	assert.Equal(t, enqueued[0], view.Data)
	q.DequeueCommit(view)
	enqueued = enqueued[1:]

	// The freed space must admit exactly one more same-size payload.
	p := payload(n)
	ok, err = q.Enqueue(p)
	require.NoError(t, err)
	require.True(t, ok)
	enqueued = append(enqueued, p)

	// Drain everything and verify FIFO order and byte equality.
	for _, want := range enqueued {
		view := q.DequeueBegin()
		require.False(t, view.empty())
		assert.True(t, bytes.Equal(want, view.Data))
		q.DequeueCommit(view)
	}
	assert.True(t, q.IsEmpty())
}

// TestWrapAroundWritesSentinelAndFrameAtZero drives a small (B=64) queue
// through an exact, hand-traced wrap: four 8-byte payloads (16-byte frames)
// are enqueued and dequeued so that the fourth enqueue must wrap, writing a
// sentinel at the old write_ix and a frame at offset 0, and the consumer's
// dequeue_begin must transparently skip that sentinel while preserving
// FIFO order.
func TestWrapAroundWritesSentinelAndFrameAtZero(t *testing.T) {
	q := mustQueue(t, 320) // B = 64

	a := bytes.Repeat([]byte{0xA0}, 8)
	b := bytes.Repeat([]byte{0xB0}, 8)
	c := bytes.Repeat([]byte{0xC0}, 8)
	d := bytes.Repeat([]byte{0xD0}, 8)

	for _, p := range [][]byte{a, b, c} {
		ok, err := q.Enqueue(p)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.EqualValues(t, 48, q.storage.writeIxCell().Load())

	// Drain A and B so read_ix advances to 32, freeing [0, 32) at the
	// front of the buffer.
	for range 2 {
		v := q.DequeueBegin()
		require.False(t, v.empty())
		q.DequeueCommit(v)
	}
	require.EqualValues(t, 32, q.storage.readIxCell().Load())

	// write_ix=48, read_ix=32: a 4th 16-byte frame would end at 64 (==B),
	// so it must wrap; the wrapped frame ends at 16 < read_ix(32), so it
	// is admitted.
	ok, err := q.Enqueue(d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 16, q.storage.writeIxCell().Load())

	// C (still unread, sitting at [32,48)) must come out before D.
	vc := q.DequeueBegin()
	require.False(t, vc.empty())
	assert.Equal(t, c, vc.Data)
	q.DequeueCommit(vc)

	// The consumer's next dequeue_begin must transparently skip the
	// sentinel at the old write_ix (48) and land on D at offset 0.
	vd := q.DequeueBegin()
	require.False(t, vd.empty())
	assert.Equal(t, d, vd.Data)
	assert.EqualValues(t, 0, vd.Index)
	q.DequeueCommit(vd)

	assert.True(t, q.IsEmpty())
	assert.EqualValues(t, 16, q.storage.readIxCell().Load())
}

// TestEnqueueFullRingReturnsFalseWithoutMutation exercises the "no room
// after wrap" branch of Case B: when the consumer has not freed space
// near the front of the buffer, a wrap must be rejected, and rejection
// must leave the ring completely unchanged.
func TestEnqueueFullRingReturnsFalseWithoutMutation(t *testing.T) {
	q := mustQueue(t, 320) // B = 64

	payload := bytes.Repeat([]byte{0x01}, 8)
	for range 3 {
		ok, err := q.Enqueue(payload)
		require.NoError(t, err)
		require.True(t, ok)
	}
	// write_ix=48, read_ix=0: wrapping now would end at 16 >= read_ix(0),
	// so it must be rejected and the queue left untouched.
	beforeWrite := q.storage.writeIxCell().Load()
	beforeRead := q.storage.readIxCell().Load()
	beforeLen := q.Length()

	ok, err := q.Enqueue(payload)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, beforeWrite, q.storage.writeIxCell().Load())
	assert.Equal(t, beforeRead, q.storage.readIxCell().Load())
	assert.Equal(t, beforeLen, q.Length())
}

func TestIndicesStayEightByteAligned(t *testing.T) {
	q := mustQueue(t, 4096)

	for i := range 200 {
		size := 1 + i%37
		ok, err := q.Enqueue(make([]byte, size))
		require.NoError(t, err)
		if !ok {
			view := q.DequeueBegin()
			require.False(t, view.empty())
			q.DequeueCommit(view)
			continue
		}
		assert.Zero(t, q.storage.writeIxCell().Load()%8)
		assert.Zero(t, q.storage.readIxCell().Load()%8)
	}
}

func TestHeaderIntegrityUnaffectedByTraffic(t *testing.T) {
	q := mustQueue(t, 1024)

	for i := range 50 {
		_, _ = q.Enqueue(make([]byte, 1+i%10))
		if q.CanDequeue() {
			view := q.DequeueBegin()
			q.DequeueCommit(view)
		}
	}

	assert.Equal(t, Magic, q.storage.Magic())
	assert.Equal(t, AbiVersion, q.storage.AbiVersion())
}

func TestDequeueBeginIsIdempotentUntilCommit(t *testing.T) {
	q := mustQueue(t, 1024)

	ok, err := q.Enqueue([]byte("payload"))
	require.NoError(t, err)
	require.True(t, ok)

	v1 := q.DequeueBegin()
	v2 := q.DequeueBegin()
	assert.Equal(t, v1, v2)

	q.DequeueCommit(v1)
	assert.True(t, q.IsEmpty())
}

func TestEmptyQueriesDoNotMutateState(t *testing.T) {
	q := mustQueue(t, 1024)

	_, err := q.Enqueue([]byte("x"))
	require.NoError(t, err)

	before := q.storage.readIxCell().Load()
	_ = q.IsEmpty()
	_ = q.CanDequeue()
	_ = q.Length()
	after := q.storage.readIxCell().Load()

	assert.Equal(t, before, after)
}
