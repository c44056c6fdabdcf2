package ring

import "encoding/binary"

// MessageView is a borrowed, zero-copy view into a message at the head of
// the queue. Size == 0 means the queue was observed empty and Data is nil.
// Otherwise Data aliases the storage buffer directly and is valid only
// until the matching DequeueCommit call.
type MessageView struct {
	Size  uint64
	Data  []byte
	Index uint64
}

func (v MessageView) empty() bool {
	return v.Size == 0
}

// Queue implements the SPSC enqueue/dequeue protocol over one Storage. A
// Queue is stateless: all mutable state lives in the Storage's shared
// cells; Queue only caches derived constants. Exactly one goroutine (or
// process) may call Enqueue; exactly one goroutine (or process) may call
// DequeueBegin/DequeueCommit and the non-destructive queries. Violating
// that contract yields undefined queue state and is not detected here.
type Queue struct {
	storage        *Storage
	bufferSize     uint64
	maxMessageSize uint64
	maxPayloadSize uint64
}

// NewQueue binds a Queue to storage, caching the constants derived from
// its buffer size.
func NewQueue(storage *Storage) *Queue {
	b := storage.BufferSize()
	maxMsg := b / 2
	return &Queue{
		storage:        storage,
		bufferSize:     b,
		maxMessageSize: maxMsg,
		maxPayloadSize: maxMsg - 8,
	}
}

// BufferSize returns B, the size of the ring payload area.
func (q *Queue) BufferSize() uint64 { return q.bufferSize }

// MaxMessageSize returns the largest frame size (header + payload,
// including alignment headroom considerations) this queue can ever hold.
func (q *Queue) MaxMessageSize() uint64 { return q.maxMessageSize }

// MaxPayloadSize returns the largest payload Enqueue will accept.
func (q *Queue) MaxPayloadSize() uint64 { return q.maxPayloadSize }

// nextIndex aligns current+span up to the next multiple of 8.
func nextIndex(current, span uint64) uint64 {
	return (current + span + 7) &^ 7
}

// Enqueue writes msg into the ring and publishes the new write index.
// It returns false (not an error) if the queue is currently full. It
// never blocks and never retries internally; callers decide retry policy.
func (q *Queue) Enqueue(msg []byte) (bool, error) {
	size := uint64(len(msg))
	if size == 0 {
		return false, newError("enqueue", MessageEmpty, nil)
	}
	if size > q.maxPayloadSize {
		return false, newError("enqueue", MessageTooLarge, nil)
	}

	buf := q.storage.Buffer()
	b := uint64(len(buf))

	readIx := q.storage.readIxCell().Load()
	writeIx := q.storage.writeIxCell().Load()

	total := 8 + size
	nextW := nextIndex(writeIx, total)

	if nextW < b {
		// Case A: frame fits without crossing the end of the buffer.
		if writeIx < readIx && nextW >= readIx {
			return false, nil
		}
		binary.NativeEndian.PutUint64(buf[writeIx:], size)
		copy(buf[writeIx+8:], msg)
		q.storage.writeIxCell().Store(nextW)
	} else {
		// Case B: the frame would cross the end; wrap to offset 0.
		sentinelEnd := writeIx + 8
		if writeIx < readIx && sentinelEnd >= readIx {
			return false, nil
		}

		nextW = nextIndex(0, total)
		if nextW >= readIx {
			return false, nil
		}

		binary.NativeEndian.PutUint64(buf[0:], size)
		copy(buf[8:], msg)
		// The sentinel must be written after the wrapped frame is in
		// place, so that any consumer observing the sentinel also
		// observes a valid frame at offset 0.
		binary.NativeEndian.PutUint64(buf[writeIx:], 0)
		q.storage.writeIxCell().Store(nextW)
	}

	q.storage.msgCountCell().Add(1)
	return true, nil
}

// DequeueBegin returns a zero-copy view of the next message, or an empty
// view (Size == 0, Data == nil) if the queue is empty. It never blocks.
func (q *Queue) DequeueBegin() MessageView {
	buf := q.storage.Buffer()

	for {
		readIx := q.storage.readIxCell().Load()
		writeIx := q.storage.writeIxCell().Load()

		if readIx == writeIx {
			return MessageView{}
		}

		size := binary.NativeEndian.Uint64(buf[readIx:])
		if size == 0 {
			// Wrap sentinel: skip to offset 0 and recheck. This
			// advances only the consumer's own index and terminates
			// within one further iteration; it never waits on the
			// producer.
			q.storage.readIxCell().Store(0)
			continue
		}

		return MessageView{
			Size:  size,
			Data:  buf[readIx+8 : readIx+8+size],
			Index: readIx,
		}
	}
}

// DequeueCommit advances the read index past view and decrements the
// in-flight message count. view must not be used after this call.
func (q *Queue) DequeueCommit(view MessageView) {
	if view.empty() {
		return
	}
	nextR := nextIndex(view.Index, view.Size+8)
	q.storage.readIxCell().Store(nextR)
	q.storage.msgCountCell().Add(^uint64(0)) // -1
}

// IsEmpty reports whether the queue was empty at the moment of the call.
// It is a best-effort snapshot and does not mutate state.
func (q *Queue) IsEmpty() bool {
	readIx := q.storage.readIxCell().Load()
	writeIx := q.storage.writeIxCell().Load()
	return readIx == writeIx
}

// CanDequeue is the consumer-side equivalent of !IsEmpty, expressed from
// the consumer's own (relaxed) view of read_ix.
func (q *Queue) CanDequeue() bool {
	readIx := q.storage.readIxCell().Load()
	writeIx := q.storage.writeIxCell().Load()
	return readIx != writeIx
}

// Length returns the in-flight message count. From the consumer this is a
// lower bound (the producer may have enqueued more since); from the
// producer it is an upper bound (the consumer may have committed more
// since). It is advisory, not a precise snapshot of either side alone.
func (q *Queue) Length() uint64 {
	return q.storage.msgCountCell().Load()
}
