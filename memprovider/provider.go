// Package memprovider implements the "memory provider" collaborator that
// spec.md describes but deliberately keeps out of the queue core: a
// 64-byte-aligned, caller-sized, writable memory region plus an optional
// release hook invoked when the caller is done with it.
package memprovider

import (
	"fmt"
	"unsafe"
)

const alignment = 64

// Region is a 64-byte-aligned, caller-owned memory region together with
// its release hook. Close is idempotent: only the first call invokes the
// underlying release action.
type Region struct {
	Bytes []byte
	close func() error
	done  *bool
}

// Close invokes the release hook exactly once, regardless of how many
// times Close is called.
func (r Region) Close() error {
	if r.done == nil || *r.done {
		return nil
	}
	*r.done = true
	if r.close == nil {
		return nil
	}
	return r.close()
}

// NewRegion wraps an already-aligned byte slice with a release hook,
// guarding against double-release. release may be nil.
func NewRegion(bytes []byte, release func() error) (Region, error) {
	if len(bytes) == 0 {
		return Region{}, fmt.Errorf("memprovider: empty region")
	}
	done := false
	return Region{Bytes: bytes, close: release, done: &done}, nil
}

// NewHeap allocates a process-local region of the requested size, aligned
// to a 64-byte boundary, backed by the Go heap. It is the in-process
// stand-in for a real shared-memory provider, used directly by tests and
// by single-process callers that do not need cross-process sharing.
func NewHeap(size uint64) (Region, error) {
	if size == 0 {
		return Region{}, fmt.Errorf("memprovider: zero-sized region")
	}

	raw := make([]byte, size+alignment)
	offset := alignmentPad(raw)
	aligned := raw[offset : offset+int(size)]

	// No real resource to release; keep raw alive via the closure so the
	// backing array cannot be collected while the region is in use.
	return NewRegion(aligned, func() error {
		_ = raw
		return nil
	})
}

func alignmentPad(raw []byte) int {
	base := uintptr(unsafe.Pointer(&raw[0]))
	rem := int(base % alignment)
	if rem == 0 {
		return 0
	}
	return alignment - rem
}
