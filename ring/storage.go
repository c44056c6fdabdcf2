// Package ring implements a lock-free, single-producer single-consumer,
// variable-sized message queue over a fixed, cache-line-aligned, contiguous
// memory region. The region is supplied by the caller (see the
// memprovider package) and may live in process-local heap memory or in
// memory shared across processes; this package never allocates or maps
// memory itself.
package ring

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/nanoqueue/spscq/memprovider"
)

const (
	// Magic is the constant stored in the header to identify a region as a
	// valid queue storage area.
	Magic uint32 = 0x53505343 // "SPSC"
	// AbiVersion is the layout version implemented by this package. It is
	// bumped whenever the on-memory layout changes incompatibly.
	AbiVersion uint32 = 1

	cacheLine = 64

	offMagic       = 0
	offAbiVersion  = 4
	offStorageSize = 8
	// 16..63 is padding to the next cache line.
	offReadIx    = 64
	offWriteIx   = 128
	offMsgCount  = 192
	headerEnd    = 256
	minFrameSize = 16 // next_aligned_8(sizeof(u64) + 8)
)

// Storage owns a view into a caller-supplied memory region: the fixed
// header, the three atomic index cells, and the ring payload buffer. It
// does not own the underlying memory itself — that is the responsibility
// of the memprovider.Region it was opened from.
type Storage struct {
	region memprovider.Region
	base   []byte
	closed bool
}

// OpenFresh initializes a brand-new header in region and zeroes the three
// index cells. region.Bytes must be non-empty, 64-byte aligned, and larger
// than headerEnd by at least one minimal frame.
func OpenFresh(region memprovider.Region) (*Storage, error) {
	if err := validateRegion(region.Bytes); err != nil {
		return nil, err
	}

	base := region.Bytes
	binary.NativeEndian.PutUint32(base[offMagic:], Magic)
	binary.NativeEndian.PutUint32(base[offAbiVersion:], AbiVersion)
	binary.NativeEndian.PutUint64(base[offStorageSize:], uint64(len(base)))

	s := &Storage{region: region, base: base}
	s.readIxCell().Store(0)
	s.writeIxCell().Store(0)
	s.msgCountCell().Store(0)

	return s, nil
}

// Attach binds to an already-initialized region, verifying the magic and
// ABI version but never touching the index cells.
func Attach(region memprovider.Region) (*Storage, error) {
	base := region.Bytes
	if len(base) < headerEnd {
		return nil, newError("attach", RegionTooSmall, nil)
	}
	if !isAligned64(base) {
		return nil, newError("attach", MisalignedRegion, nil)
	}

	magic := binary.NativeEndian.Uint32(base[offMagic:])
	if magic != Magic {
		return nil, newError("attach", BadMagic, nil)
	}

	version := binary.NativeEndian.Uint32(base[offAbiVersion:])
	if version != AbiVersion {
		return nil, newError("attach", AbiMismatch, nil)
	}

	storageSize := binary.NativeEndian.Uint64(base[offStorageSize:])
	if storageSize != uint64(len(base)) {
		return nil, newError("attach", RegionTooSmall, nil)
	}

	return &Storage{region: region, base: base}, nil
}

func validateRegion(base []byte) error {
	if len(base) == 0 {
		return newError("open_fresh", NullPointer, nil)
	}
	if len(base) <= headerEnd {
		return newError("open_fresh", RegionTooSmall, nil)
	}
	if !isAligned64(base) {
		return newError("open_fresh", MisalignedRegion, nil)
	}
	if (len(base)-headerEnd)%8 != 0 {
		return newError("open_fresh", BufferNotMultipleOfEight, nil)
	}
	if len(base)-headerEnd < minFrameSize {
		return newError("open_fresh", RegionTooSmall, nil)
	}
	return nil
}

func isAligned64(base []byte) bool {
	if len(base) == 0 {
		return false
	}
	return uintptr(unsafe.Pointer(&base[0]))%cacheLine == 0
}

// Close invokes the region's release hook exactly once. The header and
// buffer must not be accessed after Close returns.
func (s *Storage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.region.Close()
}

// BufferSize returns B, the size in bytes of the ring payload area.
func (s *Storage) BufferSize() uint64 {
	return uint64(len(s.base) - headerEnd)
}

// Buffer returns the ring payload area.
func (s *Storage) Buffer() []byte {
	return s.base[headerEnd:]
}

func (s *Storage) readIxCell() *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&s.base[offReadIx]))
}

func (s *Storage) writeIxCell() *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&s.base[offWriteIx]))
}

func (s *Storage) msgCountCell() *atomic.Uint64 {
	return (*atomic.Uint64)(unsafe.Pointer(&s.base[offMsgCount]))
}

// Magic returns the header's magic field, unchanged since initialization.
func (s *Storage) Magic() uint32 {
	return binary.NativeEndian.Uint32(s.base[offMagic:])
}

// AbiVersion returns the header's ABI version field, unchanged since
// initialization.
func (s *Storage) AbiVersion() uint32 {
	return binary.NativeEndian.Uint32(s.base[offAbiVersion:])
}
