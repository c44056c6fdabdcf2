// Package shm implements a memprovider.Region backed by POSIX shared
// memory, so that a producer and a consumer in different processes can
// map the same storage region. It is grounded on the teacher's
// controlplane/ffi.AttachSharedMemory/SharedMemory.Detach shape, re-
// expressed without cgo: a plain mmap over a file created under
// /dev/shm.
package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nanoqueue/spscq/memprovider"
)

const dir = "/dev/shm"

func path(name string) string {
	return filepath.Join(dir, name)
}

// Create creates a new shared-memory object of the given size and maps it
// into this process. It fails if an object with the same name already
// exists. The returned Region's Close unmaps the memory and removes the
// backing object; the backing object outlives the calling process until
// Close is invoked, which is what lets a separate consumer process attach
// to it later.
func Create(name string, size uint64) (memprovider.Region, error) {
	p := path(name)

	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return memprovider.Region{}, fmt.Errorf("shm: create %q: %w", name, err)
	}
	defer f.Close()

	if err := f.Truncate(int64(size)); err != nil {
		os.Remove(p)
		return memprovider.Region{}, fmt.Errorf("shm: truncate %q: %w", name, err)
	}

	return mapRegion(f, p, size, true)
}

// Attach maps an already-created shared-memory object into this process.
// The size is discovered from the object itself via stat.
func Attach(name string) (memprovider.Region, error) {
	p := path(name)

	f, err := os.OpenFile(p, os.O_RDWR, 0)
	if err != nil {
		return memprovider.Region{}, fmt.Errorf("shm: attach %q: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return memprovider.Region{}, fmt.Errorf("shm: stat %q: %w", name, err)
	}

	return mapRegion(f, p, uint64(info.Size()), false)
}

func mapRegion(f *os.File, p string, size uint64, owner bool) (memprovider.Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		if owner {
			os.Remove(p)
		}
		return memprovider.Region{}, fmt.Errorf("shm: mmap %q: %w", p, err)
	}

	if base := uintptr(unsafe.Pointer(&data[0])); base%64 != 0 {
		unix.Munmap(data)
		if owner {
			os.Remove(p)
		}
		return memprovider.Region{}, fmt.Errorf("shm: mmap %q returned misaligned base address", p)
	}

	return memprovider.NewRegion(data, func() error {
		err := unix.Munmap(data)
		if owner {
			if rmErr := os.Remove(p); rmErr != nil && err == nil {
				err = rmErr
			}
		}
		return err
	})
}

// Remove deletes a shared-memory object by name without mapping it,
// for cleanup of abandoned objects (e.g. after a crash of the creator).
func Remove(name string) error {
	return os.Remove(path(name))
}
