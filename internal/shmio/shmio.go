// Package shmio implements the low-level shared-memory primitive:
// create/open/unlink/close a named, byte-addressable region backed by a
// file under /dev/shm (falling back to the OS temp dir), memory-mapped for
// the lifetime of the handle.
//
// Grounded on shm_mmap_unix.go's CreateSegment/OpenSegment (O_EXCL create
// vs plain open, Truncate-then-mmap, /dev/shm-or-tempdir path choice) and
// detail/shm.hpp's SharedMemory (owner-tracked unlink-on-close). Mapping
// goes through github.com/edsrzf/mmap-go instead of raw syscall.Mmap, so
// this package has no platform build tag.
package shmio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"
)

// ErrExists is returned by Create when a shared-memory object of the same
// name already exists. Create does not reopen or reuse the existing object.
var ErrExists = errors.New("shmio: shared memory object already exists")

// Region is an open, mapped shared-memory region. Regions are movable in
// the sense that ownership transfers with the value, but not copyable —
// callers should pass *Region, never dereference and copy.
type Region struct {
	name    string
	file    *os.File
	mem     mmap.MMap
	owner   bool // true if this handle created the object (unlinks on Close)
	path    string
}

// Mem returns the mapped bytes. The returned slice aliases shared memory;
// writes (from the producer) and reads (from observers) are visible across
// processes subject to the atomicity discipline the caller applies.
func (r *Region) Mem() []byte { return r.mem }

// Name returns the shared-memory object name this region was created or
// opened with (e.g. "/memglass_quotes_header").
func (r *Region) Name() string { return r.name }

// Size returns the mapped size in bytes.
func (r *Region) Size() int { return len(r.mem) }

// IsOwner reports whether this handle created (rather than opened) the
// object, and therefore unlinks it on Close.
func (r *Region) IsOwner() bool { return r.owner }

// Create creates a new shared-memory region of the given name and size,
// failing with ErrExists if an object of that name already exists. The
// returned Region is the owner and will unlink the name on Close.
func Create(name string, size int) (*Region, error) {
	path := resolvePath(name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("shmio: create %s: %w", name, err)
	}

	cleanup := func() {
		f.Close()
		os.Remove(path)
	}

	if err := f.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("shmio: truncate %s: %w", name, err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("shmio: map %s: %w", name, err)
	}

	return &Region{name: name, file: f, mem: m, owner: true, path: path}, nil
}

// Open opens an existing shared-memory region by name, discovering its
// size from the underlying file. The returned Region is not the owner and
// will not unlink the name on Close.
func Open(name string) (*Region, error) {
	path := resolvePath(name)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmio: open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shmio: stat %s: %w", name, err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("shmio: %s is empty", name)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shmio: map %s: %w", name, err)
	}

	return &Region{name: name, file: f, mem: m, owner: false, path: path}, nil
}

// Unlink removes the shared-memory object's name from the namespace.
// Existing maps (this one and any observer's) remain valid; the bytes are
// only freed once every handle unmaps.
func (r *Region) Unlink() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("shmio: unlink %s: %w", r.name, err)
	}
	return nil
}

// Close unmaps the region and releases its file descriptor. If this
// handle created the object, it also unlinks the name on the way out.
func (r *Region) Close() error {
	var firstErr error

	if r.mem != nil {
		if err := r.mem.Unmap(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.mem = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	if r.owner {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Exists reports whether a shared-memory object of the given name exists.
func Exists(name string) bool {
	_, err := os.Stat(resolvePath(name))
	return err == nil
}

// Remove removes a shared-memory object by name, ignoring a not-exist
// error. No Region handle is needed.
func Remove(name string) error {
	if err := os.Remove(resolvePath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func resolvePath(name string) string {
	if shmDirAvailable() {
		return filepath.Join("/dev/shm", sanitize(name))
	}
	return filepath.Join(os.TempDir(), sanitize(name))
}

func shmDirAvailable() bool {
	info, err := os.Stat("/dev/shm")
	return err == nil && info.IsDir()
}

// sanitize strips the leading '/' that the shared-memory naming scheme
// always supplies, since that's a shared-memory-namespace convention
// rather than a filesystem path component.
func sanitize(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
