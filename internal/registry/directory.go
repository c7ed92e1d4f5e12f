package registry

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/robaho/memglass/internal/region"
	"github.com/robaho/memglass/internal/wire"
)

// ObjectHandle identifies a previously created object for later
// destruction, mirroring the private pointer-to-slot map
// original_source/src/allocator.cpp's ObjectManager keeps producer-side.
type ObjectHandle struct {
	slot     uint32
	regionID uint64
	offset   uint64
}

// Directory is the producer's view of the header's object directory: it
// serializes creation/destruction under its own mutex. Destroy takes the
// ObjectHandle that Create returned, which records the directory slot
// directly, so no pointer-to-slot map is kept and objects cannot be
// destroyed by pointer or by label.
type Directory struct {
	mu sync.Mutex

	hv  *wire.HeaderView
	rm  *region.Manager
	cap uint32

	count uint32
}

// NewDirectory wraps a mapped header view and the region manager backing
// object allocations.
func NewDirectory(hv *wire.HeaderView, rm *region.Manager) *Directory {
	return &Directory{hv: hv, rm: rm, cap: hv.ObjectDirCapacity()}
}

// Create allocates size bytes (aligned to align) in the region manager,
// writes a new Alive object-directory entry pointing at them, and
// publishes the new object count and a bumped structural sequence. Returns
// a pointer to the freshly allocated bytes (for the caller to populate)
// and a handle usable with Destroy.
func (d *Directory) Create(typeID uint32, label string, size, align uint64) (unsafe.Pointer, ObjectHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count >= d.cap {
		return nil, ObjectHandle{}, fmt.Errorf("registry: object directory full (capacity %d)", d.cap)
	}

	d.rm.Lock()
	allocRegionID, allocOffset, err := d.rm.Allocate(size, align)
	if err != nil {
		d.rm.Unlock()
		return nil, ObjectHandle{}, err
	}
	mem := d.rm.RegionMem(allocRegionID)
	ptr := unsafe.Pointer(&mem[wire.RegionDescriptorSize+int(allocOffset)])
	regionID, offset, ok := d.rm.Locate(ptr)
	d.rm.Unlock()
	if !ok {
		return nil, ObjectHandle{}, fmt.Errorf("registry: could not locate freshly allocated object")
	}

	slot := d.count
	entry := d.hv.ObjectEntryAt(slot)
	entry.TypeID = typeID
	entry.RegionID = regionID
	entry.Offset = offset
	entry.Generation = 1
	wire.PutString(entry.Label[:], label)
	entry.StoreState(wire.ObjectAlive)

	d.count++
	d.hv.SetObjectCount(d.count)
	d.hv.BumpSequence()

	return ptr, ObjectHandle{slot: slot, regionID: regionID, offset: offset}, nil
}

// Destroy flips the handle's directory entry to Destroyed and bumps the
// structural sequence. The slot is never freed and the backing bytes are
// never reused.
func (d *Directory) Destroy(h ObjectHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h.slot >= d.count {
		return fmt.Errorf("registry: handle refers to unknown object slot %d", h.slot)
	}
	entry := d.hv.ObjectEntryAt(h.slot)
	entry.StoreState(wire.ObjectDestroyed)
	d.hv.BumpSequence()
	return nil
}

// FindByLabel linearly scans [0, object_count) for an Alive entry whose
// label matches.
func FindByLabel(hv *wire.HeaderView, label string) (*wire.ObjectEntry, uint32, bool) {
	n := hv.ObjectCount()
	for i := uint32(0); i < n; i++ {
		e := hv.ObjectEntryAt(i)
		if e.LoadState() != wire.ObjectAlive {
			continue
		}
		if wire.GetString(e.Label[:]) == label {
			return e, i, true
		}
	}
	return nil, 0, false
}

// AllAlive returns the indices of every Alive entry in [0, object_count),
// in directory order.
func AllAlive(hv *wire.HeaderView) []uint32 {
	n := hv.ObjectCount()
	out := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		if hv.ObjectEntryAt(i).LoadState() == wire.ObjectAlive {
			out = append(out, i)
		}
	}
	return out
}
