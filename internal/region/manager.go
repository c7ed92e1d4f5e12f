// Package region implements the bump allocator and data-region chain: an
// append-only sequence of shared-memory regions, each prefixed by a
// wire.RegionDescriptor, grown by doubling when the tail region is
// exhausted.
//
// Grounded on original_source/src/allocator.cpp's RegionManager::allocate
// (read-used, align-up, grow-by-doubling-clamped-to-max, retry) and on
// shm_segment.go's CalculateSegmentLayout/Segment for the mapped-region
// bookkeeping pattern. Regions are opened/created through internal/shmio.
package region

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/robaho/memglass/internal/shmio"
	"github.com/robaho/memglass/internal/wire"
)

// Config bounds the allocator's growth behavior.
type Config struct {
	InitialSize uint64
	MaxSize     uint64
}

type mappedRegion struct {
	id     uint64
	region *shmio.Region
	view   *wire.RegionView
}

// Manager owns the chain of data regions for a producer session. It is not
// safe for concurrent use without external locking on the producer side;
// callers take Manager's own mutex (Lock/Unlock) around Allocate.
type Manager struct {
	mu sync.Mutex

	session string
	cfg     Config

	nextID  uint64
	regions []*mappedRegion // in creation order; regions[len-1] is the tail
}

// NewManager creates the first data region (size = cfg.InitialSize),
// returning the new Manager and the id of that first region — the caller
// is responsible for storing that id into the session header's
// FirstRegionID field. Region ids start at 1; 0 is reserved as the
// "no region" sentinel FirstRegionID uses to mean an empty chain.
func NewManager(session string, cfg Config) (*Manager, uint64, error) {
	m := &Manager{session: session, cfg: cfg, nextID: 1}
	id, err := m.createRegion(cfg.InitialSize)
	if err != nil {
		return nil, 0, err
	}
	return m, id, nil
}

// OpenManager reopens an existing chain of data regions starting at
// firstRegionID, following each region's NextRegionID link until it hits a
// region whose link is still zero. Used by observer-side reattachment,
// which never creates a region — only opens.
func OpenManager(session string, firstRegionID uint64) (*Manager, error) {
	m := &Manager{session: session}
	id := firstRegionID
	for id != 0 {
		r, err := m.openRegion(id)
		if err != nil {
			return nil, err
		}
		if r.id+1 > m.nextID {
			m.nextID = r.id + 1
		}
		id = r.view.NextRegionID()
	}
	return m, nil
}

// Lock serializes producer-side allocation. Observers never call this.
func (m *Manager) Lock() { m.mu.Lock() }

// Unlock releases the allocation lock.
func (m *Manager) Unlock() { m.mu.Unlock() }

// Allocate reserves size bytes aligned to alignment (a power of two) in
// the tail region, growing the chain if the tail is exhausted. Callers
// must hold Lock. Returns the region id and offset-within-region (from the
// region's data start, i.e. past the descriptor) of the new allocation.
func (m *Manager) Allocate(size, alignment uint64) (regionID uint64, offset uint64, err error) {
	if size+wire.RegionDescriptorSize > m.cfg.MaxSize {
		return 0, 0, fmt.Errorf("region: allocation of %d bytes exceeds max region size %d", size, m.cfg.MaxSize)
	}

	for {
		tail := m.regions[len(m.regions)-1]
		used := tail.view.Used()
		aligned := wire.AlignUp(used, alignment)
		newUsed := aligned + size

		if newUsed <= tail.view.Size()-wire.RegionDescriptorSize {
			tail.view.SetUsed(newUsed)
			return tail.id, aligned, nil
		}

		grown := tail.view.Size() * 2
		want := size + wire.RegionDescriptorSize
		if grown < want {
			grown = want
		}
		if grown > m.cfg.MaxSize {
			grown = m.cfg.MaxSize
		}
		if grown < want {
			return 0, 0, fmt.Errorf("region: allocation of %d bytes exceeds max region size %d", size, m.cfg.MaxSize)
		}

		if _, err := m.createRegion(grown); err != nil {
			return 0, 0, err
		}
		tail.view.SetNextRegionID(m.regions[len(m.regions)-1].id)
	}
}

// Locate returns the (regionID, offsetInRegion) pair backing a previously
// allocated pointer, by walking the owned region list and testing
// pointer-range containment. ptr must point into the data area (past the
// descriptor) of one of this manager's regions.
func (m *Manager) Locate(ptr unsafe.Pointer) (regionID uint64, offset uint64, ok bool) {
	p := uintptr(ptr)
	for _, r := range m.regions {
		dataStart := uintptr(r.view.DataPtr())
		dataEnd := dataStart + uintptr(r.view.Size()) - wire.RegionDescriptorSize
		if p >= dataStart && p < dataEnd {
			return r.id, uint64(p - dataStart), true
		}
	}
	return 0, 0, false
}

// Refresh walks forward from the current tail's NextRegionID, opening any
// regions appended since the last walk. A duplicate id (one already
// mapped) is treated as a chain terminator rather than followed, since the
// chain is acyclic by construction.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.regions) == 0 {
		return nil
	}
	tail := m.regions[len(m.regions)-1]
	id := tail.view.NextRegionID()
	for id != 0 {
		if m.hasRegion(id) {
			break
		}
		r, err := m.openRegion(id)
		if err != nil {
			return err
		}
		if r.id+1 > m.nextID {
			m.nextID = r.id + 1
		}
		tail = r
		id = tail.view.NextRegionID()
	}
	return nil
}

func (m *Manager) hasRegion(id uint64) bool {
	for _, r := range m.regions {
		if r.id == id {
			return true
		}
	}
	return false
}

func (m *Manager) createRegion(size uint64) (uint64, error) {
	id := m.nextID
	m.nextID++

	name := wire.RegionShmName(m.session, id)
	shm, err := shmio.Create(name, int(size))
	if err != nil {
		return 0, fmt.Errorf("region: create region %d: %w", id, err)
	}

	view := wire.NewRegionView(shm.Mem())
	view.SetMagic(wire.RegionMagic)
	view.SetRegionID(id)
	view.SetSize(size)
	view.SetUsed(0)
	view.SetNextRegionID(0)
	view.SetShmName(name)

	m.regions = append(m.regions, &mappedRegion{id: id, region: shm, view: view})
	return id, nil
}

func (m *Manager) openRegion(id uint64) (*mappedRegion, error) {
	name := wire.RegionShmName(m.session, id)
	shm, err := shmio.Open(name)
	if err != nil {
		return nil, fmt.Errorf("region: open region %d: %w", id, err)
	}
	view := wire.NewRegionView(shm.Mem())
	if view.Magic() != wire.RegionMagic {
		shm.Close()
		return nil, fmt.Errorf("region: region %d has bad magic", id)
	}
	r := &mappedRegion{id: id, region: shm, view: view}
	m.regions = append(m.regions, r)
	return r, nil
}

// Stats reports a point-in-time snapshot of the chain's capacity usage.
type Stats struct {
	RegionCount int
	TotalBytes  uint64
	UsedBytes   uint64
}

// Stats returns aggregate usage across every region in the chain.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Stats
	s.RegionCount = len(m.regions)
	for _, r := range m.regions {
		s.TotalBytes += r.view.Size()
		s.UsedBytes += r.view.Used()
	}
	return s
}

// Close unmaps every region in the chain. Regions this manager created
// (NewManager, or grown by Allocate) are owner handles and are also
// unlinked; regions it only opened (OpenManager, Refresh) keep their names.
// Producer-side shutdown relies on this to unlink the data regions.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, r := range m.regions {
		if err := r.region.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RegionMem returns the mapped bytes of the region with the given id, or
// nil if not present in this chain.
func (m *Manager) RegionMem(id uint64) []byte {
	for _, r := range m.regions {
		if r.id == id {
			return r.region.Mem()
		}
	}
	return nil
}
