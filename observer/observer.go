// Package observer implements the read-only side of a memglass session:
// attach to a producer's header region, track its structural sequence,
// and resolve named objects and fields without any IPC round-trip.
//
// Grounded on original_source/include/memglass/observer.hpp's Observer
// class (connect/disconnect/refresh/objects/find/get) and
// original_source/src/observer.cpp's load_types/load_regions. The
// lazy-region-opening and magic-validated attach mirror shm_segment.go's
// ValidateSegmentHeader pattern.
package observer

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/robaho/memglass/internal/region"
	"github.com/robaho/memglass/internal/registry"
	"github.com/robaho/memglass/internal/shmio"
	"github.com/robaho/memglass/internal/wire"
)

// State is the observer's connection state.
type State int

const (
	Disconnected State = iota
	Connected
)

// ErrDisconnected is returned by any query operation on a disconnected
// observer.
var ErrDisconnected = errors.New("observer: not connected")

// Observer attaches to a producer's session header and lets callers
// enumerate and read observed objects. Not safe for concurrent Connect/
// Disconnect from multiple goroutines; Refresh and reads are safe to call
// concurrently with each other.
type Observer struct {
	mu sync.RWMutex

	state   State
	session string

	header *shmio.Region
	hv     *wire.HeaderView
	rm     *region.Manager

	lastSeq     uint64
	typesByID   map[uint32]registry.TypeDescriptor
	typesByName map[string]registry.TypeDescriptor
}

// New creates a disconnected observer.
func New() *Observer {
	return &Observer{state: Disconnected}
}

// Connect opens the named session's header region, validates its magic
// and version, and loads an initial snapshot of the type table and region
// chain. On any failure the observer is left Disconnected.
func (o *Observer) Connect(session string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	name := wire.HeaderShmName(session)
	hdr, err := shmio.Open(name)
	if err != nil {
		return fmt.Errorf("observer: connect %q: %w", session, err)
	}

	hv := wire.NewHeaderView(hdr.Mem())
	if hv.Magic() != wire.HeaderMagic {
		hdr.Close()
		return fmt.Errorf("observer: connect %q: bad header magic", session)
	}
	if hv.Version() != wire.ProtoVersion {
		hdr.Close()
		return fmt.Errorf("observer: connect %q: unsupported version %d", session, hv.Version())
	}

	// FirstRegionID 0 means the producer has not allocated any region yet
	// (region ids are assigned starting at 1); OpenManager(session, 0) maps
	// nothing and leaves rm ready to pick up the chain on a later Refresh.
	var rm *region.Manager
	if firstID := hv.FirstRegionID(); firstID != 0 {
		rm, err = region.OpenManager(session, firstID)
		if err != nil {
			hdr.Close()
			return fmt.Errorf("observer: connect %q: %w", session, err)
		}
	} else {
		rm, _ = region.OpenManager(session, 0)
	}

	o.session = session
	o.header = hdr
	o.hv = hv
	o.rm = rm
	o.state = Connected
	o.lastSeq = 0 // force a type load below
	o.loadTypesLocked()

	return nil
}

// Disconnect releases every mapped region (header and data) and returns
// the observer to Disconnected. In-flight Views/Proxies from before this
// call become invalid.
func (o *Observer) Disconnect() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != Connected {
		return nil
	}

	var firstErr error
	if o.rm != nil {
		if err := o.rm.Close(); err != nil {
			firstErr = err
		}
	}
	if err := o.header.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	o.state = Disconnected
	o.header = nil
	o.hv = nil
	o.rm = nil
	o.typesByID = nil
	o.typesByName = nil

	return firstErr
}

// State reports the observer's current connection state.
func (o *Observer) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Refresh reloads the type table and extends the mapped region chain if
// the header's structural sequence counter has advanced since the last
// refresh (or Connect). A no-op when nothing changed.
func (o *Observer) Refresh() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshLocked()
}

func (o *Observer) refreshLocked() error {
	if o.state != Connected {
		return ErrDisconnected
	}
	seq := o.hv.Sequence()
	if seq == o.lastSeq {
		return nil
	}
	o.loadTypesLocked()
	if o.rm.Stats().RegionCount == 0 {
		if firstID := o.hv.FirstRegionID(); firstID != 0 {
			rm, err := region.OpenManager(o.session, firstID)
			if err != nil {
				return fmt.Errorf("observer: refresh %q: %w", o.session, err)
			}
			o.rm = rm
		}
	}
	if err := o.rm.Refresh(); err != nil {
		return fmt.Errorf("observer: refresh %q: %w", o.session, err)
	}
	o.lastSeq = seq
	return nil
}

func (o *Observer) loadTypesLocked() {
	types := registry.LoadTypes(o.hv)
	byID := make(map[uint32]registry.TypeDescriptor, len(types))
	byName := make(map[string]registry.TypeDescriptor, len(types))
	for _, td := range types {
		byID[td.ID] = td
		byName[td.Name] = td
	}
	o.typesByID = byID
	o.typesByName = byName
	o.lastSeq = o.hv.Sequence()
}

// ObjectInfo is a materialized summary of one Alive object-directory
// entry.
type ObjectInfo struct {
	Label      string
	TypeName   string
	TypeID     uint32
	RegionID   uint64
	Offset     uint64
	Generation uint64

	slot uint32
}

func (o *Observer) infoForSlot(slot uint32) ObjectInfo {
	e := o.hv.ObjectEntryAt(slot)
	td := o.typesByID[e.TypeID]
	return ObjectInfo{
		Label:      wire.GetString(e.Label[:]),
		TypeName:   td.Name,
		TypeID:     e.TypeID,
		RegionID:   e.RegionID,
		Offset:     e.Offset,
		Generation: e.Generation,
		slot:       slot,
	}
}

// Objects enumerates every currently Alive object in directory order.
func (o *Observer) Objects() ([]ObjectInfo, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.state != Connected {
		return nil, ErrDisconnected
	}

	slots := registry.AllAlive(o.hv)
	out := make([]ObjectInfo, 0, len(slots))
	for _, slot := range slots {
		out = append(out, o.infoForSlot(slot))
	}
	return out, nil
}

// Find looks up an Alive object by label.
func (o *Observer) Find(label string) (ObjectInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.state != Connected {
		return ObjectInfo{}, false
	}

	_, slot, ok := registry.FindByLabel(o.hv, label)
	if !ok {
		return ObjectInfo{}, false
	}
	return o.infoForSlot(slot), true
}

// Get resolves an ObjectInfo (from Find or Objects) to a live View over
// its mapped bytes. Returns ok=false if the backing region is not mapped
// (call Refresh first) or the type is unknown.
func (o *Observer) Get(info ObjectInfo) (View, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.state != Connected {
		return View{}, false
	}
	if _, ok := o.typesByID[info.TypeID]; !ok {
		return View{}, false
	}
	mem := o.rm.RegionMem(info.RegionID)
	if mem == nil {
		return View{}, false
	}
	if int(info.Offset)+wire.RegionDescriptorSize > len(mem) {
		return View{}, false
	}
	ptr := unsafe.Pointer(&mem[wire.RegionDescriptorSize+int(info.Offset)])
	return View{obs: o, base: ptr, typeID: info.TypeID}, true
}

// Types returns a snapshot of every currently known type descriptor,
// keyed by name.
func (o *Observer) Types() map[string]registry.TypeDescriptor {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]registry.TypeDescriptor, len(o.typesByName))
	for k, v := range o.typesByName {
		out[k] = v
	}
	return out
}
