package wire

import (
	"sync/atomic"
	"unsafe"
)

// HeaderView is a typed, atomic-aware accessor over the Header struct
// placed at the base of a mapped header region. It never copies the
// underlying bytes; every method reads or writes through the mapping
// directly, the same way shm_segment.go's hdrView wraps a basePtr.
type HeaderView struct {
	base unsafe.Pointer
}

// NewHeaderView wraps the base of a mapped header region.
func NewHeaderView(mem []byte) *HeaderView {
	return &HeaderView{base: unsafe.Pointer(&mem[0])}
}

func (v *HeaderView) hdr() *Header {
	return (*Header)(v.base)
}

// Magic returns the header magic number (plain read — written once before
// the region is published via its filesystem name).
func (v *HeaderView) Magic() uint64 { return v.hdr().Magic }

// SetMagic sets the header magic number.
func (v *HeaderView) SetMagic(m uint64) { v.hdr().Magic = m }

// Version returns the protocol version.
func (v *HeaderView) Version() uint32 { return v.hdr().Version }

// SetVersion sets the protocol version.
func (v *HeaderView) SetVersion(ver uint32) { v.hdr().Version = ver }

// HeaderSize returns the recorded sizeof(Header).
func (v *HeaderView) HeaderSize() uint32 { return v.hdr().HeaderSize }

// SetHeaderSize sets the recorded sizeof(Header).
func (v *HeaderView) SetHeaderSize(sz uint32) { v.hdr().HeaderSize = sz }

// Sequence atomically loads the structural sequence counter.
func (v *HeaderView) Sequence() uint64 {
	return atomic.LoadUint64(&v.hdr().Sequence)
}

// BumpSequence atomically increments the structural sequence counter and
// returns the new value.
func (v *HeaderView) BumpSequence() uint64 {
	return atomic.AddUint64(&v.hdr().Sequence, 1)
}

// TypeRegistryOffset returns the byte offset of the type table.
func (v *HeaderView) TypeRegistryOffset() uint64 { return v.hdr().TypeRegistryOffset }

// SetTypeRegistryOffset sets the byte offset of the type table.
func (v *HeaderView) SetTypeRegistryOffset(off uint64) { v.hdr().TypeRegistryOffset = off }

// TypeRegistryCapacity returns the type table's fixed capacity.
func (v *HeaderView) TypeRegistryCapacity() uint32 { return v.hdr().TypeRegistryCapacity }

// SetTypeRegistryCapacity sets the type table's fixed capacity.
func (v *HeaderView) SetTypeRegistryCapacity(cap uint32) { v.hdr().TypeRegistryCapacity = cap }

// TypeCount atomically loads the number of registered types.
func (v *HeaderView) TypeCount() uint32 {
	return atomic.LoadUint32(&v.hdr().TypeCount)
}

// SetTypeCount atomically stores the number of registered types (release).
func (v *HeaderView) SetTypeCount(n uint32) {
	atomic.StoreUint32(&v.hdr().TypeCount, n)
}

// FieldEntriesOffset returns the byte offset of the field table.
func (v *HeaderView) FieldEntriesOffset() uint64 { return v.hdr().FieldEntriesOffset }

// SetFieldEntriesOffset sets the byte offset of the field table.
func (v *HeaderView) SetFieldEntriesOffset(off uint64) { v.hdr().FieldEntriesOffset = off }

// FieldEntriesCapacity returns the field table's fixed capacity.
func (v *HeaderView) FieldEntriesCapacity() uint32 { return v.hdr().FieldEntriesCapacity }

// SetFieldEntriesCapacity sets the field table's fixed capacity.
func (v *HeaderView) SetFieldEntriesCapacity(cap uint32) { v.hdr().FieldEntriesCapacity = cap }

// FieldCount atomically loads the number of appended field entries.
func (v *HeaderView) FieldCount() uint32 {
	return atomic.LoadUint32(&v.hdr().FieldCount)
}

// SetFieldCount atomically stores the number of appended field entries.
func (v *HeaderView) SetFieldCount(n uint32) {
	atomic.StoreUint32(&v.hdr().FieldCount, n)
}

// ObjectDirOffset returns the byte offset of the object directory.
func (v *HeaderView) ObjectDirOffset() uint64 { return v.hdr().ObjectDirOffset }

// SetObjectDirOffset sets the byte offset of the object directory.
func (v *HeaderView) SetObjectDirOffset(off uint64) { v.hdr().ObjectDirOffset = off }

// ObjectDirCapacity returns the object directory's fixed capacity.
func (v *HeaderView) ObjectDirCapacity() uint32 { return v.hdr().ObjectDirCapacity }

// SetObjectDirCapacity sets the object directory's fixed capacity.
func (v *HeaderView) SetObjectDirCapacity(cap uint32) { v.hdr().ObjectDirCapacity = cap }

// ObjectCount atomically loads the number of appended object-directory
// entries (not the number currently Alive).
func (v *HeaderView) ObjectCount() uint32 {
	return atomic.LoadUint32(&v.hdr().ObjectCount)
}

// SetObjectCount atomically stores the number of appended object-directory
// entries.
func (v *HeaderView) SetObjectCount(n uint32) {
	atomic.StoreUint32(&v.hdr().ObjectCount, n)
}

// FirstRegionID atomically loads the id of the first data region, or 0 if
// no region has been created yet.
func (v *HeaderView) FirstRegionID() uint64 {
	return atomic.LoadUint64(&v.hdr().FirstRegionID)
}

// SetFirstRegionID atomically stores the id of the first data region.
// Set at most once, from zero.
func (v *HeaderView) SetFirstRegionID(id uint64) {
	atomic.StoreUint64(&v.hdr().FirstRegionID, id)
}

// SessionName returns the session's human-readable name.
func (v *HeaderView) SessionName() string { return GetString(v.hdr().SessionName[:]) }

// SetSessionName writes the session's human-readable name.
func (v *HeaderView) SetSessionName(name string) { PutString(v.hdr().SessionName[:], name) }

// ProducerPID returns the producer process id.
func (v *HeaderView) ProducerPID() uint64 { return v.hdr().ProducerPID }

// SetProducerPID sets the producer process id.
func (v *HeaderView) SetProducerPID(pid uint64) { v.hdr().ProducerPID = pid }

// StartTimestamp returns the session start time, in Unix nanoseconds.
func (v *HeaderView) StartTimestamp() uint64 { return v.hdr().StartTimestamp }

// SetStartTimestamp sets the session start time, in Unix nanoseconds.
func (v *HeaderView) SetStartTimestamp(ts uint64) { v.hdr().StartTimestamp = ts }

// TypeEntryAt returns a pointer to the type table's i'th slot.
func (v *HeaderView) TypeEntryAt(i uint32) *TypeEntry {
	return (*TypeEntry)(unsafe.Pointer(uintptr(v.base) + uintptr(v.hdr().TypeRegistryOffset) + uintptr(i)*TypeEntrySize))
}

// FieldEntryAt returns a pointer to the field table's i'th slot.
func (v *HeaderView) FieldEntryAt(i uint32) *FieldEntry {
	return (*FieldEntry)(unsafe.Pointer(uintptr(v.base) + uintptr(v.hdr().FieldEntriesOffset) + uintptr(i)*FieldEntrySize))
}

// ObjectEntryAt returns a pointer to the object directory's i'th slot.
func (v *HeaderView) ObjectEntryAt(i uint32) *ObjectEntry {
	return (*ObjectEntry)(unsafe.Pointer(uintptr(v.base) + uintptr(v.hdr().ObjectDirOffset) + uintptr(i)*ObjectEntrySize))
}

// Base returns the raw base pointer of the mapped header region, for
// callers that need to compute absolute-vs-relative FieldsOffset values.
func (v *HeaderView) Base() unsafe.Pointer { return v.base }

// LoadState atomically loads an ObjectEntry's state.
func (e *ObjectEntry) LoadState() uint32 {
	return atomic.LoadUint32(&e.State)
}

// StoreState atomically stores an ObjectEntry's state (release).
func (e *ObjectEntry) StoreState(s uint32) {
	atomic.StoreUint32(&e.State, s)
}

// RegionView is a typed, atomic-aware accessor over a RegionDescriptor
// placed at the base of a mapped data region, followed immediately by the
// region's payload bytes.
type RegionView struct {
	base unsafe.Pointer
}

// NewRegionView wraps the base of a mapped data region.
func NewRegionView(mem []byte) *RegionView {
	return &RegionView{base: unsafe.Pointer(&mem[0])}
}

func (v *RegionView) desc() *RegionDescriptor {
	return (*RegionDescriptor)(v.base)
}

// Magic returns the region magic number.
func (v *RegionView) Magic() uint64 { return v.desc().Magic }

// SetMagic sets the region magic number.
func (v *RegionView) SetMagic(m uint64) { v.desc().Magic = m }

// RegionID returns the region's id.
func (v *RegionView) RegionID() uint64 { return v.desc().RegionID }

// SetRegionID sets the region's id.
func (v *RegionView) SetRegionID(id uint64) { v.desc().RegionID = id }

// Size returns the region's total size, descriptor included.
func (v *RegionView) Size() uint64 { return v.desc().Size }

// SetSize sets the region's total size, descriptor included.
func (v *RegionView) SetSize(sz uint64) { v.desc().Size = sz }

// Used atomically loads the number of bytes allocated so far.
func (v *RegionView) Used() uint64 {
	return atomic.LoadUint64(&v.desc().Used)
}

// SetUsed atomically stores the number of bytes allocated so far.
func (v *RegionView) SetUsed(n uint64) {
	atomic.StoreUint64(&v.desc().Used, n)
}

// NextRegionID atomically loads the next region's id, or 0 if this is the
// tail region.
func (v *RegionView) NextRegionID() uint64 {
	return atomic.LoadUint64(&v.desc().NextRegionID)
}

// SetNextRegionID atomically stores the next region's id. Set at most
// once per region, from zero.
func (v *RegionView) SetNextRegionID(id uint64) {
	atomic.StoreUint64(&v.desc().NextRegionID, id)
}

// ShmName returns the shared-memory object name backing this region.
func (v *RegionView) ShmName() string { return GetString(v.desc().ShmName[:]) }

// SetShmName writes the shared-memory object name backing this region.
func (v *RegionView) SetShmName(name string) { PutString(v.desc().ShmName[:], name) }

// DataPtr returns a pointer to the region's payload area, immediately past
// the descriptor.
func (v *RegionView) DataPtr() unsafe.Pointer {
	return unsafe.Pointer(uintptr(v.base) + uintptr(RegionDescriptorSize))
}

// Base returns the raw base pointer of the mapped data region.
func (v *RegionView) Base() unsafe.Pointer { return v.base }
