package wire

import "fmt"

// Magic numbers and protocol version.
const (
	HeaderMagic  = uint64(0x4D454D474C415353) // "MEMGLASS"
	RegionMagic  = uint64(0x5245474E4D454D47) // "REGNMEMG"
	ProtoVersion = uint32(1)
)

// Primitive type ids. User type ids start at UserTypeBase.
const (
	TypeUnknown = uint32(iota)
	TypeBool
	TypeInt8
	TypeUInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat32
	TypeFloat64
	TypeChar
)

// UserTypeBase is the first id available to user-registered types.
const UserTypeBase = uint32(0x10000)

// Default configuration values.
const (
	DefaultInitialRegionSize = 1 * 1024 * 1024
	DefaultMaxRegionSize     = 64 * 1024 * 1024
	DefaultMaxTypes          = 256
	DefaultMaxFields         = 4096
	DefaultMaxObjects        = 4096
)

const (
	sessionNameLen = 64
	typeNameLen    = 128
	fieldNameLen   = 64
	labelLen       = 64
	shmNameLen     = 64
)

// Header is the fixed-layout session header. It is followed in the header
// region by the type table, the field table, and the object directory, in
// that order, at the offsets it records. Every multi-byte field here is
// naturally aligned by construction (see DESIGN.md), so there is no hidden
// compiler padding between fields.
type Header struct {
	Magic   uint64
	Version uint32
	// HeaderSize is sizeof(Header), not the size of the whole header
	// region (tables included) — the latter lives in Layout.
	HeaderSize uint32

	Sequence uint64 // atomic, bumped on every structural change

	TypeRegistryOffset   uint64
	TypeRegistryCapacity uint32
	TypeCount            uint32 // atomic

	FieldEntriesOffset   uint64
	FieldEntriesCapacity uint32
	FieldCount           uint32 // atomic

	ObjectDirOffset   uint64
	ObjectDirCapacity uint32
	ObjectCount       uint32 // atomic

	FirstRegionID uint64 // atomic

	SessionName    [sessionNameLen]byte
	ProducerPID    uint64
	StartTimestamp uint64
}

// HeaderSize is sizeof(Header) — kept as a constant so callers can size the
// header region without resorting to unsafe.Sizeof at call sites.
const HeaderSize = 8 + 4 + 4 + 8 + (8 + 4 + 4) + (8 + 4 + 4) + (8 + 4 + 4) + 8 + sessionNameLen + 8 + 8

// TypeEntry describes a registered type.
type TypeEntry struct {
	TypeID      uint32
	Size        uint32
	Alignment   uint32
	FieldCount  uint32
	// FieldsOffset is the absolute byte offset, from the base of the
	// header region, of this type's first FieldEntry — not an index and
	// not relative to FieldEntriesOffset. Resolved against
	// Header.FieldEntriesOffset by subtracting and dividing by
	// FieldEntrySize (original_source/src/observer.cpp's load_types).
	FieldsOffset uint64
	Name        [typeNameLen]byte
}

const TypeEntrySize = 4 + 4 + 4 + 4 + 8 + typeNameLen

// FieldEntry describes one field of a registered type.
type FieldEntry struct {
	Offset    uint32
	Size      uint32
	TypeID    uint32
	Flags     uint32
	ArraySize uint32
	Atomicity uint8
	_         [3]byte
	Name      [fieldNameLen]byte
}

const FieldEntrySize = 4 + 4 + 4 + 4 + 4 + 1 + 3 + fieldNameLen

// Field flag bits.
const (
	FlagArray    = uint32(1) << 0
	FlagNested   = uint32(1) << 1
	FlagReadOnly = uint32(1) << 2
)

// Atomicity tags.
const (
	AtomicityNone = uint8(iota)
	AtomicityAtomic
	AtomicitySeqlock
	AtomicityLocked
)

// ObjectEntry is one slot of the object directory.
type ObjectEntry struct {
	State     uint32 // atomic, ObjectState
	TypeID    uint32
	RegionID  uint64
	Offset    uint64
	Generation uint64
	Label     [labelLen]byte
}

const ObjectEntrySize = 4 + 4 + 8 + 8 + 8 + labelLen

// Object directory states.
const (
	ObjectFree = uint32(iota)
	ObjectAlive
	ObjectDestroyed
)

// RegionDescriptor sits at the base of every data region.
type RegionDescriptor struct {
	Magic        uint64
	RegionID     uint64
	Size         uint64
	Used         uint64 // atomic
	NextRegionID uint64 // atomic
	ShmName      [shmNameLen]byte
}

const RegionDescriptorSize = 8 + 8 + 8 + 8 + 8 + shmNameLen

// Layout is the computed geometry of a header region for a given
// configuration of table capacities.
type Layout struct {
	TypeRegistryOffset uint64
	FieldEntriesOffset uint64
	ObjectDirOffset    uint64
	TotalSize          uint64
}

// ComputeLayout lays out [Header][TypeEntry...][FieldEntry...][ObjectEntry...]
// with the object directory's start rounded up to an 8-byte boundary so that
// its leading atomic uint32 (and the uint64s following it) never straddle an
// unaligned address regardless of how maxTypes/maxFields were chosen.
func ComputeLayout(maxTypes, maxFields, maxObjects uint32) Layout {
	typeRegistryOffset := uint64(HeaderSize)
	fieldEntriesOffset := typeRegistryOffset + uint64(maxTypes)*TypeEntrySize
	objectDirOffset := AlignUp(fieldEntriesOffset+uint64(maxFields)*FieldEntrySize, 8)
	total := objectDirOffset + uint64(maxObjects)*ObjectEntrySize
	return Layout{
		TypeRegistryOffset: typeRegistryOffset,
		FieldEntriesOffset: fieldEntriesOffset,
		ObjectDirOffset:    objectDirOffset,
		TotalSize:          total,
	}
}

// HeaderShmName returns the deterministic shared-memory object name for a
// session's header region.
func HeaderShmName(session string) string {
	return "/memglass_" + session + "_header"
}

// RegionShmName returns the deterministic shared-memory object name for one
// data region of a session. Region ids are decimal, zero-padded
// to four digits.
func RegionShmName(session string, regionID uint64) string {
	return fmt.Sprintf("/memglass_%s_region_%04d", session, regionID)
}

// PutString copies s into a fixed-size, null-terminated byte array,
// truncating if necessary. Mirrors the C++ original's set_name/set_label
// helpers (original_source/include/memglass/types.hpp).
func PutString(dst []byte, s string) {
	n := len(s)
	if n > len(dst)-1 {
		n = len(dst) - 1
	}
	copy(dst, s[:n])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// GetString reads a null-terminated string out of a fixed-size byte array.
func GetString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
