package memglass

//go:generate go tool stringer -type=PrimitiveType,Atomicity,ObjectState,FieldFlags -output=types_string.go

// PrimitiveType identifies the built-in scalar types a field can hold, or
// Unknown when a field's type id refers to a registered user type
// instead. Ids match the wire type ids exactly so the wire representation
// needs no translation.
type PrimitiveType uint32

const (
	TypeUnknown PrimitiveType = iota
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

// UserTypeBase is the first type id available to user-registered types;
// see original_source/include/memglass/registry.hpp.
const UserTypeBase = PrimitiveType(0x10000)

// Atomicity tags the read/write discipline a field's bytes follow.
type Atomicity uint8

const (
	// AtomicityNone reads and writes with plain aligned loads/stores;
	// may tear under concurrent access, an explicit performance option.
	AtomicityNone Atomicity = iota
	// AtomicityAtomic uses the hardware's natural atomic load/store for
	// the field's width, acquire/release ordered.
	AtomicityAtomic
	// AtomicitySeqlock wraps the field in a Guarded[T] sequence lock.
	AtomicitySeqlock
	// AtomicityLocked wraps the field in a Locked[T] spin lock.
	AtomicityLocked
)

// ObjectState is an object-directory entry's lifecycle state.
type ObjectState uint32

const (
	ObjectFree ObjectState = iota
	ObjectAlive
	ObjectDestroyed
)

// FieldFlags are the per-field flag bits stored in a FieldEntry.
type FieldFlags uint32

const (
	FlagArray FieldFlags = 1 << iota
	FlagNested
	FlagReadOnly
)
