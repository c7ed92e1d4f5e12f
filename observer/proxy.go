package observer

import (
	"sync/atomic"
	"unsafe"

	"github.com/robaho/memglass/internal/primitives"
	"github.com/robaho/memglass/internal/wire"
)

// Proxy is an observer-side handle combining a byte pointer and a field
// descriptor. The zero Proxy is invalid and every read on it fails
// cleanly.
type Proxy struct {
	valid     bool
	ptr       unsafe.Pointer
	typeID    uint32
	size      uint32
	elemSize  uint32
	arraySize uint32
	atomicity uint8
}

// Valid reports whether this proxy resolved to a real field.
func (p Proxy) Valid() bool { return p.valid }

// TypeID returns the primitive or user type id of the proxy's value.
func (p Proxy) TypeID() uint32 { return p.typeID }

// Index returns a new Proxy pointing at element n of the current array
// field. Out-of-range (n >= array size, or the field is not an array)
// returns an empty proxy.
func (p Proxy) Index(n int) Proxy {
	if !p.valid || p.arraySize == 0 || n < 0 || uint32(n) >= p.arraySize {
		return Proxy{}
	}
	return Proxy{
		valid:     true,
		ptr:       unsafe.Pointer(uintptr(p.ptr) + uintptr(n)*uintptr(p.elemSize)),
		typeID:    p.typeID,
		size:      p.elemSize,
		elemSize:  p.elemSize,
		atomicity: p.atomicity,
	}
}

// ArraySize returns the number of elements if this proxy is an array
// field, or zero otherwise.
func (p Proxy) ArraySize() uint32 { return p.arraySize }

// String reads a fixed-size, null-terminated char array field (TypeChar
// with Atomicity None), the representation used for bounded strings such
// as names and labels.
func (p Proxy) String() (string, bool) {
	if !p.valid || p.typeID != wire.TypeChar {
		return "", false
	}
	n := p.size
	if p.arraySize > 0 {
		n = p.arraySize
	}
	buf := unsafe.Slice((*byte)(p.ptr), n)
	return wire.GetString(buf), true
}

func readScalar[T any](p Proxy, blocking bool) (T, bool) {
	var zero T
	if !p.valid {
		return zero, false
	}
	switch p.atomicity {
	case wire.AtomicityNone:
		return *(*T)(p.ptr), true
	case wire.AtomicityAtomic:
		return atomicLoad[T](p.ptr), true
	case wire.AtomicitySeqlock:
		g := (*primitives.Guarded[T])(p.ptr)
		if blocking {
			return g.Read(), true
		}
		return g.TryRead()
	case wire.AtomicityLocked:
		return (*primitives.Locked[T])(p.ptr).Read(), true
	default:
		return zero, false
	}
}

// atomicLoad performs a natural atomic load of the word at ptr for 4- and
// 8-byte primitive types. sync/atomic has no sub-word primitive, so 1- and
// 2-byte fields (Bool, Int8, UInt8, Int16, UInt16) fall back to a plain
// load even when tagged Atomic; those widths cannot tear on any
// architecture this module targets.
func atomicLoad[T any](ptr unsafe.Pointer) T {
	var zero T
	switch unsafe.Sizeof(zero) {
	case 4:
		v := atomic.LoadUint32((*uint32)(ptr))
		return *(*T)(unsafe.Pointer(&v))
	case 8:
		v := atomic.LoadUint64((*uint64)(ptr))
		return *(*T)(unsafe.Pointer(&v))
	default:
		return *(*T)(ptr)
	}
}

// Bool reads the proxy's value as bool, dispatching on its atomicity tag.
func (p Proxy) Bool() (bool, bool) { return readScalar[bool](p, true) }

// TryBool makes one attempt to read the proxy's value as bool, returning
// ok=false for a Seqlock field caught mid-write.
func (p Proxy) TryBool() (bool, bool) { return readScalar[bool](p, false) }

// Int8 reads the proxy's value as int8.
func (p Proxy) Int8() (int8, bool) { return readScalar[int8](p, true) }

// TryInt8 makes one attempt to read the proxy's value as int8.
func (p Proxy) TryInt8() (int8, bool) { return readScalar[int8](p, false) }

// UInt8 reads the proxy's value as uint8.
func (p Proxy) UInt8() (uint8, bool) { return readScalar[uint8](p, true) }

// TryUInt8 makes one attempt to read the proxy's value as uint8.
func (p Proxy) TryUInt8() (uint8, bool) { return readScalar[uint8](p, false) }

// Int16 reads the proxy's value as int16.
func (p Proxy) Int16() (int16, bool) { return readScalar[int16](p, true) }

// TryInt16 makes one attempt to read the proxy's value as int16.
func (p Proxy) TryInt16() (int16, bool) { return readScalar[int16](p, false) }

// UInt16 reads the proxy's value as uint16.
func (p Proxy) UInt16() (uint16, bool) { return readScalar[uint16](p, true) }

// TryUInt16 makes one attempt to read the proxy's value as uint16.
func (p Proxy) TryUInt16() (uint16, bool) { return readScalar[uint16](p, false) }

// Int32 reads the proxy's value as int32.
func (p Proxy) Int32() (int32, bool) { return readScalar[int32](p, true) }

// TryInt32 makes one attempt to read the proxy's value as int32.
func (p Proxy) TryInt32() (int32, bool) { return readScalar[int32](p, false) }

// UInt32 reads the proxy's value as uint32.
func (p Proxy) UInt32() (uint32, bool) { return readScalar[uint32](p, true) }

// TryUInt32 makes one attempt to read the proxy's value as uint32.
func (p Proxy) TryUInt32() (uint32, bool) { return readScalar[uint32](p, false) }

// Int64 reads the proxy's value as int64.
func (p Proxy) Int64() (int64, bool) { return readScalar[int64](p, true) }

// TryInt64 makes one attempt to read the proxy's value as int64.
func (p Proxy) TryInt64() (int64, bool) { return readScalar[int64](p, false) }

// UInt64 reads the proxy's value as uint64.
func (p Proxy) UInt64() (uint64, bool) { return readScalar[uint64](p, true) }

// TryUInt64 makes one attempt to read the proxy's value as uint64.
func (p Proxy) TryUInt64() (uint64, bool) { return readScalar[uint64](p, false) }

// Float32 reads the proxy's value as float32.
func (p Proxy) Float32() (float32, bool) { return readScalar[float32](p, true) }

// TryFloat32 makes one attempt to read the proxy's value as float32.
func (p Proxy) TryFloat32() (float32, bool) { return readScalar[float32](p, false) }

// Float64 reads the proxy's value as float64.
func (p Proxy) Float64() (float64, bool) { return readScalar[float64](p, true) }

// TryFloat64 makes one attempt to read the proxy's value as float64.
func (p Proxy) TryFloat64() (float64, bool) { return readScalar[float64](p, false) }

// Read copies the proxy's entire value out as T, the whole-struct read path
// for compound/user-type fields. Only fields with Atomicity None support
// this: a compound value has no single-word representation to load
// atomically or guard with a sequence lock, so the producer must not be
// mutating it concurrently with this copy. Returns ok=false for an invalid
// proxy or any other atomicity tag.
func Read[T any](p Proxy) (T, bool) {
	var zero T
	if !p.valid || p.atomicity != wire.AtomicityNone {
		return zero, false
	}
	return *(*T)(p.ptr), true
}

// TryRead is an alias of Read kept for symmetry with the Try* scalar
// accessors. A None-atomicity field carries no write-in-progress marker, so
// a concurrent write is not detected and TryRead never fails differently
// from Read.
func TryRead[T any](p Proxy) (T, bool) { return Read[T](p) }
