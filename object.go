package memglass

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/robaho/memglass/internal/registry"
)

// FieldSpec declares one field of a registered type: its name, its byte
// offset and size within the Go struct, and how observers should read it.
// Obtain Offset/Size with unsafe.Offsetof/unsafe.Sizeof against the
// concrete struct being registered.
type FieldSpec struct {
	Name      string
	Offset    uintptr
	Size      uintptr
	Primitive PrimitiveType // ignored if NestedType is set
	NestedType string       // name of a previously registered type, for struct-typed fields
	ArraySize int           // 0 for a scalar field
	Atomicity Atomicity
	ReadOnly  bool
}

// RegisterType declares T as a named type with the given field list,
// assigns it a type id, and publishes it (and any types registered since
// the last flush) into the current session's header. T must be the exact
// Go struct whose layout the FieldSpecs describe.
func RegisterType[T any](name string, fields []FieldSpec) error {
	s, err := current()
	if err != nil {
		return err
	}

	var zero T
	size := uint32(unsafe.Sizeof(zero))
	align := uint32(unsafe.Alignof(zero))

	fds := make([]registry.FieldDescriptor, len(fields))
	for i, f := range fields {
		typeID := uint32(f.Primitive)
		flags := uint32(0)

		if f.NestedType != "" {
			td, ok := s.types.Lookup(f.NestedType)
			if !ok {
				return fmt.Errorf("memglass: register %q: nested type %q not registered", name, f.NestedType)
			}
			typeID = td.ID
			flags |= uint32(FlagNested)
		}
		if f.ArraySize > 0 {
			flags |= uint32(FlagArray)
		}
		if f.ReadOnly {
			flags |= uint32(FlagReadOnly)
		}

		fds[i] = registry.FieldDescriptor{
			Name:      f.Name,
			Offset:    uint32(f.Offset),
			Size:      uint32(f.Size),
			TypeID:    typeID,
			Flags:     flags,
			ArraySize: uint32(f.ArraySize),
			Atomicity: uint8(f.Atomicity),
		}
	}

	if _, err := s.types.Register(name, size, align, fds); err != nil {
		return fmt.Errorf("memglass: register %q: %w", name, err)
	}
	// Alias the Go type's own name so Create[T] can find the id without
	// the caller repeating the declared name.
	if err := s.types.Alias(goTypeName(zero), name); err != nil {
		return fmt.Errorf("memglass: register %q: %w", name, err)
	}

	return s.types.FlushTo(s.hv)
}

func goTypeName(v any) string {
	return reflect.TypeOf(v).String()
}

// Handle identifies a previously created object, for later Destroy.
type Handle struct {
	inner registry.ObjectHandle
}

// Create allocates a zero-valued T in shared memory, labels it, and
// returns a pointer into the mapped region plus a Handle for Destroy. T
// must already be registered via RegisterType.
func Create[T any](label string) (*T, Handle, error) {
	s, err := current()
	if err != nil {
		return nil, Handle{}, err
	}

	var zero T
	td, ok := s.types.LookupAlias(goTypeName(zero))
	if !ok {
		return nil, Handle{}, fmt.Errorf("memglass: create %q: type %T not registered", label, zero)
	}

	ptr, h, err := s.dir.Create(td.ID, label, uint64(unsafe.Sizeof(zero)), uint64(unsafe.Alignof(zero)))
	if err != nil {
		return nil, Handle{}, fmt.Errorf("memglass: create %q: %w", label, err)
	}
	return (*T)(ptr), Handle{inner: h}, nil
}

// CreateWithValue is Create followed by assigning v into the new object.
func CreateWithValue[T any](label string, v T) (*T, Handle, error) {
	p, h, err := Create[T](label)
	if err != nil {
		return nil, Handle{}, err
	}
	*p = v
	return p, h, nil
}

// CreateArray allocates n contiguous, zero-valued Ts as a single object,
// labels it, and returns the backing slice plus a Handle for Destroy.
func CreateArray[T any](label string, n int) ([]T, Handle, error) {
	s, err := current()
	if err != nil {
		return nil, Handle{}, err
	}
	if n <= 0 {
		return nil, Handle{}, fmt.Errorf("memglass: create array %q: n must be positive", label)
	}

	var zero T
	td, ok := s.types.LookupAlias(goTypeName(zero))
	if !ok {
		return nil, Handle{}, fmt.Errorf("memglass: create array %q: type %T not registered", label, zero)
	}

	elemSize := uint64(unsafe.Sizeof(zero))
	align := uint64(unsafe.Alignof(zero))
	ptr, h, err := s.dir.Create(td.ID, label, elemSize*uint64(n), align)
	if err != nil {
		return nil, Handle{}, fmt.Errorf("memglass: create array %q: %w", label, err)
	}
	return unsafe.Slice((*T)(ptr), n), Handle{inner: h}, nil
}

// Destroy flips the handle's directory entry to Destroyed. The backing
// bytes are never reused.
func Destroy(h Handle) error {
	s, err := current()
	if err != nil {
		return err
	}
	return s.dir.Destroy(h.inner)
}
