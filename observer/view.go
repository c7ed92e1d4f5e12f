package observer

import (
	"strings"
	"unsafe"

	"github.com/robaho/memglass/internal/registry"
	"github.com/robaho/memglass/internal/wire"
)

// View is a pointer into a mapped region plus the type id describing the
// bytes at that pointer. Obtained from Observer.Get, or internally when
// resolving a nested field.
type View struct {
	obs    *Observer
	base   unsafe.Pointer
	typeID uint32
}

// Valid reports whether this view resolved to a known type.
func (v View) Valid() bool {
	if v.obs == nil || v.base == nil {
		return false
	}
	_, ok := v.obs.typesByID[v.typeID]
	return ok
}

// Field resolves a (possibly dotted) field name using this algorithm:
//
//  1. An exact match against the type's field list wins outright, so
//     pre-flattened dotted names work without recursion.
//  2. Otherwise, if the name contains a dot, split once on the leftmost
//     dot and recurse into the nested view named by the prefix.
//
// Returns an empty (invalid) Proxy if the type is unknown or no field
// matches by either rule.
func (v View) Field(name string) Proxy {
	if !v.Valid() {
		return Proxy{}
	}
	td := v.obs.typesByID[v.typeID]

	for i := range td.Fields {
		f := &td.Fields[i]
		if f.Name == name {
			return v.proxyFor(f)
		}
	}

	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		prefix, suffix := name[:dot], name[dot+1:]
		for i := range td.Fields {
			f := &td.Fields[i]
			if f.Name != prefix {
				continue
			}
			nested := View{
				obs:    v.obs,
				base:   unsafe.Pointer(uintptr(v.base) + uintptr(f.Offset)),
				typeID: f.TypeID,
			}
			return nested.Field(suffix)
		}
	}

	return Proxy{}
}

func (v View) proxyFor(f *registry.FieldDescriptor) Proxy {
	elemSize := f.Size
	if f.Flags&wire.FlagArray != 0 && f.ArraySize > 0 {
		elemSize = f.Size / f.ArraySize
	}
	return Proxy{
		valid:     true,
		ptr:       unsafe.Pointer(uintptr(v.base) + uintptr(f.Offset)),
		typeID:    f.TypeID,
		size:      f.Size,
		elemSize:  elemSize,
		arraySize: f.ArraySize,
		atomicity: f.Atomicity,
	}
}
