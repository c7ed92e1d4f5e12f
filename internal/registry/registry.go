// Package registry implements the process-private type registry and its
// flush into a mapped header region: producer-side type descriptors are
// assembled locally, keyed by name, and written into the header's type
// table and field table only when the caller asks to flush.
//
// Grounded on original_source/src/registry.cpp (hash_name's djb2-style
// hash folded into UserTypeBase with a linear-probe collision loop,
// write_to_header's registration-order flush) and
// original_source/include/memglass/registry.hpp's TypeDescriptor/
// FieldDescriptor. The alias table lets a Go reflect.Type resolve to the
// same id its declared name would.
package registry

import (
	"fmt"

	"github.com/robaho/memglass/internal/wire"
)

// FieldDescriptor is a process-private, pre-flush description of one field
// of a registered type.
type FieldDescriptor struct {
	Name      string
	Offset    uint32
	Size      uint32
	TypeID    uint32
	Flags     uint32
	ArraySize uint32
	Atomicity uint8
}

// TypeDescriptor is a process-private, pre-flush description of a
// registered type.
type TypeDescriptor struct {
	ID     uint32
	Name   string
	Size   uint32
	Align  uint32
	Fields []FieldDescriptor
}

// Registry is the producer's local bookkeeping for registered types. It is
// flushed into a mapped header region with FlushTo once the producer is
// done declaring types for the moment, and may be extended with more
// types and flushed again later.
type Registry struct {
	maxTypes  uint32
	maxFields uint32

	order   []string // registration order, for a stable flush
	byName  map[string]*TypeDescriptor
	byID    map[uint32]*TypeDescriptor
	aliases map[string]uint32 // alternate lookup keys (e.g. reflect.Type.String())

	flushedTypes  int
	flushedFields int
}

// New creates an empty registry bounded by the header's table capacities.
func New(maxTypes, maxFields uint32) *Registry {
	return &Registry{
		maxTypes:  maxTypes,
		maxFields: maxFields,
		byName:    make(map[string]*TypeDescriptor),
		byID:      make(map[uint32]*TypeDescriptor),
		aliases:   make(map[string]uint32),
	}
}

// Register assigns a type id to name (via hashTypeID, resolving collisions
// against already-registered ids by linear probing) and records its field
// list. Registering the same name twice returns the existing descriptor
// unchanged — registration is idempotent by name.
func (r *Registry) Register(name string, size, align uint32, fields []FieldDescriptor) (*TypeDescriptor, error) {
	if existing, ok := r.byName[name]; ok {
		return existing, nil
	}
	if len(r.order) >= int(r.maxTypes) {
		return nil, fmt.Errorf("registry: type table full (capacity %d)", r.maxTypes)
	}

	id := hashTypeID(name)
	for {
		if _, taken := r.byID[id]; !taken {
			break
		}
		id++
		if id < wire.UserTypeBase {
			id = wire.UserTypeBase
		}
	}

	td := &TypeDescriptor{ID: id, Name: name, Size: size, Align: align, Fields: append([]FieldDescriptor(nil), fields...)}
	r.byName[name] = td
	r.byID[id] = td
	r.order = append(r.order, name)
	return td, nil
}

// Alias records an additional lookup key (for example a Go reflect.Type's
// String()) that resolves to the same type id as name, which must already
// be registered. Lets generic callers that only have a reflect.Type find
// the id a declarative registration assigned by name.
func (r *Registry) Alias(alias, name string) error {
	td, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("registry: cannot alias %q: %q is not registered", alias, name)
	}
	r.aliases[alias] = td.ID
	return nil
}

// Lookup resolves a registered name to its descriptor.
func (r *Registry) Lookup(name string) (*TypeDescriptor, bool) {
	td, ok := r.byName[name]
	return td, ok
}

// LookupAlias resolves an alias (or a plain name, aliases and names share
// one namespace for lookup purposes) to its descriptor.
func (r *Registry) LookupAlias(key string) (*TypeDescriptor, bool) {
	if td, ok := r.byName[key]; ok {
		return td, true
	}
	if id, ok := r.aliases[key]; ok {
		td, ok := r.byID[id]
		return td, ok
	}
	return nil, false
}

// ByID resolves a type id back to its descriptor.
func (r *Registry) ByID(id uint32) (*TypeDescriptor, bool) {
	td, ok := r.byID[id]
	return td, ok
}

// FlushTo writes every not-yet-flushed registered type (in registration
// order) into the header's type table and field table, then publishes the
// new counts with release ordering. Safe to call repeatedly as more types
// are registered between flushes.
func (r *Registry) FlushTo(hv *wire.HeaderView) error {
	fieldEntriesOffset := hv.FieldEntriesOffset()
	fieldEntrySize := uint64(wire.FieldEntrySize)

	typeCount := r.flushedTypes
	fieldCount := r.flushedFields

	for _, name := range r.order[r.flushedTypes:] {
		td := r.byName[name]

		if typeCount >= int(hv.TypeRegistryCapacity()) {
			return fmt.Errorf("registry: header type table full (capacity %d)", hv.TypeRegistryCapacity())
		}
		if fieldCount+len(td.Fields) > int(hv.FieldEntriesCapacity()) {
			return fmt.Errorf("registry: header field table full (capacity %d)", hv.FieldEntriesCapacity())
		}

		fieldsOffset := fieldEntriesOffset + uint64(fieldCount)*fieldEntrySize
		for _, f := range td.Fields {
			fe := hv.FieldEntryAt(uint32(fieldCount))
			fe.Offset = f.Offset
			fe.Size = f.Size
			fe.TypeID = f.TypeID
			fe.Flags = f.Flags
			fe.ArraySize = f.ArraySize
			fe.Atomicity = f.Atomicity
			wire.PutString(fe.Name[:], f.Name)
			fieldCount++
		}

		te := hv.TypeEntryAt(uint32(typeCount))
		te.TypeID = td.ID
		te.Size = td.Size
		te.Alignment = td.Align
		te.FieldCount = uint32(len(td.Fields))
		te.FieldsOffset = fieldsOffset
		wire.PutString(te.Name[:], td.Name)
		typeCount++
	}

	if typeCount == r.flushedTypes {
		return nil
	}

	hv.SetFieldCount(uint32(fieldCount))
	hv.SetTypeCount(uint32(typeCount))
	r.flushedTypes = typeCount
	r.flushedFields = fieldCount
	hv.BumpSequence()
	return nil
}

// hashTypeID folds a djb2-style hash of name into the UserTypeBase region
// of the id space. Matches original_source/src/registry.cpp's hash_name.
func hashTypeID(name string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(name); i++ {
		h = h*33 + uint32(name[i])
	}
	return wire.UserTypeBase + (h & 0x7FFFFFFF)
}

// LoadTypes reads the header's currently published type table and field
// table into a fresh snapshot, the observer-side counterpart of FlushTo.
// FieldsOffset is resolved back to an index by subtracting
// FieldEntriesOffset and dividing by the entry size, mirroring
// original_source/src/observer.cpp's load_types.
func LoadTypes(hv *wire.HeaderView) []TypeDescriptor {
	fieldEntriesOffset := hv.FieldEntriesOffset()
	fieldEntrySize := uint64(wire.FieldEntrySize)

	n := hv.TypeCount()
	out := make([]TypeDescriptor, 0, n)
	for i := uint32(0); i < n; i++ {
		te := hv.TypeEntryAt(i)
		firstField := uint32((te.FieldsOffset - fieldEntriesOffset) / fieldEntrySize)

		td := TypeDescriptor{
			ID:    te.TypeID,
			Name:  wire.GetString(te.Name[:]),
			Size:  te.Size,
			Align: te.Alignment,
		}
		for j := uint32(0); j < te.FieldCount; j++ {
			fe := hv.FieldEntryAt(firstField + j)
			td.Fields = append(td.Fields, FieldDescriptor{
				Name:      wire.GetString(fe.Name[:]),
				Offset:    fe.Offset,
				Size:      fe.Size,
				TypeID:    fe.TypeID,
				Flags:     fe.Flags,
				ArraySize: fe.ArraySize,
				Atomicity: fe.Atomicity,
			})
		}
		out = append(out, td)
	}
	return out
}
