// Package memglass lets a producer process declare plain-data types,
// allocate instances of them in shared memory, and label them for lookup
// — so that any number of observer processes can attach and read fields by
// name with no IPC round-trip. See the observer package for the read side.
package memglass

import "github.com/robaho/memglass/internal/wire"

// Config bounds a session's shared-memory footprint and growth behavior.
// Mirrors the Default* constants shm_segment.go keeps alongside its
// segment-layout calculation.
type Config struct {
	// InitialRegionSize is the size, in bytes, of the first data region
	// created at session Init.
	InitialRegionSize uint64
	// MaxRegionSize bounds how large a single data region may grow to.
	// An allocation request that can never fit even a freshly grown
	// region (size + sizeof(RegionDescriptor) > MaxRegionSize) fails.
	MaxRegionSize uint64
	// MaxTypes bounds the header's type table.
	MaxTypes uint32
	// MaxFields bounds the header's field table, shared across all
	// registered types.
	MaxFields uint32
	// MaxObjects bounds the header's object directory.
	MaxObjects uint32
}

// DefaultConfig returns the standard producer configuration.
func DefaultConfig() Config {
	return Config{
		InitialRegionSize: wire.DefaultInitialRegionSize,
		MaxRegionSize:     wire.DefaultMaxRegionSize,
		MaxTypes:          wire.DefaultMaxTypes,
		MaxFields:         wire.DefaultMaxFields,
		MaxObjects:        wire.DefaultMaxObjects,
	}
}

// withDefaults fills any zero-valued field with its default, so callers
// can pass a partially-populated Config.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InitialRegionSize == 0 {
		c.InitialRegionSize = d.InitialRegionSize
	}
	if c.MaxRegionSize == 0 {
		c.MaxRegionSize = d.MaxRegionSize
	}
	if c.MaxTypes == 0 {
		c.MaxTypes = d.MaxTypes
	}
	if c.MaxFields == 0 {
		c.MaxFields = d.MaxFields
	}
	if c.MaxObjects == 0 {
		c.MaxObjects = d.MaxObjects
	}
	return c
}
