// Package primitives implements two value-holding synchronization
// primitives — Guarded[T] (sequence lock) and Locked[T] (spin lock) — for
// single-writer, multi-reader, cross-process use over a trivially-copyable
// payload T.
//
// Grounded on original_source/include/memglass/detail/seqlock.hpp's
// Guarded<T>/Locked<T> (odd/even sequence discipline, spin-acquire flag);
// the retry-loop shape mirrors shadow_cas.go's atomic.Pointer CAS-retry
// style. runtime.Gosched() stands in for the C++ original's _mm_pause().
package primitives

import (
	"runtime"
	"sync/atomic"
)

// Guarded is a sequence-locked value suitable for placement directly in a
// shared-memory region: single writer, many concurrent readers, no
// allocation, no syscalls on the hot path.
type Guarded[T any] struct {
	seq   atomic.Uint64
	value T
}

// Write stores a new value. Only the producer ever calls this.
func (g *Guarded[T]) Write(v T) {
	s := g.seq.Load()
	g.seq.Store(s + 1) // odd: write in progress
	g.value = v
	g.seq.Store(s + 2) // even: clean
}

// Read blocks (spinning) until it observes a consistent snapshot: the
// sequence number must be even and identical before and after the copy.
func (g *Guarded[T]) Read() T {
	for {
		if v, ok := g.TryRead(); ok {
			return v
		}
		runtime.Gosched()
	}
}

// TryRead makes one attempt to read a consistent snapshot, returning
// ok=false if a write was in progress (odd sequence) or completed
// mid-copy (sequence changed).
func (g *Guarded[T]) TryRead() (v T, ok bool) {
	s1 := g.seq.Load()
	if s1&1 != 0 {
		return v, false
	}
	v = g.value
	s2 := g.seq.Load()
	if s1 != s2 {
		return v, false
	}
	return v, true
}
