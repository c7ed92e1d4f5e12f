package region

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/robaho/memglass/internal/wire"
)

var seq int

func session(t *testing.T) string {
	t.Helper()
	seq++
	return fmt.Sprintf("test_region_%s_%d", t.Name(), seq)
}

func TestAllocateWithinRegion(t *testing.T) {
	m, _, err := NewManager(session(t), Config{InitialSize: 4096, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.Lock()
	id1, off1, err := m.Allocate(64, 8)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	id2, off2, err := m.Allocate(64, 8)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	m.Unlock()

	if id1 != id2 {
		t.Errorf("both allocations should land in the same region: %d != %d", id1, id2)
	}
	if off2 != off1+64 {
		t.Errorf("second offset = %d, want %d", off2, off1+64)
	}
}

func TestAllocateGrowsRegion(t *testing.T) {
	m, firstID, err := NewManager(session(t), Config{InitialSize: 1 << 20, MaxSize: 64 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.Lock()
	regionID, _, err := m.Allocate(2<<20, 8) // exceeds the 1 MiB initial region
	m.Unlock()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if regionID == firstID {
		t.Errorf("allocation larger than the initial region should land in a new region")
	}

	stats := m.Stats()
	if stats.RegionCount != 2 {
		t.Errorf("RegionCount = %d, want 2", stats.RegionCount)
	}
}

func TestAllocateExceedsMaxSize(t *testing.T) {
	m, _, err := NewManager(session(t), Config{InitialSize: 4096, MaxSize: 8192})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.Lock()
	_, _, err = m.Allocate(8192, 8)
	m.Unlock()
	if err == nil {
		t.Errorf("allocation exceeding max region size should fail")
	}
}

func TestAllocateAlignment(t *testing.T) {
	m, _, err := NewManager(session(t), Config{InitialSize: 4096, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.Lock()
	_, off, err := m.Allocate(3, 8)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	_, off2, err := m.Allocate(8, 8)
	m.Unlock()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if off2%8 != 0 {
		t.Errorf("second allocation offset %d is not 8-byte aligned", off2)
	}
	_ = off
}

func TestOpenManagerFollowsChain(t *testing.T) {
	name := session(t)
	m, firstID, err := NewManager(name, Config{InitialSize: 4096, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	m.Lock()
	_, _, err = m.Allocate(8192, 8) // forces a second region
	m.Unlock()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	opened, err := OpenManager(name, firstID)
	if err != nil {
		t.Fatalf("OpenManager: %v", err)
	}
	defer opened.Close()

	if stats := opened.Stats(); stats.RegionCount != 2 {
		t.Errorf("OpenManager saw %d regions, want 2", stats.RegionCount)
	}

	m.Close()
}

func TestLocate(t *testing.T) {
	m, regionID, err := NewManager(session(t), Config{InitialSize: 4096, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.Lock()
	id, off, err := m.Allocate(64, 8)
	m.Unlock()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if id != regionID {
		t.Fatalf("expected allocation in first region")
	}

	mem := m.RegionMem(id)
	ptr := unsafe.Pointer(&mem[wire.RegionDescriptorSize+int(off)])
	gotID, gotOff, ok := m.Locate(ptr)
	if !ok {
		t.Fatalf("Locate did not find the pointer")
	}
	if gotID != id || gotOff != off {
		t.Errorf("Locate = (%d, %d), want (%d, %d)", gotID, gotOff, id, off)
	}
}
