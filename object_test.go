package memglass_test

import (
	"testing"

	"github.com/robaho/memglass"
)

type counter struct {
	N int64
}

func TestCreateArrayRoundTrip(t *testing.T) {
	mustInit(t, memglass.DefaultConfig())
	if err := memglass.RegisterType[counter]("Counter", nil); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}

	arr, _, err := memglass.CreateArray[counter]("counters", 3)
	if err != nil {
		t.Fatalf("CreateArray: %v", err)
	}
	if len(arr) != 3 {
		t.Fatalf("len(arr) = %d, want 3", len(arr))
	}
	for i := range arr {
		arr[i].N = int64(i * 10)
	}
	for i, want := range []int64{0, 10, 20} {
		if arr[i].N != want {
			t.Errorf("arr[%d].N = %d, want %d", i, arr[i].N, want)
		}
	}
}

func TestCreateArrayRejectsNonPositiveCount(t *testing.T) {
	mustInit(t, memglass.DefaultConfig())
	if err := memglass.RegisterType[counter]("Counter", nil); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if _, _, err := memglass.CreateArray[counter]("bad", 0); err == nil {
		t.Errorf("CreateArray with n=0 should fail")
	}
}

func TestCreateUnregisteredTypeFails(t *testing.T) {
	mustInit(t, memglass.DefaultConfig())
	type unregistered struct{ X int32 }
	if _, _, err := memglass.Create[unregistered]("o"); err == nil {
		t.Errorf("Create should fail for a type that was never registered")
	}
}

func TestDestroyUnknownHandleFails(t *testing.T) {
	mustInit(t, memglass.DefaultConfig())
	if err := memglass.Destroy(memglass.Handle{}); err == nil {
		t.Errorf("Destroy should fail for a handle from an unrelated/empty slot")
	}
}
