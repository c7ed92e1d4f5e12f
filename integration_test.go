package memglass_test

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/robaho/memglass"
	"github.com/robaho/memglass/internal/primitives"
	"github.com/robaho/memglass/observer"
)

var sessionSeq int64

func newSessionName(t *testing.T) string {
	t.Helper()
	n := atomic.AddInt64(&sessionSeq, 1)
	return fmt.Sprintf("test_%s_%d", t.Name(), n)
}

func mustInit(t *testing.T, cfg memglass.Config) *memglass.Session {
	t.Helper()
	s, err := memglass.Init(newSessionName(t), cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { memglass.Shutdown() })
	return s
}

type quote struct {
	X int32
	Y int32
	V float64
}

func registerQuote(t *testing.T) {
	t.Helper()
	err := memglass.RegisterType[quote]("Quote", []memglass.FieldSpec{
		{Name: "x", Offset: unsafe.Offsetof(quote{}.X), Size: unsafe.Sizeof(quote{}.X), Primitive: memglass.TypeInt32},
		{Name: "y", Offset: unsafe.Offsetof(quote{}.Y), Size: unsafe.Sizeof(quote{}.Y), Primitive: memglass.TypeInt32},
		{Name: "v", Offset: unsafe.Offsetof(quote{}.V), Size: unsafe.Sizeof(quote{}.V), Primitive: memglass.TypeFloat64},
	})
	if err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
}

// Scenario 1: basic round-trip.
func TestBasicRoundTrip(t *testing.T) {
	s := mustInit(t, memglass.DefaultConfig())
	registerQuote(t)

	if _, _, err := memglass.CreateWithValue("o", quote{X: 42, Y: 100, V: 3.14159}); err != nil {
		t.Fatalf("CreateWithValue: %v", err)
	}

	obs := observer.New()
	if err := obs.Connect(s.Name()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer obs.Disconnect()

	info, ok := obs.Find("o")
	if !ok {
		t.Fatalf("Find(\"o\") did not find the object")
	}
	view, ok := obs.Get(info)
	if !ok {
		t.Fatalf("Get failed to resolve a view")
	}

	x, ok := view.Field("x").Int32()
	if !ok || x != 42 {
		t.Errorf("x = %d, ok=%v, want 42", x, ok)
	}
	y, ok := view.Field("y").Int32()
	if !ok || y != 100 {
		t.Errorf("y = %d, ok=%v, want 100", y, ok)
	}
	v, ok := view.Field("v").Float64()
	if !ok || math.Abs(v-3.14159) >= 1e-5 {
		t.Errorf("v = %v, ok=%v, want ~3.14159", v, ok)
	}
}

// Scenario 2: multiple objects.
func TestMultipleObjects(t *testing.T) {
	s := mustInit(t, memglass.DefaultConfig())
	registerQuote(t)

	labels := []string{"object_1", "object_2", "object_3"}
	for i, label := range labels {
		if _, _, err := memglass.CreateWithValue(label, quote{X: int32(i + 1)}); err != nil {
			t.Fatalf("CreateWithValue(%s): %v", label, err)
		}
	}

	obs := observer.New()
	if err := obs.Connect(s.Name()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer obs.Disconnect()

	objs, err := obs.Objects()
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if len(objs) != 3 {
		t.Fatalf("Objects returned %d entries, want 3", len(objs))
	}

	for i, info := range objs {
		view, ok := obs.Get(info)
		if !ok {
			t.Fatalf("Get(%s) failed", info.Label)
		}
		x, ok := view.Field("x").Int32()
		if !ok || x != int32(i+1) {
			t.Errorf("%s: x = %d, want %d", info.Label, x, i+1)
		}
	}
}

// Scenario 3: destruction.
func TestDestructionRemovesFromEnumeration(t *testing.T) {
	s := mustInit(t, memglass.DefaultConfig())
	registerQuote(t)

	_, h, err := memglass.CreateWithValue("temp", quote{X: 1})
	if err != nil {
		t.Fatalf("CreateWithValue: %v", err)
	}

	obs := observer.New()
	if err := obs.Connect(s.Name()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer obs.Disconnect()

	if _, ok := obs.Find("temp"); !ok {
		t.Fatalf("expected to find \"temp\" before destruction")
	}

	if err := memglass.Destroy(h); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := obs.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if _, ok := obs.Find("temp"); ok {
		t.Errorf("\"temp\" should not be found after destruction")
	}
}

// Scenario 4: arrays.
type arrayHolder struct {
	Values [4]int32
	Name   [32]byte
}

func TestArrays(t *testing.T) {
	s := mustInit(t, memglass.DefaultConfig())

	err := memglass.RegisterType[arrayHolder]("ArrayHolder", []memglass.FieldSpec{
		{Name: "values", Offset: unsafe.Offsetof(arrayHolder{}.Values), Size: unsafe.Sizeof(arrayHolder{}.Values), Primitive: memglass.TypeInt32, ArraySize: 4},
		{Name: "name", Offset: unsafe.Offsetof(arrayHolder{}.Name), Size: unsafe.Sizeof(arrayHolder{}.Name), Primitive: memglass.TypeChar, ArraySize: 32},
	})
	if err != nil {
		t.Fatalf("RegisterType: %v", err)
	}

	obj, _, err := memglass.Create[arrayHolder]("arr")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	obj.Values = [4]int32{10, 20, 30, 40}
	copy(obj.Name[:], "TestArray")

	obs := observer.New()
	if err := obs.Connect(s.Name()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer obs.Disconnect()

	info, ok := obs.Find("arr")
	if !ok {
		t.Fatalf("Find did not find \"arr\"")
	}
	view, ok := obs.Get(info)
	if !ok {
		t.Fatalf("Get failed")
	}

	values := view.Field("values")
	for i, want := range []int32{10, 20, 30, 40} {
		got, ok := values.Index(i).Int32()
		if !ok || got != want {
			t.Errorf("values[%d] = %d, ok=%v, want %d", i, got, ok, want)
		}
	}
	if _, ok := values.Index(4).Int32(); ok {
		t.Errorf("out-of-range index should return an invalid proxy")
	}

	name, ok := view.Field("name").String()
	if !ok || name != "TestArray" {
		t.Errorf("name = %q, ok=%v, want \"TestArray\"", name, ok)
	}
}

// Scenario 5: growing regions.
func TestGrowingRegions(t *testing.T) {
	s := mustInit(t, memglass.Config{InitialRegionSize: 1 << 20, MaxRegionSize: 64 << 20})

	type blob struct {
		Bytes [2 << 20]byte // 2 MiB, forces a region grow in one allocation
	}
	if err := memglass.RegisterType[blob]("Blob", nil); err != nil {
		t.Fatalf("RegisterType: %v", err)
	}
	if _, _, err := memglass.Create[blob]("big"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if stats := s.Stats(); stats.RegionCount != 2 {
		t.Errorf("producer RegionCount = %d, want 2", stats.RegionCount)
	}

	obs := observer.New()
	if err := obs.Connect(s.Name()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer obs.Disconnect()

	if err := obs.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := obs.Find("big"); !ok {
		t.Fatalf("observer did not find \"big\" after connecting fresh")
	}
}

// Scenario 6: seqlock under contention, exercised through the full
// observer stack rather than the primitives package directly.
type ticker struct {
	Value primitives.Guarded[int64]
}

func TestSeqlockUnderContentionThroughObserver(t *testing.T) {
	s := mustInit(t, memglass.DefaultConfig())

	err := memglass.RegisterType[ticker]("Ticker", []memglass.FieldSpec{
		{
			Name:      "value",
			Offset:    unsafe.Offsetof(ticker{}.Value),
			Size:      unsafe.Sizeof(ticker{}.Value),
			Primitive: memglass.TypeInt64,
			Atomicity: memglass.AtomicitySeqlock,
		},
	})
	if err != nil {
		t.Fatalf("RegisterType: %v", err)
	}

	obj, _, err := memglass.Create[ticker]("t")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	obs := observer.New()
	if err := obs.Connect(s.Name()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer obs.Disconnect()

	info, ok := obs.Find("t")
	if !ok {
		t.Fatalf("Find did not find \"t\"")
	}
	view, ok := obs.Get(info)
	if !ok {
		t.Fatalf("Get failed")
	}

	const iterations = 50000
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		for i := int64(0); i < iterations; i++ {
			obj.Value.Write(i)
		}
		return nil
	})

	var sawValue bool
	g.Go(func() error {
		field := view.Field("value")
		for ctx.Err() == nil {
			if v, ok := field.TryInt64(); ok {
				sawValue = true
				if v < 0 || v >= iterations {
					return fmt.Errorf("read out-of-range value %d", v)
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Fatalf("contention test failed: %v", err)
	}
	if !sawValue {
		t.Errorf("reader never observed a clean value")
	}
}
