// Command memglass-inspect creates a short-lived demo session, registers a
// type, creates a few objects, then attaches an observer and dumps what it
// sees. Useful for sanity-checking a build against a live session by hand.
package main

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/robaho/memglass"
	"github.com/robaho/memglass/observer"
)

type quote struct {
	Bid int32
	Ask int32
}

func main() {
	session, err := memglass.Init("inspect-demo", memglass.DefaultConfig())
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer memglass.Shutdown()

	err = memglass.RegisterType[quote]("Quote", []memglass.FieldSpec{
		{Name: "bid", Offset: unsafe.Offsetof(quote{}.Bid), Size: unsafe.Sizeof(quote{}.Bid), Primitive: memglass.TypeInt32},
		{Name: "ask", Offset: unsafe.Offsetof(quote{}.Ask), Size: unsafe.Sizeof(quote{}.Ask), Primitive: memglass.TypeInt32},
	})
	if err != nil {
		log.Fatalf("register type: %v", err)
	}

	for i, label := range []string{"object_1", "object_2", "object_3"} {
		_, _, err := memglass.CreateWithValue(label, quote{Bid: int32(i + 1), Ask: int32(i + 1)})
		if err != nil {
			log.Fatalf("create %s: %v", label, err)
		}
	}

	fmt.Printf("=== Session ===\n")
	fmt.Printf("name: %s\n", session.Name())
	stats := session.Stats()
	fmt.Printf("regions: %d, used: %d/%d bytes\n", stats.RegionCount, stats.UsedBytes, stats.TotalBytes)

	obs := observer.New()
	if err := obs.Connect("inspect-demo"); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer obs.Disconnect()

	objs, err := obs.Objects()
	if err != nil {
		log.Fatalf("objects: %v", err)
	}

	fmt.Printf("\n=== Objects ===\n")
	for _, info := range objs {
		view, ok := obs.Get(info)
		if !ok {
			fmt.Printf("%s: could not resolve view\n", info.Label)
			continue
		}
		bid, _ := view.Field("bid").Int32()
		ask, _ := view.Field("ask").Int32()
		fmt.Printf("%s (%s): bid=%d ask=%d\n", info.Label, info.TypeName, bid, ask)
	}
}
