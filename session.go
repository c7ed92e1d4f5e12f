package memglass

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robaho/memglass/internal/region"
	"github.com/robaho/memglass/internal/registry"
	"github.com/robaho/memglass/internal/shmio"
	"github.com/robaho/memglass/internal/wire"
)

// Session is a producer's side of a memglass session: the header region
// it owns, the region chain it allocates from, and the local type/object
// registries backing it. It is the Go analogue of
// original_source/include/memglass/memglass.hpp's Context — a single
// owned handle representing all process-wide producer state.
type Session struct {
	name   string
	config Config

	header *shmio.Region
	hv     *wire.HeaderView

	types *registry.Registry
	dir   *registry.Directory
	rm    *region.Manager
}

var (
	currentMu      sync.Mutex
	currentSession *Session
)

// Init creates a new session named name with the given configuration
// (zero-valued fields take their documented defaults), makes it the
// process-wide current session, and returns it. Only one session may be
// current at a time; call Shutdown before Init-ing another.
func Init(name string, cfg Config) (*Session, error) {
	currentMu.Lock()
	defer currentMu.Unlock()

	if currentSession != nil {
		return nil, fmt.Errorf("memglass: a session is already active; call Shutdown first")
	}

	cfg = cfg.withDefaults()
	layout := wire.ComputeLayout(cfg.MaxTypes, cfg.MaxFields, cfg.MaxObjects)

	headerName := wire.HeaderShmName(name)
	hdr, err := shmio.Create(headerName, int(layout.TotalSize))
	if err != nil {
		return nil, fmt.Errorf("memglass: init %q: %w", name, err)
	}

	hv := wire.NewHeaderView(hdr.Mem())
	hv.SetMagic(wire.HeaderMagic)
	hv.SetVersion(wire.ProtoVersion)
	hv.SetHeaderSize(wire.HeaderSize)
	hv.SetTypeRegistryOffset(layout.TypeRegistryOffset)
	hv.SetTypeRegistryCapacity(cfg.MaxTypes)
	hv.SetFieldEntriesOffset(layout.FieldEntriesOffset)
	hv.SetFieldEntriesCapacity(cfg.MaxFields)
	hv.SetObjectDirOffset(layout.ObjectDirOffset)
	hv.SetObjectDirCapacity(cfg.MaxObjects)
	hv.SetSessionName(name)
	hv.SetProducerPID(uint64(os.Getpid()))
	hv.SetStartTimestamp(uint64(time.Now().UnixNano()))

	rm, firstID, err := region.NewManager(name, region.Config{
		InitialSize: cfg.InitialRegionSize,
		MaxSize:     cfg.MaxRegionSize,
	})
	if err != nil {
		hdr.Close()
		return nil, fmt.Errorf("memglass: init %q: %w", name, err)
	}
	hv.SetFirstRegionID(firstID)

	s := &Session{
		name:   name,
		config: cfg,
		header: hdr,
		hv:     hv,
		types:  registry.New(cfg.MaxTypes, cfg.MaxFields),
		rm:     rm,
	}
	s.dir = registry.NewDirectory(hv, rm)

	currentSession = s
	return s, nil
}

// Shutdown unlinks the header region and every data region, then clears
// the process-wide current session. Already-mapped observers continue to
// function until they themselves unmap.
func Shutdown() error {
	currentMu.Lock()
	defer currentMu.Unlock()

	if currentSession == nil {
		return nil
	}
	s := currentSession
	currentSession = nil

	var firstErr error
	if err := s.rm.Close(); err != nil {
		firstErr = err
	}
	if err := s.header.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// current returns the process-wide session, failing if none is active.
func current() (*Session, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	if currentSession == nil {
		return nil, fmt.Errorf("memglass: no active session; call Init first")
	}
	return currentSession, nil
}

// Name returns the session's name.
func (s *Session) Name() string { return s.name }

// Stats returns a point-in-time snapshot of the region chain's capacity
// usage.
func (s *Session) Stats() region.Stats { return s.rm.Stats() }
