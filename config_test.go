package memglass

import "testing"

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	cfg := Config{MaxTypes: 10}.withDefaults()

	d := DefaultConfig()
	if cfg.MaxTypes != 10 {
		t.Errorf("MaxTypes = %d, want 10 (explicit value should survive)", cfg.MaxTypes)
	}
	if cfg.InitialRegionSize != d.InitialRegionSize {
		t.Errorf("InitialRegionSize = %d, want default %d", cfg.InitialRegionSize, d.InitialRegionSize)
	}
	if cfg.MaxRegionSize != d.MaxRegionSize {
		t.Errorf("MaxRegionSize = %d, want default %d", cfg.MaxRegionSize, d.MaxRegionSize)
	}
	if cfg.MaxFields != d.MaxFields {
		t.Errorf("MaxFields = %d, want default %d", cfg.MaxFields, d.MaxFields)
	}
	if cfg.MaxObjects != d.MaxObjects {
		t.Errorf("MaxObjects = %d, want default %d", cfg.MaxObjects, d.MaxObjects)
	}
}

func TestWithDefaultsLeavesFullyPopulatedConfigAlone(t *testing.T) {
	cfg := Config{
		InitialRegionSize: 1,
		MaxRegionSize:     2,
		MaxTypes:          3,
		MaxFields:         4,
		MaxObjects:        5,
	}
	got := cfg.withDefaults()
	if got != cfg {
		t.Errorf("withDefaults altered a fully populated Config: got %+v, want %+v", got, cfg)
	}
}
