package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TrainProfile configures pursuit ("Train System") parameters at region
// granularity (spec.md §4.4.5). Loaded from data/region_pursuit.yaml as a
// first-class catalog rather than hardcoded constants, per SPEC_FULL §4.
type TrainProfile struct {
	Name               string        `yaml:"name"`
	Step               float64       `yaml:"step"`
	SoftLeash          float64       `yaml:"soft_leash"`
	HardLeash          float64       `yaml:"hard_leash"`
	PursueTimeout      time.Duration `yaml:"pursue_timeout"`
	RoomsEnabled       bool          `yaml:"rooms_enabled"`
	MaxRoomsFromSpawn  int32         `yaml:"max_rooms_from_spawn"`
	AssistEnabled      bool          `yaml:"assist_enabled"`
	AssistSnapAllies   bool          `yaml:"assist_snap_allies"`
	AssistRangeTiles   int32         `yaml:"assist_range_tiles"`
	ReturnMode         string        `yaml:"return_mode"` // "snap" | "drift"
}

// Clamp clamps a profile down to the "short" leash variant spec.md
// §4.4.5 names explicitly (softLeash<=12, hardLeash<=20, timeout<=6s,
// maxRoomsFromSpawn<=1, assist disabled).
func (p TrainProfile) Clamp() TrainProfile {
	if p.Name != "short" {
		return p
	}
	if p.SoftLeash > 12 {
		p.SoftLeash = 12
	}
	if p.HardLeash > 20 {
		p.HardLeash = 20
	}
	if p.PursueTimeout > 6*time.Second {
		p.PursueTimeout = 6 * time.Second
	}
	if p.MaxRoomsFromSpawn > 1 {
		p.MaxRoomsFromSpawn = 1
	}
	p.AssistEnabled = false
	return p
}

// AggroMode controls whether hostile NPCs in a region may proactively scan
// for targets.
type AggroMode string

const (
	AggroNormal        AggroMode = "normal"
	AggroRetaliateOnly AggroMode = "retaliate_only"
)

// RegionFlags is the set of region-level policy flags this core reads
// through the region-flag cache (spec.md §5): sanctuary, aggro-mode veto,
// and the train profile name.
type RegionFlags struct {
	RegionID      string    `yaml:"region_id"`
	Sanctuary     bool      `yaml:"sanctuary"`
	AggroMode     AggroMode `yaml:"aggro_mode"`
	TrainProfile  string    `yaml:"train_profile"`
}

// RegionCatalog is the loaded set of TrainProfile and RegionFlags entries.
type RegionCatalog struct {
	Profiles map[string]TrainProfile
	Flags    map[string]RegionFlags
}

func (c *RegionCatalog) Profile(name string) TrainProfile {
	p, ok := c.Profiles[name]
	if !ok {
		return c.Profiles["default"]
	}
	return p.Clamp()
}

func (c *RegionCatalog) ProfileForRegion(regionID string) TrainProfile {
	if f, ok := c.Flags[regionID]; ok && f.TrainProfile != "" {
		return c.Profile(f.TrainProfile)
	}
	return c.Profile("default")
}

type regionCatalogYAML struct {
	Profiles []TrainProfile `yaml:"profiles"`
	Regions  []RegionFlags  `yaml:"regions"`
}

// LoadRegionCatalog reads region_pursuit.yaml: pursuit profiles and
// per-region flags (sanctuary, aggro mode).
func LoadRegionCatalog(path string) (*RegionCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region catalog %s: %w", path, err)
	}
	var doc regionCatalogYAML
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse region catalog %s: %w", path, err)
	}
	profiles := make(map[string]TrainProfile, len(doc.Profiles))
	for _, p := range doc.Profiles {
		profiles[p.Name] = p
	}
	if _, ok := profiles["default"]; !ok {
		return nil, fmt.Errorf("region catalog %s: missing required 'default' profile", path)
	}
	flags := make(map[string]RegionFlags, len(doc.Regions))
	for _, f := range doc.Regions {
		flags[f.RegionID] = f
	}
	return &RegionCatalog{Profiles: profiles, Flags: flags}, nil
}
