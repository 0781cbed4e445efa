// Package data loads the static content catalogs the simulation core reads:
// NPC prototypes, spawn points, loot tables, and region pursuit profiles.
// Grounded on the teacher's internal/data YAML-table loaders
// (data.LoadNpcTable, data.LoadSpawnList).
package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Behavior enumerates NPC prototype behaviors.
type Behavior string

const (
	BehaviorAggressive Behavior = "aggressive"
	BehaviorGuard      Behavior = "guard"
	BehaviorCoward     Behavior = "coward"
	BehaviorPassive    Behavior = "passive"
)

// LootEntry is one roll in a prototype's loot table.
type LootEntry struct {
	ItemID string  `yaml:"item_id"`
	Chance float64 `yaml:"chance"` // 0..1
	MinQty int32   `yaml:"min_qty"`
	MaxQty int32   `yaml:"max_qty"`
}

// GuardProfile configures guard sortie/recapture behavior.
type GuardProfile struct {
	RecaptureSweep bool    `yaml:"recapture_sweep"`
	RangeTiles     int32   `yaml:"range_tiles"`
	Sortie         bool    `yaml:"sortie"`
	SiegeBonusTile int32   `yaml:"siege_bonus_tile"`
	CallRadius     float64 `yaml:"call_radius"`
}

// NpcProto is one NPC prototype entry (spec.md §3).
type NpcProto struct {
	ID          int32        `yaml:"id"`
	Name        string       `yaml:"name"`
	Model       string       `yaml:"model"`
	MaxHP       int32        `yaml:"max_hp"`
	Behavior    Behavior     `yaml:"behavior"`
	Tags        []string     `yaml:"tags"`
	GroupID     string       `yaml:"group_id"`
	CanCallHelp bool         `yaml:"can_call_help"`
	CanGate     bool         `yaml:"can_gate"`
	XPReward    int32        `yaml:"xp_reward"`
	Level       int32        `yaml:"level"`
	Loot        []LootEntry  `yaml:"loot"`
	Guard       GuardProfile `yaml:"guard"`

	tagSet map[string]struct{}
}

func (p *NpcProto) HasTag(tag string) bool {
	if p.tagSet == nil {
		p.tagSet = make(map[string]struct{}, len(p.Tags))
		for _, t := range p.Tags {
			p.tagSet[t] = struct{}{}
		}
	}
	_, ok := p.tagSet[tag]
	return ok
}

// IsResourcePrototype reports whether this prototype represents a resource
// node rather than a creature. Resource prototypes never carry kind npc
// (spec.md §3 invariant) and never spawn via the shared NPC pipeline
// (spec.md §4.6 hard rule).
func (p *NpcProto) IsResourcePrototype() bool {
	for _, t := range p.Tags {
		if t == "resource" {
			return true
		}
	}
	return false
}

// NpcProtoTable is the loaded catalog of NPC prototypes keyed by id.
type NpcProtoTable struct {
	byID map[int32]*NpcProto
}

func (t *NpcProtoTable) Get(id int32) *NpcProto { return t.byID[id] }
func (t *NpcProtoTable) Count() int             { return len(t.byID) }

// LoadNpcProtoTable reads a YAML list of NPC prototypes.
func LoadNpcProtoTable(path string) (*NpcProtoTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc proto table %s: %w", path, err)
	}
	var entries []*NpcProto
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse npc proto table %s: %w", path, err)
	}
	byID := make(map[int32]*NpcProto, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	return &NpcProtoTable{byID: byID}, nil
}
