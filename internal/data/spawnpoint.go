package data

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpawnAuthority conveys the provenance prefix on a spawn point's SpawnID.
type SpawnAuthority string

const (
	AuthorityAnchor SpawnAuthority = "anchor"
	AuthoritySeed   SpawnAuthority = "seed"
	AuthorityBrain  SpawnAuthority = "brain"
	AuthorityManual SpawnAuthority = "manual"
)

// SpawnPoint is one entry from the external spawn-point catalog (spec.md §3).
type SpawnPoint struct {
	ID        int32   `yaml:"id"`
	SpawnID   string  `yaml:"spawn_id"`
	ShardID   string  `yaml:"shard_id"`
	RegionID  string  `yaml:"region_id"`
	Type      string  `yaml:"type"` // npc|mob|creature|node|resource|town|graveyard|hub|...
	ProtoID   int32   `yaml:"proto_id"`
	VariantID string  `yaml:"variant_id"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Z         float64 `yaml:"z"`
}

// Authority returns the provenance conveyed by SpawnID's prefix.
func (p *SpawnPoint) Authority() SpawnAuthority {
	switch {
	case strings.HasPrefix(p.SpawnID, "anchor:"):
		return AuthorityAnchor
	case strings.HasPrefix(p.SpawnID, "seed:"):
		return AuthoritySeed
	case strings.HasPrefix(p.SpawnID, "brain:"):
		return AuthorityBrain
	default:
		return AuthorityManual
	}
}

// IsNpcLike reports whether this spawn point's type denotes a creature spawn.
func (p *SpawnPoint) IsNpcLike() bool {
	switch p.Type {
	case "npc", "mob", "creature":
		return true
	default:
		return false
	}
}

// IsNodeLike reports whether this spawn point's type denotes a resource node spawn.
func (p *SpawnPoint) IsNodeLike() bool {
	switch p.Type {
	case "node", "resource":
		return true
	default:
		return false
	}
}

// IsEligibleSettlement reports whether a settlement spawn point is a valid
// respawn-selection candidate (spec.md §4.8): its type must be town, hub,
// city, outpost, player_start or safe_hub (graveyard is not accepted) and
// its variant must not be a hostile/kos zone.
func (p *SpawnPoint) IsEligibleSettlement() bool {
	switch p.Type {
	case "town", "hub", "city", "outpost", "player_start", "safe_hub":
	default:
		return false
	}
	switch p.VariantID {
	case "kos", "hostile":
		return false
	default:
		return true
	}
}

// SpawnPointTable is the loaded catalog, indexed by (shard, region) pair and
// kept as a flat list; shard-wide scans walk the flat list.
type SpawnPointTable struct {
	all      []*SpawnPoint
	byRegion map[string][]*SpawnPoint
}

func (t *SpawnPointTable) All() []*SpawnPoint { return t.all }
func (t *SpawnPointTable) Count() int         { return len(t.all) }

func (t *SpawnPointTable) ForRegion(shardID, regionID string) []*SpawnPoint {
	return t.byRegion[shardID+"|"+regionID]
}

// LoadSpawnPointTable reads a YAML list of spawn points.
func LoadSpawnPointTable(path string) (*SpawnPointTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn point table %s: %w", path, err)
	}
	var entries []*SpawnPoint
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse spawn point table %s: %w", path, err)
	}
	byRegion := make(map[string][]*SpawnPoint, len(entries))
	for _, e := range entries {
		key := e.ShardID + "|" + e.RegionID
		byRegion[key] = append(byRegion[key], e)
	}
	return &SpawnPointTable{all: entries, byRegion: byRegion}, nil
}
