package npc

import (
	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

// Perception is the read-only snapshot the decision dispatcher (brain.decide)
// is handed each tick (spec.md §4.4.1). It is rebuilt fresh every tick from
// the entity registry, the prototype catalog, and the region-flag cache —
// never cached across ticks.
type Perception struct {
	SelfEntityID ecs.EntityID
	RoomID       string

	HP, MaxHP int32
	Alive     bool

	Behavior data.Behavior
	Guard    data.GuardProfile
	Tags     []string

	RoomIsSafeHub bool // sanctuary flag for the NPC's current room's region

	// Hostile is the computed aggression gate: behavior in
	// {aggressive, guard, coward} AND NOT (tagged non_hostile or resource*),
	// further vetoed by retaliate_only aggro mode unless already engaged.
	Hostile bool

	RoomEntities []*world.Entity
}

// HasTag reports whether the snapshot's tag list contains tag.
func (p *Perception) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// aggressionBehaviors are the prototype behaviors eligible to ever be
// hostile; passive NPCs never fight back or scan.
func behaviorCanBeHostile(b data.Behavior) bool {
	switch b {
	case data.BehaviorAggressive, data.BehaviorGuard, data.BehaviorCoward:
		return true
	default:
		return false
	}
}

// BuildPerception assembles a fresh Perception for one NPC. alreadyEngaged
// tells the retaliate_only veto whether this NPC already has a live threat
// table (engaged NPCs keep fighting even under retaliate_only; only the
// proactive-scan gate is vetoed).
func BuildPerception(
	self ecs.EntityID,
	entity *world.Entity,
	proto *data.NpcProto,
	regionFlags data.RegionFlags,
	roomEntities []*world.Entity,
	alreadyEngaged bool,
) Perception {
	p := Perception{
		SelfEntityID:  self,
		RoomID:        entity.RoomID,
		HP:            entity.HP,
		MaxHP:         entity.MaxHP,
		Alive:         entity.Alive,
		RoomIsSafeHub: regionFlags.Sanctuary,
		RoomEntities:  roomEntities,
	}
	if proto == nil {
		return p
	}
	p.Behavior = proto.Behavior
	p.Guard = proto.Guard
	p.Tags = proto.Tags

	nonHostileTag := proto.HasTag("non_hostile") || proto.IsResourcePrototype()
	hostile := behaviorCanBeHostile(proto.Behavior) && !nonHostileTag
	if hostile && regionFlags.AggroMode == data.AggroRetaliateOnly && !alreadyEngaged {
		hostile = false
	}
	p.Hostile = hostile
	return p
}
