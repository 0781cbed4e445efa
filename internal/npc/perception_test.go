package npc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

func TestBuildPerception_AggressiveIsHostile(t *testing.T) {
	e := &world.Entity{RoomID: "s1:0,0", HP: 10, MaxHP: 10, Alive: true}
	proto := &data.NpcProto{Behavior: data.BehaviorAggressive}
	p := BuildPerception(ecs.EntityID(1), e, proto, data.RegionFlags{}, nil, false)
	assert.True(t, p.Hostile)
}

func TestBuildPerception_NonHostileTagOverridesBehavior(t *testing.T) {
	e := &world.Entity{RoomID: "s1:0,0", HP: 10, MaxHP: 10, Alive: true}
	proto := &data.NpcProto{Behavior: data.BehaviorAggressive, Tags: []string{"non_hostile"}}
	p := BuildPerception(ecs.EntityID(1), e, proto, data.RegionFlags{}, nil, false)
	assert.False(t, p.Hostile)
}

func TestBuildPerception_PassiveNeverHostile(t *testing.T) {
	e := &world.Entity{RoomID: "s1:0,0", HP: 10, MaxHP: 10, Alive: true}
	proto := &data.NpcProto{Behavior: data.BehaviorPassive}
	p := BuildPerception(ecs.EntityID(1), e, proto, data.RegionFlags{}, nil, false)
	assert.False(t, p.Hostile)
}

func TestBuildPerception_RetaliateOnlyVetoesUnengaged(t *testing.T) {
	e := &world.Entity{RoomID: "s1:0,0", HP: 10, MaxHP: 10, Alive: true}
	proto := &data.NpcProto{Behavior: data.BehaviorAggressive}
	flags := data.RegionFlags{AggroMode: data.AggroRetaliateOnly}

	unengaged := BuildPerception(ecs.EntityID(1), e, proto, flags, nil, false)
	assert.False(t, unengaged.Hostile)

	engaged := BuildPerception(ecs.EntityID(1), e, proto, flags, nil, true)
	assert.True(t, engaged.Hostile)
}

func TestBuildPerception_ResourcePrototypeNeverHostile(t *testing.T) {
	e := &world.Entity{RoomID: "s1:0,0", HP: 10, MaxHP: 10, Alive: true}
	proto := &data.NpcProto{Behavior: data.BehaviorAggressive, Tags: []string{"resource"}}
	p := BuildPerception(ecs.EntityID(1), e, proto, data.RegionFlags{}, nil, false)
	assert.False(t, p.Hostile)
}
