package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/world"
)

func TestIsValidCombatTarget_ProtectedTargetAlwaysFails(t *testing.T) {
	target := &world.Entity{Alive: true, RoomID: "s1:0,0", IsServiceNPC: true}
	result := IsValidCombatTarget(EngageQuery{Target: target, AttackerRoomID: "s1:0,0", AllowCrossRoom: true})
	assert.False(t, result.OK)
	assert.Equal(t, ReasonProtected, result.Reason)
}

func TestIsValidCombatTarget_StealthBlocksEvenCrossRoomAssist(t *testing.T) {
	target := &world.Entity{Alive: true, RoomID: "s1:1,1"}
	result := IsValidCombatTarget(EngageQuery{
		Target: target, AttackerRoomID: "s1:0,0", AllowCrossRoom: true, TargetStealthed: true,
	})
	assert.False(t, result.OK)
	assert.Equal(t, ReasonStealth, result.Reason)
}

func TestIsValidCombatTarget_DeadTargetFails(t *testing.T) {
	target := &world.Entity{Alive: false, RoomID: "s1:0,0"}
	result := IsValidCombatTarget(EngageQuery{Target: target, AttackerRoomID: "s1:0,0"})
	assert.False(t, result.OK)
	assert.Equal(t, ReasonDead, result.Reason)
}

func TestIsValidCombatTarget_OutOfRoomFailsUnlessCrossRoomAllowed(t *testing.T) {
	target := &world.Entity{Alive: true, RoomID: "s1:5,5"}
	result := IsValidCombatTarget(EngageQuery{Target: target, AttackerRoomID: "s1:0,0"})
	assert.False(t, result.OK)
	assert.Equal(t, ReasonOutOfRoom, result.Reason)

	result = IsValidCombatTarget(EngageQuery{Target: target, AttackerRoomID: "s1:0,0", AllowCrossRoom: true})
	assert.True(t, result.OK)
}

func TestIsValidCombatTarget_NilTargetFails(t *testing.T) {
	result := IsValidCombatTarget(EngageQuery{Now: time.Now(), Attacker: ecs.EntityID(1)})
	assert.False(t, result.OK)
	assert.Equal(t, ReasonDead, result.Reason)
}

func TestIsValidCombatTarget_ValidSameRoomTarget(t *testing.T) {
	target := &world.Entity{Alive: true, RoomID: "s1:0,0"}
	result := IsValidCombatTarget(EngageQuery{Target: target, AttackerRoomID: "s1:0,0"})
	assert.True(t, result.OK)
}
