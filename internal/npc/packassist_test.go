package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

func TestEvaluatePackAssist_PullsSameGroupCallHelpAllies(t *testing.T) {
	ally := &world.Entity{ID: ecs.EntityID(2), Kind: world.KindNPC, Alive: true, RoomID: "s1:0,0"}
	passerby := &world.Entity{ID: ecs.EntityID(3), Kind: world.KindNPC, Alive: true, RoomID: "s1:0,0"}
	attacker := &world.Entity{ID: ecs.EntityID(99), Kind: world.KindPlayer, Alive: true, RoomID: "s1:0,0"}

	protos := map[ecs.EntityID]*data.NpcProto{
		ecs.EntityID(2): {GroupID: "wolfpack", CanCallHelp: true},
		ecs.EntityID(3): {GroupID: "other", CanCallHelp: true},
	}

	result := EvaluatePackAssist(PackAssistQuery{
		Now:          time.Unix(1000, 0),
		VictimRoom:   "s1:0,0",
		GroupID:      "wolfpack",
		AttackerID:   attacker.ID,
		RoomEntities: []*world.Entity{ally, passerby, attacker},
		ProtoOf:      func(id ecs.EntityID) *data.NpcProto { return protos[id] },
	}, func(ecs.EntityID) *ThreatTable { return nil })

	assert.Equal(t, []ecs.EntityID{ecs.EntityID(2)}, result.Assisted)
}

func TestEvaluatePackAssist_SkipsAllyAlreadyTauntedElsewhere(t *testing.T) {
	ally := &world.Entity{ID: ecs.EntityID(2), Kind: world.KindNPC, Alive: true, RoomID: "s1:0,0"}
	proto := &data.NpcProto{GroupID: "wolfpack", CanCallHelp: true}
	now := time.Unix(1000, 0)

	tauntedTable := NewThreatTable()
	ApplyTaunt(tauntedTable, ecs.EntityID(77), TauntOpts{Now: now, Duration: 10 * time.Second})

	result := EvaluatePackAssist(PackAssistQuery{
		Now:          now,
		GroupID:      "wolfpack",
		AttackerID:   ecs.EntityID(99),
		RoomEntities: []*world.Entity{ally},
		ProtoOf:      func(ecs.EntityID) *data.NpcProto { return proto },
	}, func(ecs.EntityID) *ThreatTable { return tauntedTable })

	assert.Empty(t, result.Assisted)
}

func TestEvaluatePackAssist_NoGroupIDNeverAssists(t *testing.T) {
	result := EvaluatePackAssist(PackAssistQuery{GroupID: ""}, func(ecs.EntityID) *ThreatTable { return nil })
	assert.Empty(t, result.Assisted)
}
