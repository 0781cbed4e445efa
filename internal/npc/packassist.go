package npc

import (
	"time"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

// PackAssistQuery is the input to EvaluatePackAssist: one NPC took damage
// from attackerID, and we need to know which of its same-group roommates
// should be pulled onto the attacker's threat (spec.md §4.4.4).
type PackAssistQuery struct {
	Now        time.Time
	VictimRoom string
	GroupID    string
	AttackerID ecs.EntityID
	// RoomEntities are every entity sharing VictimRoom; non-NPC and dead
	// entries are skipped by EvaluatePackAssist itself.
	RoomEntities []*world.Entity
	ProtoOf      func(entityID ecs.EntityID) *data.NpcProto
	// AssistThreatSeed is the initial threat value granted to each assisting
	// ally against attackerID.
	AssistThreatSeed float64
}

// PackAssistResult names the roommates pulled into the fight.
type PackAssistResult struct {
	Assisted []ecs.EntityID
}

// EvaluatePackAssist finds same-room, same-GroupID NPCs whose prototype has
// CanCallHelp set, and are not already engaged on a forced target of their
// own, and returns them as assist candidates. It performs no mutation —
// callers apply AddThreatValue to each assisting ally's threat table and
// queue the actual engage.
func EvaluatePackAssist(q PackAssistQuery, threatOf func(ecs.EntityID) *ThreatTable) PackAssistResult {
	var res PackAssistResult
	if q.GroupID == "" {
		return res
	}
	for _, e := range q.RoomEntities {
		if e.Kind != world.KindNPC || !e.Alive {
			continue
		}
		if e.ID == q.AttackerID {
			continue
		}
		proto := q.ProtoOf(e.ID)
		if proto == nil || !proto.CanCallHelp || proto.GroupID != q.GroupID {
			continue
		}
		if t := threatOf(e.ID); t != nil && t.ForcedTargetEntityID != 0 && t.ForcedUntil.After(q.Now) {
			continue // already taunted onto someone else, don't steal it
		}
		res.Assisted = append(res.Assisted, e.ID)
	}
	return res
}
