package npc

import (
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

// GuardSortieQuery is the input to EvaluateGuardSortie (spec.md §4.4.7): a
// guard-behavior NPC may leave its post further than its normal leash when a
// siege alarm is active in its region.
type GuardSortieQuery struct {
	Guard           data.GuardProfile
	SiegeAlarmActive bool
	PostRoomID      string
	CandidateRoomID string
}

// EvaluateGuardSortie reports whether a guard is permitted to chase into
// CandidateRoomID. Outside a siege, sortie range is Guard.RangeTiles from its
// post; during an active siege alarm, SiegeBonusTile is added on top — but
// only if the prototype's Sortie flag is set at all.
func EvaluateGuardSortie(q GuardSortieQuery) bool {
	if !q.Guard.Sortie {
		return false
	}
	post, postOK := world.ParseRoomID(q.PostRoomID)
	cand, candOK := world.ParseRoomID(q.CandidateRoomID)
	if !postOK || !candOK {
		return false
	}
	limit := q.Guard.RangeTiles
	if q.SiegeAlarmActive {
		limit += q.Guard.SiegeBonusTile
	}
	return world.ChebyshevRoomDistance(post, cand) <= limit
}

// SanctuaryRecaptureQuery is the input to EvaluateSanctuaryRecapture: a
// sanctuary room with a guard whose prototype has RecaptureSweep set
// periodically sweeps for hostile-flagged occupants that must be evicted or
// engaged despite the room's otherwise-blanket sanctuary protection.
type SanctuaryRecaptureQuery struct {
	Guard         data.GuardProfile
	RoomIsSanctuary bool
	RoomEntities  []*world.Entity
	// IsHostileOccupant reports whether an entity counts as a recapture
	// target (e.g. a player carrying a siege-breach flag, or a hostile NPC
	// that wandered in through a breach).
	IsHostileOccupant func(*world.Entity) bool
}

// EvaluateSanctuaryRecapture returns the occupants a recapture-sweeping
// guard should engage this tick: only when the guard's prototype enables
// recapture sweep and the room is a sanctuary, scoped to entities
// IsHostileOccupant flags.
func EvaluateSanctuaryRecapture(q SanctuaryRecaptureQuery) []*world.Entity {
	if !q.Guard.RecaptureSweep || !q.RoomIsSanctuary || q.IsHostileOccupant == nil {
		return nil
	}
	var targets []*world.Entity
	for _, e := range q.RoomEntities {
		if q.IsHostileOccupant(e) {
			targets = append(targets, e)
		}
	}
	return targets
}
