package npc

import (
	"time"

	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

// TrainVerdict is the pursuit decision for one NPC this tick (the "Train
// System", spec.md §4.4.5).
type TrainVerdict string

const (
	TrainContinuePursuit TrainVerdict = "continue_pursuit"
	TrainReturnSnap      TrainVerdict = "return_snap"
	TrainReturnDrift     TrainVerdict = "return_drift"
	TrainHoldGround      TrainVerdict = "hold_ground" // non-world room, or no profile distance signal
)

// TrainQuery is the input to EvaluateTrainPursuit.
type TrainQuery struct {
	Now         time.Time
	Profile     data.TrainProfile
	SpawnRoomID string
	CurrentRoom string
	TargetRoom  string
	LastAggroAt time.Time
	// DriftHopsSoFar bounds runaway drift-home hopping.
	DriftHopsSoFar int
}

const maxDriftHops = 64

// EvaluateTrainPursuit decides whether an engaged NPC keeps chasing its
// target, snaps home, or drifts home one room per tick. Distance is measured
// in rooms (Chebyshev) from the NPC's spawn room when both are world rooms;
// non-world rooms (bare tokens) never pursue cross-room.
func EvaluateTrainPursuit(q TrainQuery) TrainVerdict {
	spawnCoord, spawnIsWorld := world.ParseRoomID(q.SpawnRoomID)
	curCoord, curIsWorld := world.ParseRoomID(q.CurrentRoom)

	if !spawnIsWorld || !curIsWorld {
		return TrainHoldGround
	}

	distFromSpawn := world.ChebyshevRoomDistance(curCoord, spawnCoord)

	if distFromSpawn > q.Profile.HardLeash {
		return returnVerdict(q.Profile)
	}

	if q.Profile.PursueTimeout > 0 && q.Now.Sub(q.LastAggroAt) > q.Profile.PursueTimeout {
		return returnVerdict(q.Profile)
	}

	if distFromSpawn > q.Profile.SoftLeash {
		// Past the soft leash: still chasing, but one more hard-leash or
		// timeout breach next tick sends it home. No special verdict here —
		// soft leash only affects whether proactive re-aggro is allowed
		// elsewhere, not this tick's pursuit continuation.
	}

	if !q.Profile.RoomsEnabled {
		return TrainHoldGround
	}

	if q.Profile.MaxRoomsFromSpawn > 0 {
		targetCoord, targetIsWorld := world.ParseRoomID(q.TargetRoom)
		if targetIsWorld {
			targetDistFromSpawn := world.ChebyshevRoomDistance(targetCoord, spawnCoord)
			if targetDistFromSpawn > q.Profile.MaxRoomsFromSpawn {
				return returnVerdict(q.Profile)
			}
		}
	}

	return TrainContinuePursuit
}

func returnVerdict(p data.TrainProfile) TrainVerdict {
	if p.ReturnMode == "drift" {
		return TrainReturnDrift
	}
	return TrainReturnSnap
}

// NextDriftRoom computes the next room toward home for a drifting NPC,
// bounded by maxDriftHops to guarantee termination even if the NPC is
// somehow parked exactly between two equidistant cells forever.
func NextDriftRoom(currentRoom, spawnRoom string, hopsSoFar int) (nextRoom string, arrived bool) {
	if hopsSoFar >= maxDriftHops {
		return spawnRoom, true
	}
	cur, curOK := world.ParseRoomID(currentRoom)
	home, homeOK := world.ParseRoomID(spawnRoom)
	if !curOK || !homeOK || cur == home {
		return spawnRoom, true
	}
	next := world.StepRoomToward(cur, home)
	if next == home {
		return spawnRoom, true
	}
	return world.FormatRoomID(next), false
}

// AssistSnapTarget computes whether a pack-assist ally within AssistRangeTiles
// should be teleported (snapped) directly into the victim's room rather than
// walking, per the profile's AssistSnapAllies flag.
func AssistSnapTarget(p data.TrainProfile, allyRoom, victimRoom string) (snap bool) {
	if !p.AssistEnabled || !p.AssistSnapAllies {
		return false
	}
	allyCoord, allyOK := world.ParseRoomID(allyRoom)
	victimCoord, victimOK := world.ParseRoomID(victimRoom)
	if !allyOK || !victimOK {
		return false
	}
	return world.ChebyshevRoomDistance(allyCoord, victimCoord) <= p.AssistRangeTiles
}
