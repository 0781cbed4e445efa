package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/worldcore/server/internal/data"
)

func defaultProfile() data.TrainProfile {
	return data.TrainProfile{
		Name:              "default",
		SoftLeash:         5,
		HardLeash:         10,
		PursueTimeout:     30 * time.Second,
		RoomsEnabled:      true,
		MaxRoomsFromSpawn: 15,
		ReturnMode:        "snap",
	}
}

func TestEvaluateTrainPursuit_ContinuesWithinLeash(t *testing.T) {
	verdict := EvaluateTrainPursuit(TrainQuery{
		Now:         time.Unix(1000, 0),
		Profile:     defaultProfile(),
		SpawnRoomID: "s1:0,0",
		CurrentRoom: "s1:3,0",
		TargetRoom:  "s1:4,0",
		LastAggroAt: time.Unix(999, 0),
	})
	assert.Equal(t, TrainContinuePursuit, verdict)
}

func TestEvaluateTrainPursuit_HardLeashForcesReturn(t *testing.T) {
	verdict := EvaluateTrainPursuit(TrainQuery{
		Now:         time.Unix(1000, 0),
		Profile:     defaultProfile(),
		SpawnRoomID: "s1:0,0",
		CurrentRoom: "s1:11,0",
		TargetRoom:  "s1:12,0",
		LastAggroAt: time.Unix(999, 0),
	})
	assert.Equal(t, TrainReturnSnap, verdict)
}

func TestEvaluateTrainPursuit_PursueTimeoutForcesReturn(t *testing.T) {
	profile := defaultProfile()
	verdict := EvaluateTrainPursuit(TrainQuery{
		Now:         time.Unix(1000, 0),
		Profile:     profile,
		SpawnRoomID: "s1:0,0",
		CurrentRoom: "s1:2,0",
		TargetRoom:  "s1:3,0",
		LastAggroAt: time.Unix(900, 0), // 100s ago > 30s timeout
	})
	assert.Equal(t, TrainReturnSnap, verdict)
}

func TestEvaluateTrainPursuit_DriftReturnMode(t *testing.T) {
	profile := defaultProfile()
	profile.ReturnMode = "drift"
	verdict := EvaluateTrainPursuit(TrainQuery{
		Now:         time.Unix(1000, 0),
		Profile:     profile,
		SpawnRoomID: "s1:0,0",
		CurrentRoom: "s1:11,0",
		TargetRoom:  "s1:12,0",
		LastAggroAt: time.Unix(999, 0),
	})
	assert.Equal(t, TrainReturnDrift, verdict)
}

func TestEvaluateTrainPursuit_ShortProfileClampsHardLeash(t *testing.T) {
	short := data.TrainProfile{
		Name: "short", SoftLeash: 12, HardLeash: 999, PursueTimeout: 999 * time.Second,
		RoomsEnabled: true, MaxRoomsFromSpawn: 999, AssistEnabled: true, ReturnMode: "snap",
	}.Clamp()
	assert.Equal(t, float64(20), short.HardLeash)
	assert.False(t, short.AssistEnabled)
}

func TestEvaluateTrainPursuit_NonWorldRoomHoldsGround(t *testing.T) {
	verdict := EvaluateTrainPursuit(TrainQuery{
		Now:         time.Unix(1000, 0),
		Profile:     defaultProfile(),
		SpawnRoomID: "lobby",
		CurrentRoom: "lobby",
		TargetRoom:  "lobby",
	})
	assert.Equal(t, TrainHoldGround, verdict)
}

func TestNextDriftRoom_StepsTowardSpawnThenArrives(t *testing.T) {
	next, arrived := NextDriftRoom("s1:3,0", "s1:0,0", 0)
	assert.False(t, arrived)
	assert.Equal(t, "s1:2,0", next)

	next, arrived = NextDriftRoom("s1:1,0", "s1:0,0", 0)
	assert.True(t, arrived)
	assert.Equal(t, "s1:0,0", next)
}

func TestAssistSnapTarget_RespectsRangeAndFlags(t *testing.T) {
	profile := defaultProfile()
	profile.AssistEnabled = true
	profile.AssistSnapAllies = true
	profile.AssistRangeTiles = 3

	assert.True(t, AssistSnapTarget(profile, "s1:0,0", "s1:2,0"))
	assert.False(t, AssistSnapTarget(profile, "s1:0,0", "s1:10,0"))

	profile.AssistSnapAllies = false
	assert.False(t, AssistSnapTarget(profile, "s1:0,0", "s1:2,0"))
}
