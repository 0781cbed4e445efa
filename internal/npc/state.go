// Package npc implements the AI and threat engine: perception, threat
// accounting, taunt, pack assist, pursuit ("Train System"), sanctuary and
// guard escalation, crowd-control interaction, and decision dispatch
// (spec.md §4.4 — the densest component).
package npc

import (
	"time"

	"github.com/worldcore/server/internal/core/ecs"
)

// RuntimeState is the NPC runtime record, keyed by entity id and owned
// exclusively by NPCManager (spec.md §3).
type RuntimeState struct {
	EntityID ecs.EntityID

	ProtoID    int32 // stable identity for quest/crime credit
	TemplateID int32 // resolved variant used for stats
	VariantID  string

	RoomID      string
	SpawnRoomID string // immutable

	HP, MaxHP int32
	Alive     bool

	Fleeing bool

	LastAggroAt          time.Time
	LastAttackerEntityID ecs.EntityID

	TrainReturning bool
	TrainMovedAt   time.Time // anti-double-move stamp per tick

	LastAttackCommandAt time.Time // fallback-attack cooldown (800ms)

	// DriftHopCount bounds optional drift-reaggro hops.
	DriftHopCount int

	// RewardsGranted marks handleNpcDeath idempotency (spec.md §4.7).
	RewardsGranted bool
	// LifecycleScheduled marks scheduleNpcCorpseAndRespawn idempotency.
	LifecycleScheduled bool
}
