package event

import "github.com/worldcore/server/internal/core/ecs"

// Domain event types. Emitted during a tick, readable starting next tick
// (Bus is double-buffered — see bus.go).

// PlayerDied fires once per canonical kill of a player entity.
type PlayerDied struct {
	EntityID ecs.EntityID
	RoomID   string
}

// NpcDied fires when an NPC is killed. The same kill can be announced more
// than once (by the combat pipeline or a DOT tick, and again by
// death.Pipeline.HandleNpcDeath), so subscribers must tolerate repeats, as
// the idempotent HandleNpcDeath does.
type NpcDied struct {
	EntityID ecs.EntityID
	ProtoID  int32
	RoomID   string
	KillerID ecs.EntityID // zero if no credited killer
}

// SanctuaryPressure fires when a sanctuary room accumulates enough hostile
// pressure within the configured window to be eligible for a siege alarm.
type SanctuaryPressure struct {
	RoomID string
	Amount int
}

// SiegeAlarm fires when a sanctuary's pressure threshold trips, notifying
// guards within the alarm range.
type SiegeAlarm struct {
	RoomID string
}

// CorpseDespawned fires when a scheduled corpse timer elapses and the
// corpse entity is removed from the registry.
type CorpseDespawned struct {
	EntityID ecs.EntityID
	RoomID   string
}

// EntityRespawned fires when SpawnController or DeathPipeline brings a
// shared NPC or resource node back to life at its spawn point.
type EntityRespawned struct {
	EntityID ecs.EntityID
	RoomID   string
}
