package npc

import (
	"time"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/world"
)

// EngageReason enumerates why isValidCombatTarget rejected a target.
type EngageReason string

const (
	ReasonStealth    EngageReason = "stealth"
	ReasonOutOfRoom  EngageReason = "out_of_room"
	ReasonDead       EngageReason = "dead"
	ReasonProtected  EngageReason = "protected"
)

// EngageResult is the verdict from isValidCombatTarget.
type EngageResult struct {
	OK     bool
	Reason EngageReason
}

// EngageQuery is the input to IsValidCombatTarget — the single function
// that answers whether a combat action on a target is currently permitted
// (spec.md §4.4.3, the Engage State Law).
type EngageQuery struct {
	Now             time.Time
	Attacker        ecs.EntityID
	Target          *world.Entity
	AttackerRoomID  string
	AllowCrossRoom  bool
	TargetStealthed bool
}

// IsValidCombatTarget is the Engage State Law. Service-protected targets
// always fail. Stealth is always a hard block, even when cross-room assist
// is allowed. Out-of-room fails unless AllowCrossRoom is true.
func IsValidCombatTarget(q EngageQuery) EngageResult {
	if q.Target == nil {
		return EngageResult{OK: false, Reason: ReasonDead}
	}
	if q.Target.Invulnerable || q.Target.IsServiceNPC {
		return EngageResult{OK: false, Reason: ReasonProtected}
	}
	if q.TargetStealthed {
		return EngageResult{OK: false, Reason: ReasonStealth}
	}
	if !q.Target.Alive {
		return EngageResult{OK: false, Reason: ReasonDead}
	}
	if q.Target.RoomID != q.AttackerRoomID && !q.AllowCrossRoom {
		return EngageResult{OK: false, Reason: ReasonOutOfRoom}
	}
	return EngageResult{OK: true}
}
