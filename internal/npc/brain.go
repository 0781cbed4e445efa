package npc

import (
	"time"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
)

// DecisionKind enumerates the actions brain.decide may return (spec.md
// §4.4.8). A scripted (Lua) brain and the built-in Go fallback both produce
// the same shape, so decision dispatch never needs to know which one fired.
type DecisionKind string

const (
	DecisionAttackEntity DecisionKind = "attack_entity"
	DecisionSay          DecisionKind = "say"
	DecisionFlee         DecisionKind = "flee"
	DecisionMoveToRoom   DecisionKind = "move_to_room"
	DecisionIdle         DecisionKind = "idle"
)

// Decision is the brain's verdict for one NPC, one tick.
type Decision struct {
	Kind DecisionKind

	TargetEntityID ecs.EntityID // attack_entity
	Utterance      string       // say
	DestRoomID     string       // move_to_room
}

// Brain produces a Decision from a Perception snapshot. The scripted brain
// (gopher-lua, internal/scripting) and the built-in Go fallback both
// implement this interface; decision dispatch is identical either way.
type Brain interface {
	Decide(p Perception) Decision
}

// FallbackBrain is the pure-Go decision brain used for guard-behavior NPCs
// (spec.md says guard AI is Go-only, never scripted) and as the safety net
// when a monster prototype carries no script or its script errors.
type FallbackBrain struct {
	Now func() time.Time

	// Target resolves the current threat/forced target for the NPC, or
	// ok=false if none.
	Target func(self ecs.EntityID) (ecs.EntityID, bool)

	// FleeThreshold is the HP fraction (0..1) below which a coward-behavior
	// NPC flees instead of fighting back.
	FleeThreshold float64
}

// Decide implements Brain. Order of checks: dead/idle guard is never called
// (manager skips dead NPCs before invoking Decide) -> coward below threshold
// flees -> have a target, attack it -> guard with no target idles at post ->
// aggressive/coward with no target idles.
func (b FallbackBrain) Decide(p Perception) Decision {
	if p.Behavior == data.BehaviorCoward && p.MaxHP > 0 {
		frac := float64(p.HP) / float64(p.MaxHP)
		threshold := b.FleeThreshold
		if threshold <= 0 {
			threshold = 0.25
		}
		if frac <= threshold {
			return Decision{Kind: DecisionFlee}
		}
	}

	if b.Target != nil {
		if targetID, ok := b.Target(p.SelfEntityID); ok {
			return Decision{Kind: DecisionAttackEntity, TargetEntityID: targetID}
		}
	}

	return Decision{Kind: DecisionIdle}
}

// ScriptedBrain adapts a Lua-backed monster AI script (internal/scripting)
// to the Brain interface. DecideFunc is supplied by the scripting engine;
// on any script error the manager falls back to FallbackBrain rather than
// stalling the NPC for the tick.
type ScriptedBrain struct {
	DecideFunc func(p Perception) (Decision, error)
	Fallback   Brain
}

func (b ScriptedBrain) Decide(p Perception) Decision {
	if b.DecideFunc != nil {
		if d, err := b.DecideFunc(p); err == nil {
			return d
		}
	}
	if b.Fallback != nil {
		return b.Fallback.Decide(p)
	}
	return Decision{Kind: DecisionIdle}
}
