package npc

import (
	"time"

	"github.com/worldcore/server/internal/core/ecs"
)

// CombatPort is the subset of CombatPipeline the decision dispatcher needs
// to land an NPC's melee attack against a player. Declared here (the
// consumer) and satisfied structurally by combat.Pipeline — neither package
// imports the other.
type CombatPort interface {
	ApplyNpcMeleeDamage(targetEntityID ecs.EntityID, npcEntityID ecs.EntityID, amount int32, now time.Time) PlayerDamageResult
}

// PlayerDamageResult is the outcome of a melee swing against a player.
type PlayerDamageResult struct {
	Killed        bool
	DamageApplied int32
}

// MeleeDamageFunc computes an NPC's melee damage for its attack_entity
// action (spec.md §4.4.8's computeNpcMeleeDamage).
type MeleeDamageFunc func(npcEntityID ecs.EntityID) int32
