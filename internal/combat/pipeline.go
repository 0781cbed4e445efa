// Package combat implements the damage pipeline: melee/ranged resolution,
// absorb shields, resist mitigation, status-effect application and ticking,
// and crowd-control interruption on damage (spec.md §4.5). Grounded on the
// teacher's internal/system/combat.go processMeleeAttack/processRangedAttack.
package combat

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/simclock"
	"github.com/worldcore/server/internal/world"
)

// ThreatSink is the subset of npc.Manager the pipeline needs to fold damage
// and healing into NPC threat bookkeeping.
type ThreatSink interface {
	RecordDamage(npcEntityID, attackerID ecs.EntityID, amount float64, now time.Time)
	RecordHealThreat(roomID string, healerID, healedID ecs.EntityID, amount float64, now time.Time)
	SyncVitals(entityID ecs.EntityID, hp, maxHP int32, alive bool)
}

// Resolver computes a raw hit/miss/damage result for an attack. Production
// wiring is internal/scripting's Lua CalcMeleeAttack/CalcRangedAttack;
// tests can substitute a deterministic stub.
type Resolver interface {
	ResolveMelee(ctx AttackContext) AttackOutcome
	ResolveRanged(ctx AttackContext) AttackOutcome
}

// AttackContext mirrors the teacher's scripting.CombatContext shape,
// generalized past the Lineage STR/DEX/AC field set to school-tagged damage.
type AttackContext struct {
	AttackerLevel int
	AttackerPower int
	AttackerHitMod int
	AttackerDmgMod int

	TargetLevel int
	TargetAC    int
	TargetMR    int

	School string // "physical", "fire", "cold", ... empty = physical
}

// AttackOutcome is the raw result from a Resolver, before absorb/resist.
type AttackOutcome struct {
	IsHit  bool
	Damage int32
}

// Pipeline is the combat resolution engine. It is the sole writer of
// Entity.HP/Alive and StatusEffects.
type Pipeline struct {
	Registry *world.EntityRegistry
	Threat   ThreatSink
	Resolver Resolver
	Clock    simclock.Clock
	Bus      *event.Bus
	Log      *zap.Logger

	// ResistOf resolves a target's per-school resist percentages. Optional —
	// nil means no resist mitigation (absorb shields still apply).
	ResistOf func(*world.Entity) ResistProfile
}

// DamageResult is returned to callers (handlers, NPC manager dispatch) after
// a hit lands.
type DamageResult struct {
	Hit           bool
	RawDamage     int32
	AbsorbedTotal int32
	Applied       int32
	Killed        bool
}

// ApplyNpcMeleeDamage lands an NPC's melee swing on a player entity. This is
// the method npc.CombatPort requires — npc.Manager's decision dispatch calls
// it directly, with no import of this package from npc.
func (p *Pipeline) ApplyNpcMeleeDamage(targetEntityID, npcEntityID ecs.EntityID, amount int32, now time.Time) npc.PlayerDamageResult {
	target, ok := p.Registry.Get(targetEntityID)
	if !ok || !target.Alive {
		return npc.PlayerDamageResult{}
	}
	result := p.applyRawDamage(target, amount, "physical")
	if result.Killed && p.Bus != nil {
		event.Emit(p.Bus, event.PlayerDied{EntityID: targetEntityID, RoomID: target.RoomID})
	}
	return npc.PlayerDamageResult{Killed: result.Killed, DamageApplied: result.Applied}
}

// DamageToNpc lands a player (or pet) attack on an NPC entity: resolves the
// hit via Resolver, applies absorb/resist, writes HP, folds threat, and
// interrupts sleep/charm-like CC on any nonzero hit.
func (p *Pipeline) DamageToNpc(attackerID, npcEntityID ecs.EntityID, ctx AttackContext, melee bool) DamageResult {
	target, ok := p.Registry.Get(npcEntityID)
	if !ok || !target.Alive || target.Invulnerable || target.IsServiceNPC {
		return DamageResult{}
	}
	var outcome AttackOutcome
	if p.Resolver != nil {
		if melee {
			outcome = p.Resolver.ResolveMelee(ctx)
		} else {
			outcome = p.Resolver.ResolveRanged(ctx)
		}
	}
	if !outcome.IsHit || outcome.Damage <= 0 {
		return DamageResult{Hit: false}
	}

	result := p.applyRawDamage(target, outcome.Damage, ctx.School)
	result.Hit = true

	// CC (mez/sleep) breaks on any landed hit, including a fully
	// shield-absorbed one with zero residual damage (spec.md §4.5.1).
	hitDamage := result.AbsorbedTotal + result.Applied
	if target.Alive && hitDamage > 0 {
		breakCrowdControlOnDamage(target)
	}
	if result.Applied > 0 && p.Threat != nil {
		p.Threat.RecordDamage(npcEntityID, attackerID, float64(result.Applied), now(p))
		p.Threat.SyncVitals(npcEntityID, target.HP, target.MaxHP, target.Alive)
	}

	if result.Killed && p.Bus != nil {
		event.Emit(p.Bus, event.NpcDied{EntityID: npcEntityID, ProtoID: target.ProtoID, RoomID: target.RoomID, KillerID: attackerID})
	}
	return result
}

// applyRawDamage subtracts a shield's worth of incoming damage (by priority,
// then by school match) before touching HP, and writes Alive=false at 0 HP.
func (p *Pipeline) applyRawDamage(target *world.Entity, amount int32, school string) DamageResult {
	remaining := amount
	absorbedTotal := int32(0)

	buckets := absorbBucketsBySchool(target.StatusEffects, school)
	for _, b := range buckets {
		if remaining <= 0 {
			break
		}
		if b.Remaining <= 0 {
			continue
		}
		take := remaining
		if take > b.Remaining {
			take = b.Remaining
		}
		b.Remaining -= take
		remaining -= take
		absorbedTotal += take
	}
	target.StatusEffects = pruneDrainedAbsorbs(target.StatusEffects)

	if remaining < 0 {
		remaining = 0
	}
	if remaining > 0 && p.ResistOf != nil {
		remaining = ApplyResist(remaining, school, p.ResistOf(target))
	}
	target.HP -= remaining
	if target.HP <= 0 {
		target.HP = 0
		target.Alive = false
	}

	return DamageResult{
		RawDamage:     amount,
		AbsorbedTotal: absorbedTotal,
		Applied:       remaining,
		Killed:        !target.Alive,
	}
}

// absorbBucketsBySchool returns an entity's absorb shields eligible for a
// hit of the given school, sorted by descending Priority (highest-priority
// shield consumes damage first, spec.md §4.5's shield-priority rule).
func absorbBucketsBySchool(effects []world.StatusEffectInstance, school string) []*world.AbsorbBucket {
	var out []*world.AbsorbBucket
	for i := range effects {
		b := effects[i].Absorb
		if b == nil || b.Remaining <= 0 {
			continue
		}
		if len(b.Schools) > 0 {
			if _, ok := b.Schools[school]; !ok {
				continue
			}
		}
		out = append(out, b)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority > out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func pruneDrainedAbsorbs(effects []world.StatusEffectInstance) []world.StatusEffectInstance {
	out := effects[:0]
	for _, e := range effects {
		if e.Absorb != nil && e.Absorb.Remaining <= 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// breakCrowdControlOnDamage strips effects tagged "breaks_on_damage" (sleep,
// charm-likes) — grounded on the teacher's BreakNpcSleep.
func breakCrowdControlOnDamage(target *world.Entity) {
	out := target.StatusEffects[:0]
	for _, e := range target.StatusEffects {
		if e.HasTag("breaks_on_damage") {
			continue
		}
		out = append(out, e)
	}
	target.StatusEffects = out
}

// Heal applies a heal to a target entity and, when the healer and target are
// in a world room, folds healing-to-threat onto any NPC already tracking the
// healer or the healed entity (spec.md §4.4.2).
func (p *Pipeline) Heal(healerID, healedID ecs.EntityID, amount int32) int32 {
	target, ok := p.Registry.Get(healedID)
	if !ok || !target.Alive {
		return 0
	}
	before := target.HP
	target.HP += amount
	if target.HP > target.MaxHP {
		target.HP = target.MaxHP
	}
	applied := target.HP - before
	if applied > 0 && p.Threat != nil {
		p.Threat.RecordHealThreat(target.RoomID, healerID, healedID, float64(applied), now(p))
	}
	return applied
}

func now(p *Pipeline) time.Time {
	if p.Clock == nil {
		return time.Time{}
	}
	return p.Clock.Now()
}

// NewAppliedEffectID builds a deterministic-enough instance id for logging
// and stack-group bookkeeping (source id + applier + sequence).
func NewAppliedEffectID(sourceID string, applierID ecs.EntityID, seq int) string {
	return fmt.Sprintf("%s#%d#%d", sourceID, applierID, seq)
}
