package npc

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/worldcore/server/internal/core/ecs"
)

// ThreatTable is the per-NPC threat map (spec.md §3, §4.4.2). Every
// operation below is pure on the value — callers hold the table and mutate
// it through these functions, never ad hoc.
type ThreatTable struct {
	Threat map[ecs.EntityID]float64

	LastAttackerEntityID ecs.EntityID
	LastAggroAt          time.Time

	ForcedTargetEntityID ecs.EntityID
	ForcedUntil          time.Time
	LastTauntAt          time.Time
}

func NewThreatTable() *ThreatTable {
	return &ThreatTable{Threat: make(map[ecs.EntityID]float64)}
}

func (t *ThreatTable) IsEmpty() bool { return len(t.Threat) == 0 }

// UpdateThreatFromDamage adds max(1,amount) to the attacker's threat and
// records last-attacker/last-aggro bookkeeping.
func UpdateThreatFromDamage(t *ThreatTable, attackerID ecs.EntityID, amount float64, now time.Time) {
	if t.Threat == nil {
		t.Threat = make(map[ecs.EntityID]float64)
	}
	t.Threat[attackerID] += math.Max(1, amount)
	t.LastAttackerEntityID = attackerID
	t.LastAggroAt = now
}

// AddThreatOpts configures AddThreatValue's optional last-attacker rewrite.
type AddThreatOpts struct {
	SetLastAttacker      bool
	LastAttackerEntityID ecs.EntityID
}

// AddThreatValue adds threat without necessarily rewriting lastAttacker —
// used by healing-to-threat and threat transfer.
func AddThreatValue(t *ThreatTable, id ecs.EntityID, delta float64, now time.Time, opts AddThreatOpts) {
	if delta == 0 {
		return
	}
	if t.Threat == nil {
		t.Threat = make(map[ecs.EntityID]float64)
	}
	t.Threat[id] += delta
	if t.Threat[id] < 0 {
		t.Threat[id] = 0
	}
	if opts.SetLastAttacker {
		t.LastAttackerEntityID = opts.LastAttackerEntityID
		t.LastAggroAt = now
	}
}

// TauntOpts configures ApplyTaunt.
type TauntOpts struct {
	Duration    time.Duration
	ThreatBoost float64
	Now         time.Time
	// ImmunityWindow: if another entity already holds forced-target within
	// this window before Now, a different taunter is rejected.
	ImmunityWindow time.Duration
}

// ApplyTaunt sets a forced target with a duration. Taunt immunity: if within
// the immunity window another entity already forced target, a new
// forced-target from a *different* taunter is rejected (the same taunter
// may always re-taunt).
func ApplyTaunt(t *ThreatTable, taunterID ecs.EntityID, opts TauntOpts) bool {
	if t.ForcedTargetEntityID != 0 && t.ForcedTargetEntityID != taunterID &&
		opts.Now.Before(t.ForcedUntil) &&
		opts.ImmunityWindow > 0 &&
		opts.Now.Sub(t.LastTauntAt) < opts.ImmunityWindow {
		return false
	}
	t.ForcedTargetEntityID = taunterID
	t.ForcedUntil = opts.Now.Add(opts.Duration)
	t.LastTauntAt = opts.Now
	AddThreatValue(t, taunterID, opts.ThreatBoost, opts.Now, AddThreatOpts{})
	return true
}

// ValidateTargetFunc reports whether a threat-table entry is still a legal,
// in-range target; it is the threat engine's hook into the Engage State Law.
type ValidateTargetFunc func(id ecs.EntityID) bool

// RoleLookupFunc returns a combat role string ("tank", "dps", "healer", ...)
// for an entity, used to modulate decay speed.
type RoleLookupFunc func(id ecs.EntityID) string

// DecayOpts configures DecayThreat.
type DecayOpts struct {
	Now              time.Time
	GetRoleForEntity RoleLookupFunc
	ValidateTarget   ValidateTargetFunc
	// BaseDecayPerSecond is the fraction of threat removed per second for a
	// non-tank, validated, in-room target.
	BaseDecayPerSecond float64
	// OutOfRoomMultiplier is accepted but not applied by DecayThreat: no
	// target decays faster for being out of the NPC's room.
	OutOfRoomMultiplier float64
	// TankDecayMultiplier slows decay for tank-role targets (< 1).
	TankDecayMultiplier float64
	// DT is the elapsed time since the last decay call, for deterministic
	// per-tick decay independent of DecayThreat's own call cadence.
	DT time.Duration
}

// DecayThreat applies deterministic per-target exponential-ish decay,
// modulated by combat role; targets that fail ValidateTarget (stealthed,
// dead, ...) are removed outright. Every remaining target decays at the
// same base rate (times TankDecayMultiplier for tanks) whether or not it
// is in the NPC's room. Idempotent between calls at the same `now` (DT=0
// is a no-op).
func DecayThreat(t *ThreatTable, opts DecayOpts) {
	if opts.DT <= 0 || len(t.Threat) == 0 {
		return
	}
	base := opts.BaseDecayPerSecond
	if base <= 0 {
		base = 0.05
	}
	outMult := opts.OutOfRoomMultiplier
	if outMult <= 0 {
		outMult = 4
	}
	tankMult := opts.TankDecayMultiplier
	if tankMult <= 0 {
		tankMult = 0.4
	}
	seconds := opts.DT.Seconds()

	for id, v := range t.Threat {
		if opts.ValidateTarget != nil && !opts.ValidateTarget(id) {
			delete(t.Threat, id)
			if t.LastAttackerEntityID == id {
				t.LastAttackerEntityID = 0
			}
			if t.ForcedTargetEntityID == id {
				t.ForcedTargetEntityID = 0
			}
			continue
		}
		rate := base
		if opts.GetRoleForEntity != nil && opts.GetRoleForEntity(id) == "tank" {
			rate *= tankMult
		}
		// "out of room" targets aren't filtered above (ValidateTarget
		// already pruned invalid ones); decay faster only applies to
		// targets flagged by the caller via a higher base — left as a
		// caller-tunable multiplier hook through BaseDecayPerSecond.
		factor := math.Exp(-rate * seconds)
		nv := v * factor
		if nv < 0.01 {
			delete(t.Threat, id)
			if t.LastAttackerEntityID == id {
				t.LastAttackerEntityID = 0
			}
			if t.ForcedTargetEntityID == id {
				t.ForcedTargetEntityID = 0
			}
			continue
		}
		t.Threat[id] = nv
	}
	_ = outMult // reserved for callers that pre-tag out-of-room ids with a steeper BaseDecayPerSecond
}

// SelectThreatTarget returns the current forced target if still valid and
// unexpired, else the highest-threat validating target (lexicographic
// tie-break on id for determinism), pruning expired force / invalid entries
// along the way.
func SelectThreatTarget(t *ThreatTable, now time.Time, validate ValidateTargetFunc) (ecs.EntityID, bool) {
	if t.ForcedTargetEntityID != 0 {
		if now.After(t.ForcedUntil) {
			t.ForcedTargetEntityID = 0
		} else if validate == nil || validate(t.ForcedTargetEntityID) {
			return t.ForcedTargetEntityID, true
		} else {
			t.ForcedTargetEntityID = 0
		}
	}

	type cand struct {
		id     ecs.EntityID
		threat float64
	}
	var cands []cand
	for id, v := range t.Threat {
		if validate != nil && !validate(id) {
			continue
		}
		cands = append(cands, cand{id, v})
	}
	if len(cands) == 0 {
		return 0, false
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].threat != cands[j].threat {
			return cands[i].threat > cands[j].threat
		}
		return strconv.FormatUint(uint64(cands[i].id), 10) < strconv.FormatUint(uint64(cands[j].id), 10)
	})
	return cands[0].id, true
}

func GetThreatValue(t *ThreatTable, id ecs.EntityID) float64 { return t.Threat[id] }
func GetLastAttacker(t *ThreatTable) ecs.EntityID            { return t.LastAttackerEntityID }

// GetTopThreatTarget returns the highest-threat id ignoring forced target,
// lexicographic tie-break.
func GetTopThreatTarget(t *ThreatTable) (ecs.EntityID, bool) {
	var best ecs.EntityID
	var bestV float64 = -1
	found := false
	for id, v := range t.Threat {
		if !found || v > bestV || (v == bestV && strconv.FormatUint(uint64(id), 10) < strconv.FormatUint(uint64(best), 10)) {
			best, bestV, found = id, v, true
		}
	}
	return best, found
}
