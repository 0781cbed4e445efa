package combat

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	coresys "github.com/worldcore/server/internal/core/system"
	"github.com/worldcore/server/internal/world"
)

// ApplyStatusEffect attaches a new status effect instance to target,
// resolving its StackingPolicy against any existing instance sharing its
// StackGroupKey (spec.md §4.5.4). Returns false if a deny_if_present policy
// rejected the application.
func ApplyStatusEffect(target *world.Entity, next world.StatusEffectInstance) bool {
	key := next.StackGroupKey()
	for i := range target.StatusEffects {
		existing := &target.StatusEffects[i]
		if existing.StackGroupKey() != key {
			continue
		}
		switch next.Stacking {
		case world.StackDenyIfPresent:
			return false
		case world.StackRefresh:
			existing.ExpiresAt = next.ExpiresAt
			return true
		case world.StackOverwrite:
			*existing = next
			return true
		case world.StackAdd, world.StackLegacyAdd:
			existing.Stacks++
			if existing.MaxStacks > 0 && existing.Stacks > existing.MaxStacks {
				existing.Stacks = existing.MaxStacks
			}
			existing.ExpiresAt = next.ExpiresAt
			return true
		case world.StackVersionedByApplier:
			// Distinct VersionKey already makes this a different group key;
			// reaching here means same applier + same version re-applying —
			// treat like refresh.
			existing.ExpiresAt = next.ExpiresAt
			return true
		}
	}
	if (next.Stacking == world.StackAdd || next.Stacking == world.StackLegacyAdd) && next.Stacks < 1 {
		next.Stacks = 1
	}
	target.StatusEffects = append(target.StatusEffects, next)
	return true
}

// ExpireStatusEffects drops every instance whose ExpiresAt has passed.
func ExpireStatusEffects(target *world.Entity, now time.Time) {
	out := target.StatusEffects[:0]
	for _, e := range target.StatusEffects {
		if !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt) {
			continue
		}
		out = append(out, e)
	}
	target.StatusEffects = out
}

// HotDotSystem ticks every live entity's HOT/DOT descriptors once per
// configured interval, healing/damaging and emitting death events as
// needed. Registered at PhasePostUpdate, after AI/combat decision dispatch
// and before output packet assembly.
type HotDotSystem struct {
	Registry *world.EntityRegistry
	Threat   ThreatSink
	Bus      *event.Bus
	Log      *zap.Logger

	lastTick map[uintKey]time.Time
	now      func() time.Time
}

type uintKey struct {
	entity uint64
	effect string
}

func NewHotDotSystem(registry *world.EntityRegistry, threat ThreatSink, bus *event.Bus, log *zap.Logger, nowFn func() time.Time) *HotDotSystem {
	return &HotDotSystem{
		Registry: registry,
		Threat:   threat,
		Bus:      bus,
		Log:      log,
		lastTick: make(map[uintKey]time.Time),
		now:      nowFn,
	}
}

func (s *HotDotSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *HotDotSystem) Update(_ time.Duration) {
	now := s.now()
	s.Registry.Each(func(e *world.Entity) {
		if !e.Alive {
			return
		}
		ExpireStatusEffects(e, now)
		for i := range e.StatusEffects {
			eff := &e.StatusEffects[i]
			key := uintKey{entity: uint64(e.ID), effect: eff.ID}
			if eff.HOT != nil && eff.HOT.TickInterval > 0 {
				if now.Sub(s.lastTick[key]) >= eff.HOT.TickInterval {
					s.lastTick[key] = now
					e.HP += eff.HOT.PerTickHeal
					if e.HP > e.MaxHP {
						e.HP = e.MaxHP
					}
				}
			}
			if eff.DOT != nil && eff.DOT.TickInterval > 0 {
				if now.Sub(s.lastTick[key]) >= eff.DOT.TickInterval {
					s.lastTick[key] = now
					applierID := effectApplierEntityID(eff)
					e.HP -= eff.DOT.PerTickDamage
					if e.HP <= 0 {
						e.HP = 0
						if e.Alive {
							e.Alive = false
							s.emitDeath(e, applierID)
						}
					} else if s.Threat != nil && e.Kind == world.KindNPC {
						s.Threat.RecordDamage(e.ID, applierID, float64(eff.DOT.PerTickDamage), now)
					}
				}
			}
		}
	})
}

func (s *HotDotSystem) emitDeath(e *world.Entity, killerID ecs.EntityID) {
	if s.Bus == nil {
		return
	}
	switch e.Kind {
	case world.KindPlayer:
		event.Emit(s.Bus, event.PlayerDied{EntityID: e.ID, RoomID: e.RoomID})
	case world.KindNPC:
		event.Emit(s.Bus, event.NpcDied{EntityID: e.ID, ProtoID: e.ProtoID, RoomID: e.RoomID, KillerID: killerID})
	}
}

// effectApplierEntityID parses a status effect's AppliedByID back into an
// EntityID for threat/kill-credit purposes. Non-entity appliers
// (environment sources) parse to 0, which reads as "no credited killer".
func effectApplierEntityID(eff *world.StatusEffectInstance) ecs.EntityID {
	v, err := strconv.ParseUint(eff.AppliedByID, 10, 64)
	if err != nil {
		return 0
	}
	return ecs.EntityID(v)
}
