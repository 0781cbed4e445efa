// Package death implements the kill-to-cleanup lifecycle for both players
// and NPCs: death bookkeeping, proportional XP/loot reward dispatch, and the
// corpse-delete / respawn-eligible timer pair. Grounded on the teacher's
// internal/system/death.go (KillPlayer) and the reward-distribution half of
// internal/system/combat.go's handleNpcDeath (spec.md §4.7).
package death

import (
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	coresys "github.com/worldcore/server/internal/core/system"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/simclock"
	"github.com/worldcore/server/internal/world"
)

// RewardSink is the fire-and-forget collaborator that actually grants XP and
// delivers loot (internal/bgwork-backed; spec.md §9 background worker pool).
// The death pipeline never blocks a tick on reward delivery.
type RewardSink interface {
	GrantXP(playerEntityID ecs.EntityID, amount int32)
	GrantLoot(playerEntityID ecs.EntityID, protoID int32, loot []data.LootEntry)
}

// SpawnNotifier is implemented by spawn.Controller: once a corpse finally
// despawns, its spawn point is eligible for reconciliation again.
type SpawnNotifier interface {
	NotifyDespawned(spawnPointID int32)
}

type corpseSchedule struct {
	deleteAt       time.Time
	respawnAt      time.Time
	deleted        bool
	spawnPointID   int32
	roomID         string
	killerEntityID ecs.EntityID
}

// Pipeline is the sole driver of entity death-to-cleanup transitions.
type Pipeline struct {
	Registry   *world.EntityRegistry
	NpcManager *npc.Manager
	Protos     *data.NpcProtoTable
	Rewards    RewardSink
	SpawnCtl   SpawnNotifier
	Bus        *event.Bus
	Clock      simclock.Clock
	Log        *zap.Logger

	// CorpseLifetime is how long a dead NPC's entity record lingers before
	// removal (teacher's NPC_DELETION_TIME, spec.md §4.7).
	CorpseLifetime time.Duration
	// DefaultRespawnDelay is used when a prototype carries none.
	DefaultRespawnDelay time.Duration
	// ExpRate scales granted XP (server-wide rate, spec.md §2 config).
	ExpRate float64

	schedules map[ecs.EntityID]*corpseSchedule
}

func NewPipeline(registry *world.EntityRegistry, npcManager *npc.Manager, protos *data.NpcProtoTable, rewards RewardSink, spawnCtl SpawnNotifier, bus *event.Bus, clock simclock.Clock, log *zap.Logger) *Pipeline {
	return &Pipeline{
		Registry:            registry,
		NpcManager:          npcManager,
		Protos:              protos,
		Rewards:             rewards,
		SpawnCtl:            spawnCtl,
		Bus:                 bus,
		Clock:               clock,
		Log:                 log,
		CorpseLifetime:      10 * time.Second,
		DefaultRespawnDelay: 60 * time.Second,
		ExpRate:             1.0,
		schedules:           make(map[ecs.EntityID]*corpseSchedule),
	}
}

// KillPlayer marks a player entity dead, clears its non-persistent status
// effects, and emits PlayerDied. Idempotent — a second call on an
// already-dead entity is a no-op.
func (p *Pipeline) KillPlayer(playerEntityID ecs.EntityID) {
	e, ok := p.Registry.Get(playerEntityID)
	if !ok || !e.Alive {
		return
	}
	e.Alive = false
	e.HP = 0
	e.StatusEffects = e.StatusEffects[:0]

	if p.Bus != nil {
		event.Emit(p.Bus, event.PlayerDied{EntityID: playerEntityID, RoomID: e.RoomID})
	}
	if p.Log != nil {
		p.Log.Info("player died", zap.Uint64("entity", uint64(playerEntityID)), zap.String("room", e.RoomID))
	}
}

// HandleNpcDeath runs once per canonical NPC kill: distributes XP/loot by
// threat share (falling back to sole credit for the killer when there's no
// threat table or only one contributor), then schedules the corpse-delete
// and respawn-eligible timers. Idempotent via RuntimeState.RewardsGranted —
// a combat pipeline race that calls this twice for the same kill is a no-op
// the second time.
func (p *Pipeline) HandleNpcDeath(npcEntityID, killerEntityID ecs.EntityID) {
	rt, ok := p.NpcManager.RuntimeOf(npcEntityID)
	if !ok || rt.RewardsGranted {
		return
	}
	rt.RewardsGranted = true
	rt.Alive = false

	e, ok := p.Registry.Get(npcEntityID)
	if !ok {
		return
	}
	e.Alive = false

	proto := p.Protos.Get(rt.ProtoID)
	if proto != nil && !isServiceExempt(proto) {
		p.grantRewards(npcEntityID, killerEntityID, proto)
	}

	if p.Bus != nil {
		event.Emit(p.Bus, event.NpcDied{EntityID: npcEntityID, ProtoID: rt.ProtoID, RoomID: rt.RoomID, KillerID: killerEntityID})
	}

	p.scheduleNpcCorpseAndRespawn(npcEntityID, rt, e)
}

// isServiceExempt mirrors the teacher's "guards grant no reward" rule
// (L1GuardInstance has no reward logic) generalized to any service NPC.
func isServiceExempt(proto *data.NpcProto) bool {
	return proto.Behavior == data.BehaviorGuard && proto.XPReward == 0
}

func (p *Pipeline) grantRewards(npcEntityID, killerEntityID ecs.EntityID, proto *data.NpcProto) {
	if p.Rewards == nil {
		return
	}
	baseXP := int32(float64(proto.XPReward) * p.ExpRate)
	if baseXP <= 0 {
		return
	}

	threat, hasThreat := p.NpcManager.ThreatOf(npcEntityID)
	total := 0.0
	if hasThreat {
		for _, v := range threat.Threat {
			total += v
		}
	}

	if !hasThreat || total <= 0 || len(threat.Threat) <= 1 {
		p.Rewards.GrantXP(killerEntityID, baseXP)
		p.Rewards.GrantLoot(killerEntityID, proto.ID, proto.Loot)
		return
	}

	for contributorID, share := range threat.Threat {
		portion := int32(float64(baseXP) * (share / total))
		if portion > 0 {
			p.Rewards.GrantXP(contributorID, portion)
		}
	}
	p.Rewards.GrantLoot(killerEntityID, proto.ID, proto.Loot)
}

// scheduleNpcCorpseAndRespawn is idempotent via RuntimeState.LifecycleScheduled.
func (p *Pipeline) scheduleNpcCorpseAndRespawn(npcEntityID ecs.EntityID, rt *npc.RuntimeState, e *world.Entity) {
	if rt.LifecycleScheduled {
		return
	}
	rt.LifecycleScheduled = true

	now := p.Clock.Now()
	respawnDelay := p.DefaultRespawnDelay

	p.schedules[npcEntityID] = &corpseSchedule{
		deleteAt:     now.Add(p.CorpseLifetime),
		respawnAt:    now.Add(p.CorpseLifetime).Add(respawnDelay),
		spawnPointID: e.SpawnPointID,
		roomID:       e.RoomID,
	}
}

// Phase implements system.System — this runs in PhaseCleanup, after combat
// and AI have had their chance to read the still-present corpse this tick.
func (p *Pipeline) Phase() coresys.Phase { return coresys.PhaseCleanup }

// Update advances every pending corpse's delete/respawn timers.
func (p *Pipeline) Update(_ time.Duration) {
	now := p.Clock.Now()
	for entityID, sched := range p.schedules {
		if !sched.deleted && !now.Before(sched.deleteAt) {
			sched.deleted = true
			p.Registry.RemoveEntity(entityID)
			p.NpcManager.Unregister(entityID)
			if p.Bus != nil {
				event.Emit(p.Bus, event.CorpseDespawned{EntityID: entityID, RoomID: sched.roomID})
			}
		}
		if sched.deleted && !now.Before(sched.respawnAt) {
			if p.SpawnCtl != nil {
				p.SpawnCtl.NotifyDespawned(sched.spawnPointID)
			}
			delete(p.schedules, entityID)
		}
	}
}
