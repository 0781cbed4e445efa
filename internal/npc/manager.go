package npc

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	"github.com/worldcore/server/internal/core/system"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/regionflag"
	"github.com/worldcore/server/internal/simclock"
	"github.com/worldcore/server/internal/world"
)

// siegeAlarmDuration bounds how long a sanctuary's siege alarm keeps
// widening guard sortie range after event.SiegeAlarm fires (spec.md §4.4.7).
const siegeAlarmDuration = 30 * time.Second

// BrainResolver returns the Brain to run for a given prototype (scripted
// monster AI or the Go-only guard fallback).
type BrainResolver func(proto *data.NpcProto) Brain

// Manager is the NPC AI and threat engine (spec.md §4.4): it owns RuntimeState
// and ThreatTable keyed by entity id, runs perception -> decision -> dispatch
// every tick, and is the sole writer of both component stores.
type Manager struct {
	registry      *world.EntityRegistry
	protos        *data.NpcProtoTable
	regionCatalog *data.RegionCatalog
	regionFlags   *regionflag.Cache
	clock         simclock.Clock
	log           *zap.Logger
	bus           *event.Bus
	rooms         RoomBroadcaster
	combat        CombatPort
	resolveBrain  BrainResolver

	runtime *ecs.PtrComponentStore[RuntimeState]
	threat  *ecs.PtrComponentStore[ThreatTable]

	fleeThreshold  float64
	healThreatMult float64

	siegeAlarms map[string]time.Time

	lastTick time.Time
}

// RoomBroadcaster is the subset of world.RoomTable the NPC manager needs to
// narrate flee chatter and despawns to a room's occupants. Nil is a valid
// zero value — the manager simply skips those broadcasts (tests construct
// Managers with no room table wired).
type RoomBroadcaster interface {
	Broadcast(roomID string, op string, payload any)
}

type ManagerConfig struct {
	Registry       *world.EntityRegistry
	Protos         *data.NpcProtoTable
	RegionCatalog  *data.RegionCatalog
	RegionFlags    *regionflag.Cache
	Clock          simclock.Clock
	Log            *zap.Logger
	Bus            *event.Bus
	Rooms          RoomBroadcaster
	Combat         CombatPort
	ResolveBrain   BrainResolver
	FleeThreshold  float64
	HealThreatMult float64
}

func NewManager(ecsWorld *ecs.World, cfg ManagerConfig) *Manager {
	runtime := ecs.NewPtrComponentStore[RuntimeState]()
	threat := ecs.NewPtrComponentStore[ThreatTable]()
	ecsWorld.Registry().Register(runtime)
	ecsWorld.Registry().Register(threat)

	fleeThreshold := cfg.FleeThreshold
	if fleeThreshold <= 0 {
		fleeThreshold = 0.25
	}
	healThreatMult := cfg.HealThreatMult
	if healThreatMult <= 0 {
		healThreatMult = 0.5
	}

	m := &Manager{
		registry:       cfg.Registry,
		protos:         cfg.Protos,
		regionCatalog:  cfg.RegionCatalog,
		regionFlags:    cfg.RegionFlags,
		clock:          cfg.Clock,
		log:            cfg.Log,
		bus:            cfg.Bus,
		rooms:          cfg.Rooms,
		combat:         cfg.Combat,
		resolveBrain:   cfg.ResolveBrain,
		runtime:        runtime,
		threat:         threat,
		fleeThreshold:  fleeThreshold,
		healThreatMult: healThreatMult,
		siegeAlarms:    make(map[string]time.Time),
		lastTick:       cfg.Clock.Now(),
	}
	if cfg.Bus != nil {
		event.Subscribe(cfg.Bus, func(e event.SiegeAlarm) {
			m.siegeAlarms[e.RoomID] = m.clock.Now().Add(siegeAlarmDuration)
		})
	}
	return m
}

func (m *Manager) siegeAlarmActive(roomID string) bool {
	expiry, ok := m.siegeAlarms[roomID]
	return ok && m.clock.Now().Before(expiry)
}

func (m *Manager) Phase() system.Phase { return system.PhaseUpdate }

// RegisterNpc binds a freshly spawned NPC entity into the runtime/threat
// component stores. Called by the spawn controller right after
// EntityRegistry.CreateNpcEntity.
func (m *Manager) RegisterNpc(entityID ecs.EntityID, protoID int32, spawnRoomID string, hp, maxHP int32) {
	m.runtime.Set(entityID, &RuntimeState{
		EntityID:    entityID,
		ProtoID:     protoID,
		TemplateID:  protoID,
		RoomID:      spawnRoomID,
		SpawnRoomID: spawnRoomID,
		HP:          hp,
		MaxHP:       maxHP,
		Alive:       true,
	})
	m.threat.Set(entityID, NewThreatTable())
}

func (m *Manager) Unregister(entityID ecs.EntityID) {
	m.runtime.Remove(entityID)
	m.threat.Remove(entityID)
}

func (m *Manager) RuntimeOf(entityID ecs.EntityID) (*RuntimeState, bool) { return m.runtime.Get(entityID) }
func (m *Manager) ThreatOf(entityID ecs.EntityID) (*ThreatTable, bool)   { return m.threat.Get(entityID) }

// SyncVitals mirrors the canonical HP/alive state from the entity registry
// into RuntimeState after the combat pipeline applies damage or healing.
// EntityRegistry's Entity record stays the single source of truth; this
// keeps the AI-facing RuntimeState copy (used by Perception and flee-HP
// checks) from drifting.
func (m *Manager) SyncVitals(entityID ecs.EntityID, hp, maxHP int32, alive bool) {
	rt, ok := m.runtime.Get(entityID)
	if !ok {
		return
	}
	rt.HP, rt.MaxHP, rt.Alive = hp, maxHP, alive
}

// RecordDamage folds a damage hit into the NPC's threat table and, when the
// victim belongs to a call-for-help group, pulls in same-room allies
// (spec.md §4.4.2, §4.4.4). Called by the combat pipeline — the sole place
// damage to an NPC is ever applied.
func (m *Manager) RecordDamage(npcEntityID, attackerID ecs.EntityID, amount float64, now time.Time) {
	t, ok := m.threat.Get(npcEntityID)
	if !ok {
		return
	}

	if redirectID, pct, transferring := m.resolveThreatTransfer(attackerID); transferring {
		AddThreatValue(t, attackerID, (1-pct)*amount, now, AddThreatOpts{SetLastAttacker: true, LastAttackerEntityID: attackerID})
		AddThreatValue(t, redirectID, pct*amount, now, AddThreatOpts{})
	} else {
		UpdateThreatFromDamage(t, attackerID, amount, now)
	}

	rt, ok := m.runtime.Get(npcEntityID)
	if !ok {
		return
	}
	proto := m.protos.Get(rt.ProtoID)
	if proto == nil || !proto.CanCallHelp || proto.GroupID == "" {
		return
	}
	roomEntities := m.registry.InRoom(rt.RoomID)
	result := EvaluatePackAssist(PackAssistQuery{
		Now:        now,
		VictimRoom: rt.RoomID,
		GroupID:    proto.GroupID,
		AttackerID: attackerID,
		RoomEntities: roomEntities,
		ProtoOf: func(id ecs.EntityID) *data.NpcProto {
			if allyRT, ok := m.runtime.Get(id); ok {
				return m.protos.Get(allyRT.ProtoID)
			}
			return nil
		},
		AssistThreatSeed: 1,
	}, func(id ecs.EntityID) *ThreatTable {
		tt, _ := m.threat.Get(id)
		return tt
	})
	for _, allyID := range result.Assisted {
		if allyThreat, ok := m.threat.Get(allyID); ok {
			AddThreatValue(allyThreat, attackerID, 1, now, AddThreatOpts{SetLastAttacker: true, LastAttackerEntityID: attackerID})
		}
	}
}

// resolveThreatTransfer looks for the attacker's status effect carrying the
// highest "threatTransferPct" modifier (spec.md §4.4.2), tie-broken
// lexicographically by effect ID for determinism. A qualifying effect
// redirects that fraction of the attacker's threat credit to the entity
// named by its "threatTransferToEntityId" modifier.
func (m *Manager) resolveThreatTransfer(attackerID ecs.EntityID) (redirectID ecs.EntityID, pct float64, ok bool) {
	attacker, found := m.registry.Get(attackerID)
	if !found {
		return 0, 0, false
	}
	bestEffectID := ""
	for i := range attacker.StatusEffects {
		eff := &attacker.StatusEffects[i]
		rawPct, hasPct := eff.Modifiers["threatTransferPct"]
		rawTarget, hasTarget := eff.Modifiers["threatTransferToEntityId"]
		if !hasPct || !hasTarget {
			continue
		}
		p, pOK := toFloat(rawPct)
		target, tOK := toEntityID(rawTarget)
		if !pOK || !tOK || p <= 0 {
			continue
		}
		if !ok || p > pct || (p == pct && eff.ID < bestEffectID) {
			ok, pct, redirectID, bestEffectID = true, p, target, eff.ID
		}
	}
	return redirectID, pct, ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toEntityID(v any) (ecs.EntityID, bool) {
	switch n := v.(type) {
	case ecs.EntityID:
		return n, true
	case uint64:
		return ecs.EntityID(n), true
	case int:
		return ecs.EntityID(n), true
	case int64:
		return ecs.EntityID(n), true
	case float64:
		return ecs.EntityID(n), true
	default:
		return 0, false
	}
}

// RecordHealThreat folds healing-to-threat from a heal onto every NPC
// sharing the room that already tracks either the healer or the healed
// entity on its threat table (spec.md §4.4.2 healing-to-threat rule):
// threat = max(1, floor(amount * healThreatMult)), credited to the healer
// without rewriting lastAttacker.
func (m *Manager) RecordHealThreat(roomID string, healerID, healedID ecs.EntityID, amount float64, now time.Time) {
	threatGain := math.Floor(amount * m.healThreatMult)
	if threatGain < 1 {
		threatGain = 1
	}
	for _, e := range m.registry.InRoom(roomID) {
		if e.Kind != world.KindNPC {
			continue
		}
		t, ok := m.threat.Get(e.ID)
		if !ok {
			continue
		}
		_, tracksHealer := t.Threat[healerID]
		_, tracksHealed := t.Threat[healedID]
		if !tracksHealer && !tracksHealed {
			continue
		}
		AddThreatValue(t, healerID, threatGain, now, AddThreatOpts{})
	}
}

// Update runs one tick over every live NPC: a fear-flee pre-pass, a
// train-pursuit return pre-pass (drift/snap home), a guard-duty pre-pass
// (sanctuary recapture, siege sortie), then the ordinary
// perception -> decay -> decision -> dispatch sequence (spec.md §2, §4.4).
func (m *Manager) Update(dt time.Duration) {
	now := m.clock.Now()
	m.lastTick = now

	m.runtime.Each(func(id ecs.EntityID, rt *RuntimeState) {
		if !rt.Alive {
			return
		}
		entity, ok := m.registry.Get(id)
		if !ok || !entity.Alive {
			return
		}
		proto := m.protos.Get(rt.ProtoID)
		threatTable, _ := m.threat.Get(id)
		regionFlags := m.regionFlags.Get(entity.RegionID)

		// Fear-flee pre-pass (spec.md §4.4.6): a fear-tagged status effect
		// overrides every other decision this tick.
		if entityHasTag(entity, "fear") {
			m.fleeAndDespawn(id, rt, entity, proto)
			return
		}

		// Train-pursuit return pre-pass (spec.md §4.4.5): an NPC already
		// past its leash spends this tick drifting/snapping home instead of
		// perceiving or deciding.
		if threatTable != nil && !threatTable.IsEmpty() && !rt.Fleeing {
			if m.applyTrainPursuit(id, rt, entity, proto, threatTable, now) {
				return
			}
		}

		// Guard-duty pre-pass (spec.md §4.4.7): sanctuary recapture forces a
		// guard's threat target onto a hostile occupant its normal perception
		// gate would otherwise never choose.
		roomEntities := m.registry.InRoom(rt.RoomID)
		m.applyGuardDuties(id, proto, threatTable, regionFlags, roomEntities, now)

		_, alreadyEngaged := func() (ecs.EntityID, bool) {
			if threatTable == nil {
				return 0, false
			}
			return threatTable.LastAttackerEntityID, !threatTable.IsEmpty()
		}()

		perception := BuildPerception(id, entity, proto, regionFlags, roomEntities, alreadyEngaged)

		if threatTable != nil {
			DecayThreat(threatTable, DecayOpts{
				Now: now,
				DT:  dt,
				ValidateTarget: func(candidate ecs.EntityID) bool {
					target, ok := m.registry.Get(candidate)
					if !ok {
						return false
					}
					verdict := IsValidCombatTarget(EngageQuery{
						Now:            now,
						Attacker:       id,
						Target:         target,
						AttackerRoomID: rt.RoomID,
						AllowCrossRoom: m.regionCatalog.ProfileForRegion(entity.RegionID).RoomsEnabled,
					})
					return verdict.OK
				},
			})
		}

		brain := m.resolveDecisionBrain(proto, threatTable, now)
		decision := brain.Decide(perception)
		m.dispatch(id, rt, entity, proto, threatTable, now, decision)
	})
}

// entityHasTag reports whether any of an entity's current status effects
// carries tag. Expired effects are pruned by combat.ExpireStatusEffects
// earlier in the tick pipeline, so no expiry check is needed here.
func entityHasTag(e *world.Entity, tag string) bool {
	for i := range e.StatusEffects {
		if e.StatusEffects[i].HasTag(tag) {
			return true
		}
	}
	return false
}

// applyTrainPursuit evaluates the Train System for an engaged NPC and, if
// its verdict is a return (snap or drift), performs that movement and
// reports true so the caller skips perception/decision for this tick. A
// sortie-enabled guard within siege-widened sortie range ignores an
// otherwise-due return verdict and keeps pursuing (spec.md §4.4.7).
func (m *Manager) applyTrainPursuit(id ecs.EntityID, rt *RuntimeState, entity *world.Entity, proto *data.NpcProto, threatTable *ThreatTable, now time.Time) bool {
	target, ok := SelectThreatTarget(threatTable, now, nil)
	if !ok {
		return false
	}
	targetEntity, ok := m.registry.Get(target)
	if !ok {
		return false
	}
	trainProfile := m.regionCatalog.ProfileForRegion(entity.RegionID)
	verdict := EvaluateTrainPursuit(TrainQuery{
		Now:            now,
		Profile:        trainProfile,
		SpawnRoomID:    rt.SpawnRoomID,
		CurrentRoom:    rt.RoomID,
		TargetRoom:     targetEntity.RoomID,
		LastAggroAt:    threatTable.LastAggroAt,
		DriftHopsSoFar: rt.DriftHopCount,
	})

	if verdict != TrainContinuePursuit && proto != nil && proto.Behavior == data.BehaviorGuard && proto.Guard.Sortie {
		sortied := EvaluateGuardSortie(GuardSortieQuery{
			Guard:            proto.Guard,
			SiegeAlarmActive: m.siegeAlarmActive(rt.RoomID),
			PostRoomID:       rt.SpawnRoomID,
			CandidateRoomID:  targetEntity.RoomID,
		})
		if sortied {
			verdict = TrainContinuePursuit
		}
	}

	switch verdict {
	case TrainReturnSnap:
		m.moveNpc(id, rt, rt.SpawnRoomID)
		ClearThreat(threatTable)
		return true
	case TrainReturnDrift:
		next, arrived := NextDriftRoom(rt.RoomID, rt.SpawnRoomID, rt.DriftHopCount)
		rt.DriftHopCount++
		m.moveNpc(id, rt, next)
		if arrived {
			ClearThreat(threatTable)
			rt.DriftHopCount = 0
		}
		return true
	}
	return false
}

// applyGuardDuties runs the sanctuary-recapture sweep for guard-behavior
// NPCs (spec.md §4.4.7): it forces the guard's threat target onto the
// first hostile occupant EvaluateSanctuaryRecapture returns for its own
// sanctuary room.
func (m *Manager) applyGuardDuties(id ecs.EntityID, proto *data.NpcProto, threatTable *ThreatTable, regionFlags data.RegionFlags, roomEntities []*world.Entity, now time.Time) {
	if proto == nil || proto.Behavior != data.BehaviorGuard || threatTable == nil {
		return
	}
	targets := EvaluateSanctuaryRecapture(SanctuaryRecaptureQuery{
		Guard:           proto.Guard,
		RoomIsSanctuary: regionFlags.Sanctuary,
		RoomEntities:    roomEntities,
		IsHostileOccupant: func(e *world.Entity) bool {
			if e.ID == id || !e.Alive {
				return false
			}
			if entityHasTag(e, "siege_breach") {
				return true
			}
			if e.Kind != world.KindNPC {
				return false
			}
			allyRT, ok := m.runtime.Get(e.ID)
			if !ok {
				return false
			}
			allyProto := m.protos.Get(allyRT.ProtoID)
			return allyProto != nil && allyProto.Behavior == data.BehaviorAggressive
		},
	})
	if len(targets) == 0 {
		return
	}
	ApplyTaunt(threatTable, targets[0].ID, TauntOpts{Now: now, Duration: 5 * time.Second, ThreatBoost: 1})
}

func (m *Manager) resolveDecisionBrain(proto *data.NpcProto, threatTable *ThreatTable, now time.Time) Brain {
	targetFn := func(self ecs.EntityID) (ecs.EntityID, bool) {
		if threatTable == nil {
			return 0, false
		}
		return SelectThreatTarget(threatTable, now, func(candidate ecs.EntityID) bool {
			target, ok := m.registry.Get(candidate)
			if !ok {
				return false
			}
			return IsValidCombatTarget(EngageQuery{Now: now, Target: target, AttackerRoomID: target.RoomID, AllowCrossRoom: true}).OK
		})
	}
	fallback := FallbackBrain{Now: m.clock.Now, Target: targetFn, FleeThreshold: m.fleeThreshold}

	if proto == nil || proto.Behavior == data.BehaviorGuard {
		return fallback
	}
	if m.resolveBrain != nil {
		if scripted := m.resolveBrain(proto); scripted != nil {
			return ScriptedBrain{DecideFunc: func(p Perception) (Decision, error) {
				return scripted.Decide(p), nil
			}, Fallback: fallback}
		}
	}
	return fallback
}

func (m *Manager) dispatch(id ecs.EntityID, rt *RuntimeState, entity *world.Entity, proto *data.NpcProto, threatTable *ThreatTable, now time.Time, d Decision) {
	switch d.Kind {
	case DecisionAttackEntity:
		if m.combat == nil {
			return
		}
		if now.Sub(rt.LastAttackCommandAt) < 800*time.Millisecond {
			return
		}
		target, ok := m.registry.Get(d.TargetEntityID)
		if !ok {
			return
		}
		verdict := IsValidCombatTarget(EngageQuery{
			Now:            now,
			Attacker:       id,
			Target:         target,
			AttackerRoomID: rt.RoomID,
			AllowCrossRoom: m.regionCatalog.ProfileForRegion(entity.RegionID).RoomsEnabled,
		})
		if !verdict.OK {
			return
		}
		rt.LastAttackCommandAt = now
		result := m.combat.ApplyNpcMeleeDamage(d.TargetEntityID, id, meleeDamageForProto(proto), now)
		if result.Killed && m.bus != nil {
			event.Emit(m.bus, event.PlayerDied{EntityID: d.TargetEntityID, RoomID: target.RoomID})
		}

	case DecisionFlee:
		// A fleeing NPC despawns outright rather than merely stepping away
		// (spec.md §4.4.8): it leaves the registry for good, same as the
		// fear-flee pre-pass.
		m.fleeAndDespawn(id, rt, entity, proto)

	case DecisionSay:
		m.broadcastNpcChat(entity, d.Utterance)

	case DecisionMoveToRoom:
		rt.Fleeing = false
		m.moveNpc(id, rt, d.DestRoomID)

	case DecisionIdle:
		rt.Fleeing = false
	}
}

func (m *Manager) moveNpc(id ecs.EntityID, rt *RuntimeState, destRoomID string) {
	if destRoomID == "" || destRoomID == rt.RoomID {
		return
	}
	m.registry.MoveRoom(id, destRoomID)
	rt.RoomID = destRoomID
}

// fleeAndDespawn marks an NPC as fleeing, narrates it with a best-effort
// flavor line, then removes it from the world entirely (spec.md §4.4.8):
// flee is terminal, not a one-room hop. Shared by the fear-flee pre-pass and
// the ordinary DecisionFlee dispatch.
func (m *Manager) fleeAndDespawn(id ecs.EntityID, rt *RuntimeState, entity *world.Entity, proto *data.NpcProto) {
	rt.Fleeing = true
	name := entity.Name
	if name == "" && proto != nil {
		name = proto.Name
	}
	m.broadcastNpcChat(entity, name+" flees in terror!")
	roomID := entity.RoomID
	m.registry.RemoveEntity(id)
	m.Unregister(id)
	if m.rooms != nil {
		m.rooms.Broadcast(roomID, "entity_despawn", struct {
			ID uint64 `json:"id"`
		}{uint64(id)})
	}
}

// broadcastNpcChat narrates an NPC utterance to its room using the same chat
// payload shape handler.handleChat sends for players, with SessionID 0
// marking the speaker as an NPC.
func (m *Manager) broadcastNpcChat(entity *world.Entity, text string) {
	if m.rooms == nil || text == "" {
		return
	}
	name := entity.Name
	m.rooms.Broadcast(entity.RoomID, "chat", struct {
		SessionID uint64 `json:"sessionId"`
		Name      string `json:"name"`
		Text      string `json:"text"`
	}{SessionID: 0, Name: name, Text: text})
}

// ClearThreat empties a threat table in place (used when an NPC fully
// disengages and returns home).
func ClearThreat(t *ThreatTable) {
	for k := range t.Threat {
		delete(t.Threat, k)
	}
	t.LastAttackerEntityID = 0
	t.ForcedTargetEntityID = 0
}

func meleeDamageForProto(proto *data.NpcProto) int32 {
	if proto == nil {
		return 1
	}
	base := int32(2 + proto.Level)
	if base < 1 {
		return 1
	}
	return base
}
