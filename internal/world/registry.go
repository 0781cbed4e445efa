package world

import (
	"github.com/worldcore/server/internal/core/ecs"
)

// EntityRegistry is the indexed store of entities keyed by id, with a
// room-index and an owner-index (spec.md §2, §4.2). It is the exclusive
// writer of Entity records; NPC runtime state and threat tables are owned
// separately by the NPC manager and keyed by the same EntityID.
type EntityRegistry struct {
	ecsWorld *ecs.World
	store    *ecs.PtrComponentStore[Entity]

	byRoom  map[string]map[ecs.EntityID]struct{}
	byOwner map[uint64]ecs.EntityID // sessionID -> player entity id
}

func NewEntityRegistry(ecsWorld *ecs.World) *EntityRegistry {
	store := ecs.NewPtrComponentStore[Entity]()
	ecsWorld.Registry().Register(store)
	return &EntityRegistry{
		ecsWorld: ecsWorld,
		store:    store,
		byRoom:   make(map[string]map[ecs.EntityID]struct{}),
		byOwner:  make(map[uint64]ecs.EntityID),
	}
}

func (r *EntityRegistry) addToRoomIndex(roomID string, id ecs.EntityID) {
	set, ok := r.byRoom[roomID]
	if !ok {
		set = make(map[ecs.EntityID]struct{})
		r.byRoom[roomID] = set
	}
	set[id] = struct{}{}
}

func (r *EntityRegistry) removeFromRoomIndex(roomID string, id ecs.EntityID) {
	if set, ok := r.byRoom[roomID]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.byRoom, roomID)
		}
	}
}

// CreatePlayerForSession is idempotent per session: calling it again for a
// session that already owns a player entity rebinds that entity — rewrites
// its type back to player, re-owns it, and clears any accidental
// spawn-point/protoId fields left over from a prior (invariant-violating)
// state. Ensures at most one player entity per session.
func (r *EntityRegistry) CreatePlayerForSession(sessionID uint64, roomID string) *Entity {
	if existingID, ok := r.byOwner[sessionID]; ok {
		if e, ok := r.store.Get(existingID); ok {
			if e.RoomID != roomID {
				r.removeFromRoomIndex(e.RoomID, e.ID)
				e.RoomID = roomID
				r.addToRoomIndex(roomID, e.ID)
			}
			e.Kind = KindPlayer
			e.OwnerSessionID = sessionID
			e.ProtoID = 0
			e.SpawnPointID = 0
			e.SpawnID = ""
			e.Alive = true
			return e
		}
		// Stale index entry (entity destroyed without going through
		// RemoveEntity) — drop it and fall through to create fresh.
		delete(r.byOwner, sessionID)
	}

	id := r.ecsWorld.CreateEntity()
	e := &Entity{
		ID:             id,
		Kind:           KindPlayer,
		RoomID:         roomID,
		OwnerSessionID: sessionID,
		Alive:          true,
	}
	r.store.Set(id, e)
	r.addToRoomIndex(roomID, id)
	r.byOwner[sessionID] = id
	return e
}

func (r *EntityRegistry) CreateNpcEntity(roomID, model string) *Entity {
	id := r.ecsWorld.CreateEntity()
	e := &Entity{ID: id, Kind: KindNPC, RoomID: roomID, Model: model, Alive: true}
	r.store.Set(id, e)
	r.addToRoomIndex(roomID, id)
	return e
}

func (r *EntityRegistry) CreatePet(roomID, model string, ownerEntityID ecs.EntityID) *Entity {
	id := r.ecsWorld.CreateEntity()
	e := &Entity{ID: id, Kind: KindPet, RoomID: roomID, Model: model, OwnerEntityID: ownerEntityID, Alive: true}
	r.store.Set(id, e)
	r.addToRoomIndex(roomID, id)
	return e
}

// CreateNode creates a personally-owned resource node entity.
func (r *EntityRegistry) CreateNode(roomID string, ownerSessionID uint64) *Entity {
	id := r.ecsWorld.CreateEntity()
	e := &Entity{ID: id, Kind: KindNode, RoomID: roomID, OwnerSessionID: ownerSessionID, Alive: true}
	r.store.Set(id, e)
	r.addToRoomIndex(roomID, id)
	return e
}

func (r *EntityRegistry) Get(id ecs.EntityID) (*Entity, bool) {
	return r.store.Get(id)
}

func (r *EntityRegistry) ByOwner(sessionID uint64) (*Entity, bool) {
	id, ok := r.byOwner[sessionID]
	if !ok {
		return nil, false
	}
	return r.store.Get(id)
}

// InRoom returns all entities currently indexed under roomID. O(N) scan
// over the room's id set is acceptable per spec.md §4.2.
func (r *EntityRegistry) InRoom(roomID string) []*Entity {
	set, ok := r.byRoom[roomID]
	if !ok {
		return nil
	}
	out := make([]*Entity, 0, len(set))
	for id := range set {
		if e, ok := r.store.Get(id); ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *EntityRegistry) SetPosition(id ecs.EntityID, x, y, z float64) {
	if e, ok := r.store.Get(id); ok {
		e.Pose.X, e.Pose.Y, e.Pose.Z = x, y, z
	}
}

// MoveRoom relocates an entity between rooms, updating the room index. It
// does not broadcast — callers do (matches RemoveEntity's contract).
func (r *EntityRegistry) MoveRoom(id ecs.EntityID, newRoomID string) {
	e, ok := r.store.Get(id)
	if !ok {
		return
	}
	r.removeFromRoomIndex(e.RoomID, id)
	e.RoomID = newRoomID
	r.addToRoomIndex(newRoomID, id)
}

// RemoveEntity deletes the entity record and its index entries. It does not
// broadcast a despawn — callers do.
func (r *EntityRegistry) RemoveEntity(id ecs.EntityID) {
	e, ok := r.store.Get(id)
	if !ok {
		return
	}
	r.removeFromRoomIndex(e.RoomID, id)
	if e.Kind == KindPlayer && r.byOwner[e.OwnerSessionID] == id {
		delete(r.byOwner, e.OwnerSessionID)
	}
	r.ecsWorld.MarkForDestruction(id)
	r.store.Remove(id)
}

// Each iterates every live entity. Used by passes that must scan the whole
// population (status-effect expiry, HOT/DOT ticking).
func (r *EntityRegistry) Each(fn func(*Entity)) {
	r.store.Each(func(_ ecs.EntityID, e *Entity) { fn(e) })
}
