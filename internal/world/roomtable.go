package world

// EntityView is the wire-facing projection of an Entity sent to clients.
type EntityView struct {
	ID       uint64  `json:"id"`
	Kind     string  `json:"kind"`
	Name     string  `json:"name"`
	Model    string  `json:"model"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	RotY     float64 `json:"rotY"`
	HP       int32   `json:"hp"`
	MaxHP    int32   `json:"maxHp"`
	Alive    bool    `json:"alive"`
	OwnerSID uint64  `json:"ownerSessionId,omitempty"`
}

func toView(e *Entity) EntityView {
	return EntityView{
		ID: uint64(e.ID), Kind: e.Kind.String(), Name: e.Name, Model: e.Model,
		X: e.Pose.X, Y: e.Pose.Y, Z: e.Pose.Z, RotY: e.Pose.RotY,
		HP: e.HP, MaxHP: e.MaxHP, Alive: e.Alive, OwnerSID: e.OwnerSessionID,
	}
}

// RoomTable tracks per-room session membership and performs broadcast
// fanout with exclusion (spec.md §4.3).
type RoomTable struct {
	rooms    map[string]*Room
	entities *EntityRegistry
	sessions *SessionTable
}

func NewRoomTable(entities *EntityRegistry, sessions *SessionTable) *RoomTable {
	return &RoomTable{rooms: make(map[string]*Room), entities: entities, sessions: sessions}
}

func (rt *RoomTable) room(id string) *Room {
	r, ok := rt.rooms[id]
	if !ok {
		r = NewRoom(id)
		rt.rooms[id] = r
	}
	return r
}

func (rt *RoomTable) Room(id string) (*Room, bool) {
	r, ok := rt.rooms[id]
	return r, ok
}

// isVisibleTo applies the listing visibility filter: always show other
// players; show shared (ownerless) entities; show personally-owned
// entities only to the owner.
func isVisibleTo(e *Entity, viewerSessionID uint64) bool {
	if e.Kind == KindPlayer {
		return true
	}
	if e.OwnerSessionID == 0 {
		return true
	}
	return e.OwnerSessionID == viewerSessionID
}

// Join adds a session to room membership. Non-world rooms just add to
// membership and return. World rooms additionally create the player
// entity, seed its pose from the attached character (if present), send
// entity_list (self + filtered others) to the joiner, then broadcast
// entity_spawn to everyone else.
func (rt *RoomTable) Join(sess *Session, roomID string) {
	r := rt.room(roomID)
	r.Members[sess.ID] = struct{}{}
	sess.RoomID = roomID

	if !r.World {
		return
	}

	player := rt.entities.CreatePlayerForSession(sess.ID, roomID)
	sess.PlayerEntityID = player.ID
	if c := sess.Character; c != nil {
		player.Pose = Pose{X: c.X, Y: c.Y, Z: c.Z, RotY: c.RotY}
		player.SpawnHome = player.Pose
		player.Name = c.Name
	}
	player.Alive = true

	others := make([]EntityView, 0, 8)
	for _, e := range rt.entities.InRoom(roomID) {
		if e.ID == player.ID {
			continue
		}
		if isVisibleTo(e, sess.ID) {
			others = append(others, toView(e))
		}
	}
	self := toView(player)
	sess.Send("entity_list", struct {
		Self   EntityView   `json:"self"`
		Others []EntityView `json:"others"`
	}{Self: self, Others: others})

	rt.BroadcastExcept(roomID, sess.ID, "entity_spawn", self)
}

// Leave removes a session from room membership. For world rooms, it
// despawns all personally-owned entities in that room (broadcasting
// despawn), then removes the player entity and broadcasts despawn.
func (rt *RoomTable) Leave(sess *Session) {
	r, ok := rt.rooms[sess.RoomID]
	if !ok {
		return
	}
	delete(r.Members, sess.ID)

	if !r.World {
		return
	}

	for _, e := range rt.entities.InRoom(sess.RoomID) {
		if e.OwnerSessionID == sess.ID && e.Kind != KindPlayer {
			rt.entities.RemoveEntity(e.ID)
			rt.BroadcastExcept(sess.RoomID, sess.ID, "entity_despawn", struct {
				ID uint64 `json:"id"`
			}{uint64(e.ID)})
		}
	}

	if player, ok := rt.entities.Get(sess.PlayerEntityID); ok {
		rt.entities.RemoveEntity(player.ID)
		rt.BroadcastExcept(sess.RoomID, sess.ID, "entity_despawn", struct {
			ID uint64 `json:"id"`
		}{uint64(player.ID)})
	}
	sess.PlayerEntityID = 0

	if len(r.Members) == 0 {
		delete(rt.rooms, sess.RoomID)
	}
}

// Broadcast sends op/payload to every member of roomID.
func (rt *RoomTable) Broadcast(roomID string, op string, payload any) {
	r, ok := rt.rooms[roomID]
	if !ok {
		return
	}
	for sid := range r.Members {
		rt.sessions.Send(sid, op, payload)
	}
}

// BroadcastExcept sends op/payload to every member of roomID except excludedSessionID.
func (rt *RoomTable) BroadcastExcept(roomID string, excludedSessionID uint64, op string, payload any) {
	r, ok := rt.rooms[roomID]
	if !ok {
		return
	}
	for sid := range r.Members {
		if sid == excludedSessionID {
			continue
		}
		rt.sessions.Send(sid, op, payload)
	}
}
