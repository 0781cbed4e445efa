// Package spawn implements the shared-NPC and personal-node spawn pipeline:
// catalog-driven reconciliation and spiral-search placement when a spawn
// point's exact room is already crowded. Grounded on the teacher's
// internal/system/npc_respawn.go respawnNpc spiral search, adapted from
// tile occupancy to room occupancy (spec.md §4.6).
package spawn

import (
	"go.uber.org/zap"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/world"
)

// Controller owns shared-NPC and personal-node reconciliation against the
// spawn point catalog.
type Controller struct {
	Registry    *world.EntityRegistry
	NpcManager  *npc.Manager
	Protos      *data.NpcProtoTable
	SpawnPoints *data.SpawnPointTable
	Log         *zap.Logger

	// MaxPerRoom bounds how many live entities a single room may hold before
	// placement spirals outward to find a less crowded room.
	MaxPerRoom int
	// MaxSearchRadius bounds the spiral search (rooms), matching the
	// teacher's radius-1..3 tile search generalized to room granularity.
	MaxSearchRadius int32

	// spawnPointOwner tracks which entity currently occupies a shared spawn
	// point, so reconciliation never double-spawns a still-alive occupant.
	spawnPointOwner map[int32]ecs.EntityID
}

func NewController(registry *world.EntityRegistry, npcManager *npc.Manager, protos *data.NpcProtoTable, spawnPoints *data.SpawnPointTable, log *zap.Logger) *Controller {
	return &Controller{
		Registry:        registry,
		NpcManager:      npcManager,
		Protos:          protos,
		SpawnPoints:     spawnPoints,
		Log:             log,
		MaxPerRoom:      8,
		MaxSearchRadius: 3,
		spawnPointOwner: make(map[int32]ecs.EntityID),
	}
}

// NotifyDespawned clears a spawn point's occupant record so the next
// ReconcileRegion call repopulates it. Called by the death/respawn pipeline
// once a corpse finally despawns.
func (c *Controller) NotifyDespawned(spawnPointID int32) {
	delete(c.spawnPointOwner, spawnPointID)
}

// ReconcileRegion walks every shared NPC spawn point for (shardID, regionID)
// and spawns an entity for any that has no live occupant. Resource-node spawn
// points are skipped outright, even if mistyped as "npc" (spec.md §4.6 hard
// rule) — IsNpcLike/IsResourcePrototype jointly gate this.
func (c *Controller) ReconcileRegion(shardID, regionID string) []*world.Entity {
	var spawned []*world.Entity
	for _, sp := range c.SpawnPoints.ForRegion(shardID, regionID) {
		if !sp.IsNpcLike() {
			continue
		}
		proto := c.Protos.Get(sp.ProtoID)
		if proto == nil || proto.IsResourcePrototype() {
			continue
		}
		if occupantID, ok := c.spawnPointOwner[sp.ID]; ok {
			if e, ok := c.Registry.Get(occupantID); ok && e.Alive {
				continue
			}
			delete(c.spawnPointOwner, sp.ID)
		}
		e := c.spawnNpcAt(sp, proto)
		if e != nil {
			spawned = append(spawned, e)
		}
	}
	return spawned
}

func (c *Controller) spawnNpcAt(sp *data.SpawnPoint, proto *data.NpcProto) *world.Entity {
	homeRoom := world.FormatRoomID(world.RoomCoord{ShardID: sp.ShardID, X: int32(sp.X), Y: int32(sp.Y)})
	roomID := c.findOpenRoom(homeRoom)

	e := c.Registry.CreateNpcEntity(roomID, proto.Model)
	e.ProtoID = proto.ID
	e.MaxHP = proto.MaxHP
	e.HP = proto.MaxHP
	e.Name = proto.Name
	e.RegionID = sp.RegionID
	e.SpawnPointID = sp.ID
	e.SpawnID = sp.SpawnID
	e.Alive = true
	e.Pose = world.Pose{X: sp.X, Y: sp.Y, Z: sp.Z}
	e.SpawnHome = e.Pose

	c.NpcManager.RegisterNpc(e.ID, proto.ID, homeRoom, e.MaxHP, e.MaxHP)
	c.spawnPointOwner[sp.ID] = e.ID
	return e
}

// ReconcilePersonalNode spawns a resource node for an owning session at its
// spawn point, used by the personal-node reconciliation pass (each player's
// harvest nodes are tracked independently of the shared NPC population).
func (c *Controller) ReconcilePersonalNode(ownerSessionID uint64, sp *data.SpawnPoint) *world.Entity {
	if !sp.IsNodeLike() && !sp.IsNpcLike() {
		return nil
	}
	proto := c.Protos.Get(sp.ProtoID)
	if proto != nil && !proto.IsResourcePrototype() {
		return nil // a node spawn point must resolve to a resource prototype
	}
	homeRoom := world.FormatRoomID(world.RoomCoord{ShardID: sp.ShardID, X: int32(sp.X), Y: int32(sp.Y)})
	e := c.Registry.CreateNode(homeRoom, ownerSessionID)
	if proto != nil {
		e.ProtoID = proto.ID
		e.MaxHP = proto.MaxHP
		e.HP = proto.MaxHP
		e.Name = proto.Name
	}
	e.ResourcePrototype = true
	e.SpawnPointID = sp.ID
	e.SpawnID = sp.SpawnID
	e.RegionID = sp.RegionID
	e.Alive = true
	e.Pose = world.Pose{X: sp.X, Y: sp.Y, Z: sp.Z}
	e.SpawnHome = e.Pose
	return e
}

// findOpenRoom spirals outward (Chebyshev rings) from a world room until it
// finds one under MaxPerRoom occupancy, generalizing the teacher's tile
// spiral search to room granularity. Non-world homes (bare tokens) are
// returned unchanged — they have no room grid to search.
func (c *Controller) findOpenRoom(homeRoomID string) string {
	home, ok := world.ParseRoomID(homeRoomID)
	if !ok {
		return homeRoomID
	}
	if len(c.Registry.InRoom(homeRoomID)) < c.MaxPerRoom {
		return homeRoomID
	}
	for r := int32(1); r <= c.MaxSearchRadius; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				cand := world.RoomCoord{ShardID: home.ShardID, X: home.X + dx, Y: home.Y + dy}
				candID := world.FormatRoomID(cand)
				if len(c.Registry.InRoom(candID)) < c.MaxPerRoom {
					return candID
				}
			}
		}
	}
	return homeRoomID // saturated — spawn on top rather than drop the encounter
}
