// Package respawn implements player-side respawn: settlement spawn-point
// selection and the full-heal restart transition. Grounded on the teacher's
// internal/system/death.go ProcessRestart/getBackLocation (spec.md §4.8).
package respawn

import (
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/world"
)

// Service resolves where a dead player restarts and performs the transition.
type Service struct {
	Registry    *world.EntityRegistry
	SpawnPoints *data.SpawnPointTable
	Bus         *event.Bus
	Log         *zap.Logger

	// FallbackRoom is used when a shard has no eligible settlement spawn
	// point at all (catalog misconfiguration) — never leave a player stuck
	// with no destination.
	FallbackRoom string
}

// BestSpawn selects the nearest eligible settlement spawn point to deathRoom
// on the same shard (spec.md §4.8's "closer settlement" rule): town/hub/city
// variants, excluding kos/hostile, chosen by Chebyshev distance with
// lexicographic SpawnID tie-break for determinism.
func (s *Service) BestSpawn(shardID, regionID, deathRoomID string) (*data.SpawnPoint, bool) {
	deathCoord, deathIsWorld := world.ParseRoomID(deathRoomID)

	var best *data.SpawnPoint
	var bestDist int32 = -1

	for _, sp := range s.SpawnPoints.ForRegion(shardID, regionID) {
		if !sp.IsEligibleSettlement() {
			continue
		}
		dist := int32(0)
		if deathIsWorld {
			spCoord := world.RoomCoord{ShardID: sp.ShardID, X: int32(sp.X), Y: int32(sp.Y)}
			dist = world.ChebyshevRoomDistance(deathCoord, spCoord)
		}
		if best == nil || dist < bestDist || (dist == bestDist && sp.SpawnID < best.SpawnID) {
			best, bestDist = sp, dist
		}
	}
	if best != nil {
		return best, true
	}

	// No in-region eligible settlement — widen to the whole shard.
	for _, sp := range s.SpawnPoints.All() {
		if sp.ShardID != shardID || !sp.IsEligibleSettlement() {
			continue
		}
		dist := int32(0)
		if deathIsWorld {
			spCoord := world.RoomCoord{ShardID: sp.ShardID, X: int32(sp.X), Y: int32(sp.Y)}
			dist = world.ChebyshevRoomDistance(deathCoord, spCoord)
		}
		if best == nil || dist < bestDist || (dist == bestDist && sp.SpawnID < best.SpawnID) {
			best, bestDist = sp, dist
		}
	}
	return best, best != nil
}

// Restart revives a dead player entity at its best-spawn settlement, fully
// healed, and emits EntityRespawned. No-op if the entity is already alive.
func (s *Service) Restart(playerEntityID ecs.EntityID, shardID, regionID string, now time.Time) {
	e, ok := s.Registry.Get(playerEntityID)
	if !ok || e.Alive {
		return
	}

	destRoomID := s.FallbackRoom
	if sp, ok := s.BestSpawn(shardID, regionID, e.RoomID); ok {
		destRoomID = world.FormatRoomID(world.RoomCoord{ShardID: sp.ShardID, X: int32(sp.X), Y: int32(sp.Y)})
	}
	if destRoomID == "" {
		destRoomID = e.RoomID
	}

	s.Registry.MoveRoom(playerEntityID, destRoomID)
	e.HP = e.MaxHP
	e.Alive = true
	e.StatusEffects = nil

	if s.Bus != nil {
		event.Emit(s.Bus, event.EntityRespawned{EntityID: playerEntityID, RoomID: destRoomID})
	}
	if s.Log != nil {
		s.Log.Info("player restarted", zap.Uint64("entity", uint64(playerEntityID)), zap.String("room", destRoomID))
	}
}
