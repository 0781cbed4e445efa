package spawn

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/simclock"
	"github.com/worldcore/server/internal/world"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestController(t *testing.T, protoYAML, spawnYAML string) (*Controller, *world.EntityRegistry) {
	t.Helper()
	dir := t.TempDir()
	protoPath := writeYAML(t, dir, "protos.yaml", protoYAML)
	spawnPath := writeYAML(t, dir, "spawns.yaml", spawnYAML)

	protos, err := data.LoadNpcProtoTable(protoPath)
	require.NoError(t, err)
	spawnPoints, err := data.LoadSpawnPointTable(spawnPath)
	require.NoError(t, err)

	ecsWorld := ecs.NewWorld()
	registry := world.NewEntityRegistry(ecsWorld)
	mgr := npc.NewManager(ecsWorld, npc.ManagerConfig{
		Registry: registry,
		Protos:   protos,
		Clock:    simclock.NewManual(time.Unix(1000, 0)),
	})

	c := NewController(registry, mgr, protos, spawnPoints, nil)
	return c, registry
}

const singleWolfProto = `
- id: 1
  name: Wolf
  model: wolf
  max_hp: 50
`

const resourceNodeProto = `
- id: 2
  name: Copper Vein
  model: vein
  max_hp: 1
  tags: ["resource"]
`

func TestReconcileRegion_SpawnsMissingNpcAtSpawnPoint(t *testing.T) {
	c, registry := newTestController(t, singleWolfProto, `
- id: 100
  spawn_id: "seed:100"
  shard_id: s1
  region_id: r1
  type: npc
  proto_id: 1
  x: 3
  y: 4
`)

	spawned := c.ReconcileRegion("s1", "r1")
	require.Len(t, spawned, 1)
	assert.Equal(t, int32(1), spawned[0].ProtoID)
	assert.True(t, spawned[0].Alive)
	assert.Len(t, registry.InRoom(spawned[0].RoomID), 1)
}

func TestReconcileRegion_SkipsAlreadyOccupiedSpawnPoint(t *testing.T) {
	c, _ := newTestController(t, singleWolfProto, `
- id: 100
  spawn_id: "seed:100"
  shard_id: s1
  region_id: r1
  type: npc
  proto_id: 1
  x: 0
  y: 0
`)

	first := c.ReconcileRegion("s1", "r1")
	require.Len(t, first, 1)

	second := c.ReconcileRegion("s1", "r1")
	assert.Empty(t, second)
}

func TestReconcileRegion_RespawnsAfterNotifyDespawned(t *testing.T) {
	c, _ := newTestController(t, singleWolfProto, `
- id: 100
  spawn_id: "seed:100"
  shard_id: s1
  region_id: r1
  type: npc
  proto_id: 1
  x: 0
  y: 0
`)

	first := c.ReconcileRegion("s1", "r1")
	require.Len(t, first, 1)
	c.NotifyDespawned(100)

	second := c.ReconcileRegion("s1", "r1")
	assert.Len(t, second, 1)
}

func TestReconcileRegion_SkipsResourcePrototypeEvenIfMistypedNpc(t *testing.T) {
	c, _ := newTestController(t, resourceNodeProto, `
- id: 200
  spawn_id: "seed:200"
  shard_id: s1
  region_id: r1
  type: npc
  proto_id: 2
  x: 0
  y: 0
`)

	spawned := c.ReconcileRegion("s1", "r1")
	assert.Empty(t, spawned)
}

func TestReconcilePersonalNode_SpawnsResourceNodeForOwner(t *testing.T) {
	c, _ := newTestController(t, resourceNodeProto, `[]`)
	sp := &data.SpawnPoint{ID: 9, SpawnID: "seed:9", ShardID: "s1", RegionID: "r1", Type: "node", ProtoID: 2, X: 1, Y: 1}

	e := c.ReconcilePersonalNode(777, sp)
	require.NotNil(t, e)
	assert.True(t, e.ResourcePrototype)
	assert.Equal(t, uint64(777), e.OwnerSessionID)
}

func TestFindOpenRoom_SpiralsOutwardWhenHomeRoomIsFull(t *testing.T) {
	c, registry := newTestController(t, singleWolfProto, `[]`)
	c.MaxPerRoom = 1
	home := "s1:0,0"
	filler := registry.CreateNpcEntity(home, "filler")
	filler.Alive = true

	room := c.findOpenRoom(home)
	assert.NotEqual(t, home, room)
}
