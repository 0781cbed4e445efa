package death

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/core/event"
	"github.com/worldcore/server/internal/data"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/simclock"
	"github.com/worldcore/server/internal/world"
)

type fakeRewardSink struct {
	xp   map[ecs.EntityID]int32
	loot map[ecs.EntityID]int32
}

func newFakeRewardSink() *fakeRewardSink {
	return &fakeRewardSink{xp: make(map[ecs.EntityID]int32), loot: make(map[ecs.EntityID]int32)}
}

func (f *fakeRewardSink) GrantXP(playerEntityID ecs.EntityID, amount int32) {
	f.xp[playerEntityID] += amount
}
func (f *fakeRewardSink) GrantLoot(playerEntityID ecs.EntityID, protoID int32, loot []data.LootEntry) {
	f.loot[playerEntityID]++
}

type fakeSpawnNotifier struct {
	notified []int32
}

func (f *fakeSpawnNotifier) NotifyDespawned(spawnPointID int32) {
	f.notified = append(f.notified, spawnPointID)
}

func newTestPipeline(t *testing.T, clock *simclock.Manual) (*Pipeline, *world.EntityRegistry, *npc.Manager, *fakeRewardSink, *fakeSpawnNotifier) {
	t.Helper()
	ecsWorld := ecs.NewWorld()
	registry := world.NewEntityRegistry(ecsWorld)
	mgr := npc.NewManager(ecsWorld, npc.ManagerConfig{Registry: registry, Clock: clock})

	rewards := newFakeRewardSink()
	notifier := &fakeSpawnNotifier{}
	bus := event.NewBus()

	pipeline := NewPipeline(registry, mgr, testProtoTable(t), rewards, notifier, bus, clock, nil)
	return pipeline, registry, mgr, rewards, notifier
}

// testProtoTable builds an NpcProtoTable via the public loader against a
// temp YAML file, since NpcProtoTable's fields are unexported.
func testProtoTable(t *testing.T) *data.NpcProtoTable {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/protos.yaml"
	content := `
- id: 1
  name: Wolf
  behavior: aggressive
  xp_reward: 100
- id: 2
  name: Gate Guard
  behavior: guard
  xp_reward: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	table, err := data.LoadNpcProtoTable(path)
	require.NoError(t, err)
	return table
}

func TestKillPlayer_MarksDeadAndEmitsEvent(t *testing.T) {
	clock := simclock.NewManual(time.Unix(1000, 0))
	pipeline, registry, _, _, _ := newTestPipeline(t, clock)

	e := registry.CreatePlayerForSession(1, "s1:0,0")
	e.Alive, e.HP, e.MaxHP = true, 10, 10

	var died []event.PlayerDied
	event.Subscribe(pipeline.Bus, func(ev event.PlayerDied) { died = append(died, ev) })

	pipeline.KillPlayer(e.ID)
	pipeline.Bus.SwapBuffers()
	pipeline.Bus.DispatchAll()

	assert.False(t, e.Alive)
	assert.Equal(t, int32(0), e.HP)
	require.Len(t, died, 1)
	assert.Equal(t, e.ID, died[0].EntityID)
}

func TestKillPlayer_IsIdempotent(t *testing.T) {
	clock := simclock.NewManual(time.Unix(1000, 0))
	pipeline, registry, _, _, _ := newTestPipeline(t, clock)

	e := registry.CreatePlayerForSession(1, "s1:0,0")
	e.Alive = true

	pipeline.KillPlayer(e.ID)
	var count int
	event.Subscribe(pipeline.Bus, func(event.PlayerDied) { count++ })
	pipeline.KillPlayer(e.ID) // no-op: already dead
	pipeline.Bus.SwapBuffers()
	pipeline.Bus.DispatchAll()

	assert.Equal(t, 0, count)
}

func TestHandleNpcDeath_SplitsRewardByThreatShare(t *testing.T) {
	clock := simclock.NewManual(time.Unix(1000, 0))
	pipeline, registry, mgr, rewards, _ := newTestPipeline(t, clock)

	e := registry.CreateNpcEntity("s1:0,0", "wolf")
	e.Alive, e.HP, e.MaxHP = true, 0, 50
	mgr.RegisterNpc(e.ID, 1, "s1:0,0", 50, 50)

	threat, _ := mgr.ThreatOf(e.ID)
	threat.Threat[ecs.EntityID(10)] = 75
	threat.Threat[ecs.EntityID(20)] = 25

	pipeline.HandleNpcDeath(e.ID, ecs.EntityID(10))

	assert.Equal(t, int32(75), rewards.xp[ecs.EntityID(10)])
	assert.Equal(t, int32(25), rewards.xp[ecs.EntityID(20)])
	assert.Equal(t, int32(1), rewards.loot[ecs.EntityID(10)])
}

func TestHandleNpcDeath_GuardExemptGrantsNoReward(t *testing.T) {
	clock := simclock.NewManual(time.Unix(1000, 0))
	pipeline, registry, mgr, rewards, _ := newTestPipeline(t, clock)

	e := registry.CreateNpcEntity("s1:0,0", "guard")
	e.Alive = true
	mgr.RegisterNpc(e.ID, 2, "s1:0,0", 50, 50)

	pipeline.HandleNpcDeath(e.ID, ecs.EntityID(10))

	assert.Empty(t, rewards.xp)
}

func TestHandleNpcDeath_IsIdempotentViaRewardsGranted(t *testing.T) {
	clock := simclock.NewManual(time.Unix(1000, 0))
	pipeline, registry, mgr, rewards, _ := newTestPipeline(t, clock)

	e := registry.CreateNpcEntity("s1:0,0", "wolf")
	e.Alive = true
	mgr.RegisterNpc(e.ID, 1, "s1:0,0", 50, 50)
	threat, _ := mgr.ThreatOf(e.ID)
	threat.Threat[ecs.EntityID(10)] = 10

	pipeline.HandleNpcDeath(e.ID, ecs.EntityID(10))
	first := rewards.xp[ecs.EntityID(10)]

	pipeline.HandleNpcDeath(e.ID, ecs.EntityID(10)) // second call: no-op
	assert.Equal(t, first, rewards.xp[ecs.EntityID(10)])
}

func TestUpdate_DeletesCorpseThenNotifiesRespawnEligible(t *testing.T) {
	clock := simclock.NewManual(time.Unix(1000, 0))
	pipeline, registry, mgr, _, notifier := newTestPipeline(t, clock)
	pipeline.CorpseLifetime = 5 * time.Second
	pipeline.DefaultRespawnDelay = 10 * time.Second

	e := registry.CreateNpcEntity("s1:0,0", "wolf")
	e.Alive = true
	e.SpawnPointID = 42
	mgr.RegisterNpc(e.ID, 1, "s1:0,0", 50, 50)
	threat, _ := mgr.ThreatOf(e.ID)
	threat.Threat[ecs.EntityID(10)] = 1

	pipeline.HandleNpcDeath(e.ID, ecs.EntityID(10))

	clock.Advance(4 * time.Second)
	pipeline.Update(0)
	_, stillPresent := registry.Get(e.ID)
	assert.True(t, stillPresent)

	clock.Advance(2 * time.Second) // past deleteAt (5s)
	pipeline.Update(0)
	_, present := registry.Get(e.ID)
	assert.False(t, present)
	assert.Empty(t, notifier.notified)

	clock.Advance(10 * time.Second) // past respawnAt
	pipeline.Update(0)
	assert.Equal(t, []int32{42}, notifier.notified)
}
