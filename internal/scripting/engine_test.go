package scripting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/worldcore/server/internal/combat"
	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/world"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine("../../scripts", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestNewEngine_MissingScriptsDirIsNotAnError(t *testing.T) {
	e, err := NewEngine("/nonexistent/path/to/scripts", zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
}

func TestResolveMelee_WeakTargetAgainstStrongAttackerLandsHits(t *testing.T) {
	e := newTestEngine(t)

	ctx := combat.AttackContext{
		AttackerLevel: 40, AttackerPower: 30, AttackerHitMod: 50, AttackerDmgMod: 10,
		TargetLevel: 1, TargetAC: -10, TargetMR: 0,
	}

	hits := 0
	for i := 0; i < 50; i++ {
		out := e.ResolveMelee(ctx)
		if out.IsHit {
			hits++
			assert.Greater(t, out.Damage, int32(0))
		}
	}
	assert.Greater(t, hits, 0, "expected at least some hits against a weak target")
}

func TestResolveRanged_ReturnsDamageOnHit(t *testing.T) {
	e := newTestEngine(t)

	ctx := combat.AttackContext{
		AttackerLevel: 20, AttackerPower: 15, AttackerHitMod: 30,
		TargetLevel: 1, TargetAC: -10,
	}
	out := e.ResolveRanged(ctx)
	if out.IsHit {
		assert.Greater(t, out.Damage, int32(0))
	} else {
		assert.Equal(t, int32(0), out.Damage)
	}
}

func TestResolveMelee_MissingFunctionFallsBackToSafeDefault(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	out := e.ResolveMelee(combat.AttackContext{})
	assert.True(t, out.IsHit)
	assert.Equal(t, int32(1), out.Damage)
}

func TestDecideNpc_HostileNpcAttacksPlayerInRoom(t *testing.T) {
	e := newTestEngine(t)

	player := &world.Entity{ID: ecs.EntityID(7), Kind: world.KindPlayer, Alive: true}
	p := npc.Perception{
		SelfEntityID: ecs.EntityID(1),
		HP:           50, MaxHP: 50,
		Hostile:      true,
		RoomEntities: []*world.Entity{player},
	}

	d, err := e.DecideNpc(p)
	require.NoError(t, err)
	assert.Equal(t, npc.DecisionAttackEntity, d.Kind)
	assert.Equal(t, player.ID, d.TargetEntityID)
}

func TestDecideNpc_CowardFleesBelowHealthThreshold(t *testing.T) {
	e := newTestEngine(t)

	p := npc.Perception{
		SelfEntityID: ecs.EntityID(1),
		HP:           5, MaxHP: 50,
		Behavior: "coward",
	}

	d, err := e.DecideNpc(p)
	require.NoError(t, err)
	assert.Equal(t, npc.DecisionFlee, d.Kind)
}

func TestDecideNpc_IdlesWithNoThreatsPresent(t *testing.T) {
	e := newTestEngine(t)

	p := npc.Perception{SelfEntityID: ecs.EntityID(1), HP: 50, MaxHP: 50}
	d, err := e.DecideNpc(p)
	require.NoError(t, err)
	assert.Equal(t, npc.DecisionIdle, d.Kind)
}

func TestDecideNpc_MissingFunctionReturnsError(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.DecideNpc(npc.Perception{})
	assert.Error(t, err)
}

func TestLevelFromExp_RoundTripsWithExpForLevel(t *testing.T) {
	e := newTestEngine(t)

	for level := 2; level <= 10; level++ {
		exp := e.ExpForLevel(level)
		require.GreaterOrEqual(t, e.LevelFromExp(exp), level-1)
	}
}

func TestLevelFromExp_ZeroExpIsLevelOne(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, 1, e.LevelFromExp(0))
}
