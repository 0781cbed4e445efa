package npc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/worldcore/server/internal/core/ecs"
)

func TestUpdateThreatFromDamage_TracksLastAttacker(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)

	UpdateThreatFromDamage(table, ecs.EntityID(1), 10, now)
	UpdateThreatFromDamage(table, ecs.EntityID(2), 3, now.Add(time.Second))

	assert.Equal(t, ecs.EntityID(2), table.LastAttackerEntityID)
	assert.Equal(t, float64(10), table.Threat[ecs.EntityID(1)])
	assert.Equal(t, float64(3), table.Threat[ecs.EntityID(2)])
}

func TestUpdateThreatFromDamage_FloorsAtOne(t *testing.T) {
	table := NewThreatTable()
	UpdateThreatFromDamage(table, ecs.EntityID(1), 0, time.Now())
	assert.Equal(t, float64(1), table.Threat[ecs.EntityID(1)])
}

func TestApplyTaunt_RejectsDifferentTaunterWithinImmunityWindow(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)

	ok := ApplyTaunt(table, ecs.EntityID(1), TauntOpts{Now: now, Duration: 5 * time.Second, ImmunityWindow: 3 * time.Second})
	assert.True(t, ok)
	assert.Equal(t, ecs.EntityID(1), table.ForcedTargetEntityID)

	ok = ApplyTaunt(table, ecs.EntityID(2), TauntOpts{Now: now.Add(time.Second), Duration: 5 * time.Second, ImmunityWindow: 3 * time.Second})
	assert.False(t, ok)
	assert.Equal(t, ecs.EntityID(1), table.ForcedTargetEntityID)
}

func TestApplyTaunt_SameTaunterAlwaysRefreshes(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)
	ApplyTaunt(table, ecs.EntityID(1), TauntOpts{Now: now, Duration: 5 * time.Second, ImmunityWindow: 3 * time.Second})
	ok := ApplyTaunt(table, ecs.EntityID(1), TauntOpts{Now: now.Add(time.Second), Duration: 5 * time.Second, ImmunityWindow: 3 * time.Second})
	assert.True(t, ok)
}

func TestApplyTaunt_AllowsDifferentTaunterAfterImmunityWindow(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)
	ApplyTaunt(table, ecs.EntityID(1), TauntOpts{Now: now, Duration: 2 * time.Second, ImmunityWindow: 3 * time.Second})
	ok := ApplyTaunt(table, ecs.EntityID(2), TauntOpts{Now: now.Add(4 * time.Second), Duration: 2 * time.Second, ImmunityWindow: 3 * time.Second})
	assert.True(t, ok)
	assert.Equal(t, ecs.EntityID(2), table.ForcedTargetEntityID)
}

func TestDecayThreat_RemovesInvalidatedTargets(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)
	UpdateThreatFromDamage(table, ecs.EntityID(1), 10, now)
	UpdateThreatFromDamage(table, ecs.EntityID(2), 10, now)

	DecayThreat(table, DecayOpts{
		Now: now.Add(time.Second),
		DT:  time.Second,
		ValidateTarget: func(id ecs.EntityID) bool {
			return id != ecs.EntityID(2)
		},
	})

	_, stillThere := table.Threat[ecs.EntityID(2)]
	assert.False(t, stillThere)
	_, stillThere = table.Threat[ecs.EntityID(1)]
	assert.True(t, stillThere)
}

func TestDecayThreat_TankDecaysSlowerThanNonTank(t *testing.T) {
	tankTable := NewThreatTable()
	dpsTable := NewThreatTable()
	now := time.Unix(1000, 0)
	UpdateThreatFromDamage(tankTable, ecs.EntityID(1), 100, now)
	UpdateThreatFromDamage(dpsTable, ecs.EntityID(1), 100, now)

	opts := DecayOpts{
		Now:            now.Add(10 * time.Second),
		DT:             10 * time.Second,
		ValidateTarget: func(ecs.EntityID) bool { return true },
	}
	tankOpts := opts
	tankOpts.GetRoleForEntity = func(ecs.EntityID) string { return "tank" }
	DecayThreat(tankTable, tankOpts)
	DecayThreat(dpsTable, opts)

	assert.Greater(t, tankTable.Threat[ecs.EntityID(1)], dpsTable.Threat[ecs.EntityID(1)])
}

func TestSelectThreatTarget_PrefersForcedTargetWhileValid(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)
	UpdateThreatFromDamage(table, ecs.EntityID(1), 100, now)
	ApplyTaunt(table, ecs.EntityID(2), TauntOpts{Now: now, Duration: 5 * time.Second})

	id, ok := SelectThreatTarget(table, now.Add(time.Second), nil)
	assert.True(t, ok)
	assert.Equal(t, ecs.EntityID(2), id)
}

func TestSelectThreatTarget_FallsBackToHighestThreatAfterTauntExpires(t *testing.T) {
	table := NewThreatTable()
	now := time.Unix(1000, 0)
	UpdateThreatFromDamage(table, ecs.EntityID(1), 100, now)
	ApplyTaunt(table, ecs.EntityID(2), TauntOpts{Now: now, Duration: time.Second})

	id, ok := SelectThreatTarget(table, now.Add(5*time.Second), nil)
	assert.True(t, ok)
	assert.Equal(t, ecs.EntityID(1), id)
}

func TestSelectThreatTarget_EmptyTableReturnsFalse(t *testing.T) {
	table := NewThreatTable()
	_, ok := SelectThreatTarget(table, time.Now(), nil)
	assert.False(t, ok)
}
