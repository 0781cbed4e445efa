// Package scripting wraps a single gopher-lua VM for the data-driven halves
// of the simulation: melee/ranged damage resolution and scripted monster AI.
// Grounded on the teacher's internal/scripting/engine.go Engine/NewEngine/
// CalcMeleeAttack/RunNpcAI, narrowed to this domain's combat.Resolver and
// npc.Brain contracts.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/worldcore/server/internal/combat"
	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/npc"
)

// Engine wraps a single gopher-lua VM for game logic execution.
// Single-goroutine access only (tick loop). Hot-reload planned via atomic swap.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory's "core", "combat", and "ai" subdirectories.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "combat", "ai"} {
		if err := e.loadDir(filepath.Join(scriptsDir, sub)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// --- Combat resolution bridge (implements combat.Resolver) ---

func attackContextTable(vm *lua.LState, ctx combat.AttackContext) *lua.LTable {
	t := vm.NewTable()

	atk := vm.NewTable()
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	atk.RawSetString("power", lua.LNumber(ctx.AttackerPower))
	atk.RawSetString("hit_mod", lua.LNumber(ctx.AttackerHitMod))
	atk.RawSetString("dmg_mod", lua.LNumber(ctx.AttackerDmgMod))
	t.RawSetString("attacker", atk)

	tgt := vm.NewTable()
	tgt.RawSetString("level", lua.LNumber(ctx.TargetLevel))
	tgt.RawSetString("ac", lua.LNumber(ctx.TargetAC))
	tgt.RawSetString("mr", lua.LNumber(ctx.TargetMR))
	t.RawSetString("target", tgt)

	t.RawSetString("school", lua.LString(ctx.School))
	return t
}

func (e *Engine) resolveAttack(fnName string, ctx combat.AttackContext) combat.AttackOutcome {
	fn := e.vm.GetGlobal(fnName)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("func", fnName))
		return combat.AttackOutcome{IsHit: true, Damage: 1}
	}

	t := attackContextTable(e.vm, ctx)
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, t); err != nil {
		e.log.Error("lua attack resolution error", zap.String("func", fnName), zap.Error(err))
		return combat.AttackOutcome{IsHit: true, Damage: 1}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua attack resolution returned non-table", zap.String("func", fnName))
		return combat.AttackOutcome{IsHit: true, Damage: 1}
	}
	return combat.AttackOutcome{
		IsHit:  rt.RawGetString("is_hit") == lua.LTrue,
		Damage: int32(lua.LVAsNumber(rt.RawGetString("damage"))),
	}
}

// ResolveMelee implements combat.Resolver by calling Lua calc_melee_attack.
func (e *Engine) ResolveMelee(ctx combat.AttackContext) combat.AttackOutcome {
	return e.resolveAttack("calc_melee_attack", ctx)
}

// ResolveRanged implements combat.Resolver by calling Lua calc_ranged_attack.
func (e *Engine) ResolveRanged(ctx combat.AttackContext) combat.AttackOutcome {
	return e.resolveAttack("calc_ranged_attack", ctx)
}

// --- NPC AI bridge (adapts to npc.ScriptedBrain.DecideFunc) ---

// DecideNpc calls Lua npc_ai(ctx) and parses its single returned decision
// table into an npc.Decision. Matches the npc.Brain.Decide contract modulo
// the error return ScriptedBrain uses to trigger its Go fallback.
func (e *Engine) DecideNpc(p npc.Perception) (npc.Decision, error) {
	fn := e.vm.GetGlobal("npc_ai")
	if fn == lua.LNil {
		return npc.Decision{}, fmt.Errorf("lua function npc_ai not found")
	}

	t := e.vm.NewTable()
	t.RawSetString("self_entity_id", lua.LNumber(p.SelfEntityID))
	t.RawSetString("room_id", lua.LString(p.RoomID))
	t.RawSetString("hp", lua.LNumber(p.HP))
	t.RawSetString("max_hp", lua.LNumber(p.MaxHP))
	t.RawSetString("behavior", lua.LString(p.Behavior))
	t.RawSetString("hostile", lua.LBool(p.Hostile))
	t.RawSetString("room_is_safe_hub", lua.LBool(p.RoomIsSafeHub))

	tagsTbl := e.vm.NewTable()
	for i, tag := range p.Tags {
		tagsTbl.RawSetInt(i+1, lua.LString(tag))
	}
	t.RawSetString("tags", tagsTbl)

	roomEntitiesTbl := e.vm.NewTable()
	for i, re := range p.RoomEntities {
		row := e.vm.NewTable()
		row.RawSetString("entity_id", lua.LNumber(re.ID))
		row.RawSetString("kind", lua.LString(re.Kind.String()))
		row.RawSetString("alive", lua.LBool(re.Alive))
		roomEntitiesTbl.RawSetInt(i+1, row)
	}
	t.RawSetString("room_entities", roomEntitiesTbl)

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, t); err != nil {
		e.log.Error("lua npc_ai error", zap.Uint64("entity", uint64(p.SelfEntityID)), zap.Error(err))
		return npc.Decision{}, err
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return npc.Decision{}, fmt.Errorf("lua npc_ai returned non-table")
	}

	kind := npc.DecisionKind(lStr(rt, "kind"))
	switch kind {
	case npc.DecisionAttackEntity, npc.DecisionSay, npc.DecisionFlee, npc.DecisionMoveToRoom, npc.DecisionIdle:
	default:
		return npc.Decision{}, fmt.Errorf("lua npc_ai returned unknown decision kind %q", kind)
	}

	return npc.Decision{
		Kind:           kind,
		TargetEntityID: entityIDFromLua(rt.RawGetString("target_entity_id")),
		Utterance:      lStr(rt, "utterance"),
		DestRoomID:     lStr(rt, "dest_room_id"),
	}, nil
}

// --- Progression bridge ---

// LevelFromExp calls Lua level_from_exp(exp).
func (e *Engine) LevelFromExp(exp int) int {
	return e.callIntFunc("level_from_exp", exp)
}

// ExpForLevel calls Lua exp_for_level(level).
func (e *Engine) ExpForLevel(level int) int {
	return e.callIntFunc("exp_for_level", level)
}

// --- Lua helpers ---

func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

func entityIDFromLua(v lua.LValue) ecs.EntityID {
	return ecs.EntityID(lua.LVAsNumber(v))
}

func (e *Engine) callIntFunc(name string, args ...int) int {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return 0
	}
	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return 0
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return int(lua.LVAsNumber(result))
}
