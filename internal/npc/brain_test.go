package npc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/data"
)

func TestFallbackBrain_CowardFleesBelowThreshold(t *testing.T) {
	b := FallbackBrain{FleeThreshold: 0.3}
	p := Perception{SelfEntityID: ecs.EntityID(1), Behavior: data.BehaviorCoward, HP: 10, MaxHP: 100}
	d := b.Decide(p)
	assert.Equal(t, DecisionFlee, d.Kind)
}

func TestFallbackBrain_CowardFightsAboveThreshold(t *testing.T) {
	b := FallbackBrain{
		FleeThreshold: 0.3,
		Target:        func(ecs.EntityID) (ecs.EntityID, bool) { return ecs.EntityID(42), true },
	}
	p := Perception{SelfEntityID: ecs.EntityID(1), Behavior: data.BehaviorCoward, HP: 80, MaxHP: 100}
	d := b.Decide(p)
	assert.Equal(t, DecisionAttackEntity, d.Kind)
	assert.Equal(t, ecs.EntityID(42), d.TargetEntityID)
}

func TestFallbackBrain_AttacksWhenTargetResolved(t *testing.T) {
	b := FallbackBrain{
		Target: func(ecs.EntityID) (ecs.EntityID, bool) { return ecs.EntityID(7), true },
	}
	p := Perception{SelfEntityID: ecs.EntityID(1), Behavior: data.BehaviorAggressive, HP: 10, MaxHP: 10}
	d := b.Decide(p)
	assert.Equal(t, DecisionAttackEntity, d.Kind)
	assert.Equal(t, ecs.EntityID(7), d.TargetEntityID)
}

func TestFallbackBrain_IdlesWithNoTarget(t *testing.T) {
	b := FallbackBrain{
		Target: func(ecs.EntityID) (ecs.EntityID, bool) { return 0, false },
	}
	p := Perception{SelfEntityID: ecs.EntityID(1), Behavior: data.BehaviorGuard, HP: 10, MaxHP: 10}
	d := b.Decide(p)
	assert.Equal(t, DecisionIdle, d.Kind)
}

func TestFallbackBrain_DefaultsFleeThresholdWhenUnset(t *testing.T) {
	b := FallbackBrain{}
	p := Perception{Behavior: data.BehaviorCoward, HP: 20, MaxHP: 100} // 0.2 <= default 0.25
	d := b.Decide(p)
	assert.Equal(t, DecisionFlee, d.Kind)
}

func TestScriptedBrain_UsesScriptResultOnSuccess(t *testing.T) {
	b := ScriptedBrain{
		DecideFunc: func(Perception) (Decision, error) {
			return Decision{Kind: DecisionSay, Utterance: "hello"}, nil
		},
	}
	d := b.Decide(Perception{})
	assert.Equal(t, DecisionSay, d.Kind)
	assert.Equal(t, "hello", d.Utterance)
}

func TestScriptedBrain_FallsBackOnScriptError(t *testing.T) {
	fallbackCalled := false
	b := ScriptedBrain{
		DecideFunc: func(Perception) (Decision, error) {
			return Decision{}, errors.New("script blew up")
		},
		Fallback: fallbackFunc(func(Perception) Decision {
			fallbackCalled = true
			return Decision{Kind: DecisionIdle}
		}),
	}
	d := b.Decide(Perception{})
	assert.True(t, fallbackCalled)
	assert.Equal(t, DecisionIdle, d.Kind)
}

func TestScriptedBrain_IdlesWithNoFallbackAndNoScript(t *testing.T) {
	b := ScriptedBrain{}
	d := b.Decide(Perception{})
	assert.Equal(t, DecisionIdle, d.Kind)
}

// fallbackFunc adapts a plain function to the Brain interface for tests.
type fallbackFunc func(Perception) Decision

func (f fallbackFunc) Decide(p Perception) Decision { return f(p) }
