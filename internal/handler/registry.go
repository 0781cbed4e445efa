// Package handler dispatches incoming client envelopes (spec.md §6) to the
// component that owns the response: RoomTable for join/leave/list, the ECS
// registry for movement and lookups, CombatPipeline for cast, NPCManager for
// target validation. Handlers never block the tick and never panic it.
package handler

import (
	"encoding/json"
	"fmt"

	"github.com/worldcore/server/internal/world"
	"go.uber.org/zap"
)

// Func handles one decoded client envelope for a connected session. nonce is
// the envelope's optional correlation id, echoed back by handlers like ping
// that reply in kind.
type Func func(ctx *Context, sess *world.Session, payload json.RawMessage, nonce string)

type entry struct {
	fn                Func
	requiresCharacter bool
}

// Registry maps client opcodes to handlers.
type Registry struct {
	handlers map[string]*entry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{handlers: make(map[string]*entry), log: log}
}

// Register maps an op to a handler. requiresCharacter gates ops that need
// an attached Character (world gameplay) versus lobby-safe ops
// (hello, list_rooms, ping).
func (r *Registry) Register(op string, requiresCharacter bool, fn Func) {
	r.handlers[op] = &entry{fn: fn, requiresCharacter: requiresCharacter}
}

// Dispatch looks up the handler for env.Op, checks the character-attached
// gate, and calls it with panic recovery so one bad client payload never
// takes down the tick loop.
func (r *Registry) Dispatch(ctx *Context, sess *world.Session, op string, payload json.RawMessage, nonce string) {
	e, ok := r.handlers[op]
	if !ok {
		if r.log != nil {
			r.log.Debug("unknown op", zap.String("op", op), zap.Uint64("session", sess.ID))
		}
		sendError(sess, ReasonUnknownOp)
		return
	}

	if e.requiresCharacter && sess.Character == nil {
		sendError(sess, ReasonNoCharacter)
		return
	}

	r.safeCall(e.fn, ctx, sess, op, payload, nonce)
}

func (r *Registry) safeCall(fn Func, ctx *Context, sess *world.Session, op string, payload json.RawMessage, nonce string) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.log != nil {
				r.log.Error("handler panic recovered",
					zap.String("op", op),
					zap.Uint64("session", sess.ID),
					zap.Any("panic", rec),
				)
			}
			sendError(sess, ReasonInternal)
		}
	}()
	fn(ctx, sess, payload, nonce)
}

func sendError(sess *world.Session, code ReasonCode) {
	sess.Send("error", map[string]string{"reason": string(code), "message": Reason(code)})
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(payload, v)
}
