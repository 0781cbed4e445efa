package handler

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/worldcore/server/internal/combat"
	"github.com/worldcore/server/internal/core/ecs"
	"github.com/worldcore/server/internal/npc"
	"github.com/worldcore/server/internal/world"
)

// NewDefaultRegistry wires every client opcode spec.md §6 names to a
// handler. Gameplay ops (move, set_target, cast, whereami, object_request)
// and admin require an attached Character; lobby ops and chat do not.
func NewDefaultRegistry(log *zap.Logger) *Registry {
	reg := NewRegistry(log)

	reg.Register("hello", false, handleHello)
	reg.Register("join_room", false, handleJoinRoom)
	reg.Register("leave_room", false, handleLeaveRoom)
	reg.Register("list_rooms", false, handleListRooms)
	reg.Register("ping", false, handlePing)
	reg.Register("heartbeat", false, handleHeartbeat)
	reg.Register("chat", false, handleChat)
	reg.Register("whereami", true, handleWhereAmI)
	reg.Register("move", true, handleMove)
	reg.Register("set_target", true, handleSetTarget)
	reg.Register("cast", true, handleCast)
	reg.Register("object_request", true, handleObjectRequest)
	reg.Register("terrain_request", false, handleTerrainRequest)
	reg.Register("admin", true, handleAdmin)

	return reg
}

type helloPayload struct {
	Name string `json:"name"`
}

func handleHello(ctx *Context, sess *world.Session, payload json.RawMessage, nonce string) {
	var p helloPayload
	if err := decode(payload, &p); err == nil && p.Name != "" {
		sess.DisplayName = p.Name
	}
	sess.Send("hello_ack", struct {
		SessionID uint64 `json:"sessionId"`
		Nonce     string `json:"nonce,omitempty"`
	}{SessionID: sess.ID, Nonce: nonce})
}

type joinRoomPayload struct {
	RoomID string `json:"roomId"`
}

func handleJoinRoom(ctx *Context, sess *world.Session, payload json.RawMessage, _ string) {
	var p joinRoomPayload
	if err := decode(payload, &p); err != nil || p.RoomID == "" {
		sendError(sess, ReasonBadPayload)
		return
	}
	// spec.md's client opcode list has no dedicated respawn op: a dead
	// player's next join_room (the client's "return to settlement" action)
	// doubles as the respawn trigger.
	if ctx.Respawn != nil && sess.Character != nil && sess.PlayerEntityID != 0 {
		if e, ok := ctx.Entities.Get(sess.PlayerEntityID); ok && !e.Alive {
			ctx.Respawn.Restart(sess.PlayerEntityID, sess.Character.ShardID, sess.Character.LastRegionID, time.Now())
		}
	}
	ctx.Rooms.Join(sess, p.RoomID)
	sess.Send("room_joined", struct {
		RoomID string `json:"roomId"`
	}{RoomID: p.RoomID})
}

func handleLeaveRoom(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	roomID := sess.RoomID
	ctx.Rooms.Leave(sess)
	sess.Send("room_left", struct {
		RoomID string `json:"roomId"`
	}{RoomID: roomID})
}

func handleListRooms(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	sess.Send("room_list", struct {
		CurrentRoomID string `json:"currentRoomId"`
	}{CurrentRoomID: sess.RoomID})
}

func handlePing(ctx *Context, sess *world.Session, _ json.RawMessage, nonce string) {
	sess.Send("pong", struct {
		Nonce string `json:"nonce,omitempty"`
	}{Nonce: nonce})
}

func handleHeartbeat(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	if ctx.Sessions != nil {
		ctx.Sessions.Touch(sess.ID, time.Now())
	}
}

type chatPayload struct {
	Text string `json:"text"`
}

func handleChat(ctx *Context, sess *world.Session, payload json.RawMessage, _ string) {
	var p chatPayload
	if err := decode(payload, &p); err != nil || p.Text == "" {
		sendError(sess, ReasonBadPayload)
		return
	}
	ctx.Rooms.Broadcast(sess.RoomID, "chat", struct {
		SessionID uint64 `json:"sessionId"`
		Name      string `json:"name"`
		Text      string `json:"text"`
	}{SessionID: sess.ID, Name: sess.DisplayName, Text: p.Text})
}

func handleWhereAmI(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	e, ok := ctx.Entities.Get(sess.PlayerEntityID)
	if !ok {
		sendError(sess, ReasonNotFound)
		return
	}
	sess.Send("whereami_result", struct {
		RoomID string  `json:"roomId"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Z      float64 `json:"z"`
	}{RoomID: e.RoomID, X: e.Pose.X, Y: e.Pose.Y, Z: e.Pose.Z})
}

type movePayload struct {
	X, Y, Z, RotY float64
}

func handleMove(ctx *Context, sess *world.Session, payload json.RawMessage, _ string) {
	var p movePayload
	if err := decode(payload, &p); err != nil {
		sendError(sess, ReasonBadPayload)
		return
	}
	ctx.Entities.SetPosition(sess.PlayerEntityID, p.X, p.Y, p.Z)
	ctx.Rooms.BroadcastExcept(sess.RoomID, sess.ID, "entity_update", struct {
		ID uint64  `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
		Z  float64 `json:"z"`
	}{ID: uint64(sess.PlayerEntityID), X: p.X, Y: p.Y, Z: p.Z})
}

type setTargetPayload struct {
	TargetID uint64 `json:"targetId"`
}

func handleSetTarget(ctx *Context, sess *world.Session, payload json.RawMessage, _ string) {
	var p setTargetPayload
	if err := decode(payload, &p); err != nil {
		sendError(sess, ReasonBadPayload)
		return
	}
	target, ok := ctx.Entities.Get(ecs.EntityID(p.TargetID))
	if !ok {
		sendError(sess, ReasonNotFound)
		return
	}
	result := npc.IsValidCombatTarget(npc.EngageQuery{
		Now:             time.Now(),
		Attacker:        sess.PlayerEntityID,
		Target:          target,
		AttackerRoomID:  sess.RoomID,
		TargetStealthed: isStealthed(target),
	})
	if !result.OK {
		sendError(sess, FromEngageReason(result.Reason))
		return
	}
	sess.Send("target_set", struct {
		TargetID uint64 `json:"targetId"`
	}{TargetID: p.TargetID})
}

type castPayload struct {
	TargetID uint64 `json:"targetId"`
	School   string `json:"school"`
	Melee    bool   `json:"melee"`
}

func handleCast(ctx *Context, sess *world.Session, payload json.RawMessage, _ string) {
	var p castPayload
	if err := decode(payload, &p); err != nil {
		sendError(sess, ReasonBadPayload)
		return
	}
	target, ok := ctx.Entities.Get(ecs.EntityID(p.TargetID))
	if !ok {
		sendError(sess, ReasonNotFound)
		return
	}
	result := npc.IsValidCombatTarget(npc.EngageQuery{
		Now:             time.Now(),
		Attacker:        sess.PlayerEntityID,
		Target:          target,
		AttackerRoomID:  sess.RoomID,
		TargetStealthed: isStealthed(target),
	})
	if !result.OK {
		sendError(sess, FromEngageReason(result.Reason))
		return
	}

	if ctx.Combat == nil {
		sendError(sess, ReasonInternal)
		return
	}
	atkCtx := combat.AttackContext{
		AttackerLevel: int(sess.Character.Level),
		School:        p.School,
	}
	dmg := ctx.Combat.DamageToNpc(sess.PlayerEntityID, ecs.EntityID(p.TargetID), atkCtx, p.Melee)
	sess.Send("ability_cast", struct {
		TargetID uint64 `json:"targetId"`
		Hit      bool   `json:"hit"`
		Damage   int32  `json:"damage"`
		Killed   bool   `json:"killed"`
	}{TargetID: p.TargetID, Hit: dmg.Hit, Damage: dmg.Applied, Killed: dmg.Killed})
}

// handleObjectRequest answers queries for static/placed world objects. No
// object catalog is wired in this core (ItemService is an external
// collaborator per spec.md's Non-goals), so this replies not-found rather
// than silently dropping the request.
func handleObjectRequest(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	sendError(sess, ReasonNotFound)
}

// handleTerrainRequest is a stub: terrain/heightmap sampling is an explicit
// Non-goal (external collaborator). The handler still answers so clients
// don't hang waiting for a terrain opcode that will never come.
func handleTerrainRequest(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	sess.Send("terrain", struct {
		Supported bool `json:"supported"`
	}{Supported: false})
}

// handleAdmin is intentionally minimal: the full web admin UI (auth,
// content editing) is an explicit Non-goal. This only acknowledges receipt
// so an operator console built against the spec's opcode list doesn't see
// unknown_op for a documented client opcode.
func handleAdmin(ctx *Context, sess *world.Session, _ json.RawMessage, _ string) {
	sess.Send("action_result", struct {
		OK      bool   `json:"ok"`
		Message string `json:"message"`
	}{OK: false, Message: "[world] Admin console is not available here."})
}

func isStealthed(e *world.Entity) bool {
	for _, eff := range e.StatusEffects {
		if eff.HasTag("stealth") {
			return true
		}
	}
	return false
}
