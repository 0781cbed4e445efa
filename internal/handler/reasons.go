package handler

import "github.com/worldcore/server/internal/npc"

// ReasonCode is a stable, client-facing blocked-reason key (spec.md §7).
// Handlers send the code plus its rendered message so a thin client can
// localize by code while a dumb client just prints message.
type ReasonCode string

const (
	ReasonUnknownOp       ReasonCode = "unknown_op"
	ReasonNoCharacter     ReasonCode = "no_character"
	ReasonBadPayload      ReasonCode = "bad_payload"
	ReasonInternal        ReasonCode = "internal"
	ReasonRoomNotFound    ReasonCode = "room_not_found"
	ReasonNotFound        ReasonCode = "not_found"
	ReasonTargetStealth   ReasonCode = ReasonCode(npc.ReasonStealth)
	ReasonTargetOutOfRoom ReasonCode = ReasonCode(npc.ReasonOutOfRoom)
	ReasonTargetDead      ReasonCode = ReasonCode(npc.ReasonDead)
	ReasonTargetProtected ReasonCode = ReasonCode(npc.ReasonProtected)
)

// reasonText centralizes the mapping from reason code to a stable
// user-facing line, so no two handlers invent their own wording for the
// same rejection.
var reasonText = map[ReasonCode]string{
	ReasonUnknownOp:       "[world] It fails.",
	ReasonNoCharacter:     "[world] You must enter the world first.",
	ReasonBadPayload:      "[world] It fails.",
	ReasonInternal:        "[world] It fails.",
	ReasonRoomNotFound:    "[world] That place does not exist.",
	ReasonNotFound:        "[world] Target not found.",
	ReasonTargetStealth:   "[world] Target cannot be seen.",
	ReasonTargetOutOfRoom: "[world] Target is out of range.",
	ReasonTargetDead:      "[world] Target is dead.",
	ReasonTargetProtected: "[world] Target is immune.",
}

// Reason renders the stable message for a reason code. Unknown codes fall
// back to the generic failure line rather than leaking the raw code to
// players.
func Reason(code ReasonCode) string {
	if msg, ok := reasonText[code]; ok {
		return msg
	}
	return reasonText[ReasonInternal]
}

// FromEngageReason maps an Engage State Law rejection onto its client
// reason code.
func FromEngageReason(r npc.EngageReason) ReasonCode {
	return ReasonCode(r)
}
