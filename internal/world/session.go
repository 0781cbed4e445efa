package world

import (
	"time"

	"github.com/worldcore/server/internal/core/ecs"
)

// SocketHandle is the minimal surface SessionTable needs to deliver a typed
// message. The concrete net.Session satisfies this; tests use a fake.
type SocketHandle interface {
	SendEnvelope(op string, payload any)
}

// Character is the subset of the persisted player profile the core reads
// when seeding a world pose and the subset RespawnService/DeathPipeline
// mutate. Full shape: internal/persist.CharacterRow.
type Character struct {
	ID           int32
	Name         string
	ShardID      string
	ClassID      int32
	Level        int32
	XP           int64
	X, Y, Z      float64
	RotY         float64
	LastRegionID string

	RecentCrimeUntil    time.Time
	RecentCrimeSeverity string // "none" | "minor" | "severe"
}

// Session is a connected client. Lifecycle: created on connect; removed on
// disconnect or idle-timeout, which implies leaving all rooms and
// despawning owned personal nodes and the player entity.
type Session struct {
	ID          uint64
	DisplayName string
	Socket      SocketHandle
	RoomID      string // may be a non-world "lobby" bucket
	LastSeenAt  time.Time

	IdentityID string // optional, set by the external AuthenticationService

	Character *Character // optional, attached on enterworld

	PlayerEntityID ecs.EntityID // zero if no player entity yet
}

func (s *Session) Send(op string, payload any) {
	if s.Socket == nil {
		return
	}
	s.Socket.SendEnvelope(op, payload)
}
