package world

import (
	"fmt"
	"strconv"
	"strings"
)

// RoomCoord is the parsed form of a world room id: "<shardId>:<x>,<y>".
// Non-world rooms (bare tokens like "lobby") have ok=false from ParseRoomID.
type RoomCoord struct {
	ShardID string
	X, Y    int32
}

// FormatRoomID renders a RoomCoord back to its wire/internal string form.
func FormatRoomID(c RoomCoord) string {
	return fmt.Sprintf("%s:%d,%d", c.ShardID, c.X, c.Y)
}

// ParseRoomID parses a world room id of the form "<shard>:<x>,<y>". A bare
// token with no colon (e.g. "lobby", "auth", "select_character") is a
// non-world room and returns ok=false.
func ParseRoomID(id string) (RoomCoord, bool) {
	shard, rest, found := strings.Cut(id, ":")
	if !found {
		return RoomCoord{}, false
	}
	xs, ys, found := strings.Cut(rest, ",")
	if !found {
		return RoomCoord{}, false
	}
	x, err := strconv.ParseInt(xs, 10, 32)
	if err != nil {
		return RoomCoord{}, false
	}
	y, err := strconv.ParseInt(ys, 10, 32)
	if err != nil {
		return RoomCoord{}, false
	}
	return RoomCoord{ShardID: shard, X: int32(x), Y: int32(y)}, true
}

// IsWorldRoom reports whether id parses as a world room (vs. a bare
// non-world token like "lobby").
func IsWorldRoom(id string) bool {
	_, ok := ParseRoomID(id)
	return ok
}

// ChebyshevRoomDistance computes the Chebyshev (king-move) distance between
// two world rooms on the same shard grid. Cross-shard rooms have no
// meaningful distance; callers should gate on ShardID equality first.
func ChebyshevRoomDistance(a, b RoomCoord) int32 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}

// StepRoomToward returns the room one Chebyshev step from `from` toward `to`,
// or `from` unchanged if they are already the same room or on different
// shards (cross-shard stepping is not defined).
func StepRoomToward(from, to RoomCoord) RoomCoord {
	if from.ShardID != to.ShardID {
		return from
	}
	next := from
	if to.X > from.X {
		next.X++
	} else if to.X < from.X {
		next.X--
	}
	if to.Y > from.Y {
		next.Y++
	} else if to.Y < from.Y {
		next.Y--
	}
	return next
}

// StepRoomAway returns the room one Chebyshev step from `from` directly
// away from `anchor` (used by fear flee).
func StepRoomAway(from, anchor RoomCoord) RoomCoord {
	if from.ShardID != anchor.ShardID {
		return from
	}
	next := from
	if anchor.X > from.X {
		next.X--
	} else if anchor.X < from.X {
		next.X++
	}
	if anchor.Y > from.Y {
		next.Y--
	} else if anchor.Y < from.Y {
		next.Y++
	}
	return next
}

// Room is a membership bucket: a world room (spawns bodies, broadcasts
// entity events) or a non-world UI room (lobby, auth, select_character).
type Room struct {
	ID      string
	World   bool
	Members map[uint64]struct{} // sessionID set
}

func NewRoom(id string) *Room {
	return &Room{ID: id, World: IsWorldRoom(id), Members: make(map[uint64]struct{})}
}
