package world

import "github.com/worldcore/server/internal/core/ecs"

// Kind tags the variant of an Entity. Tagged variants replace the teacher
// corpus's occasional dynamic-duck-typing pattern (spec.md §9) — optional
// fields below are only meaningful for the kinds that document them.
type Kind int

const (
	KindPlayer Kind = iota
	KindNPC
	KindNode // resource
	KindPet
	KindObject
	KindMailbox
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	case KindNode:
		return "node"
	case KindPet:
		return "pet"
	case KindObject:
		return "object"
	case KindMailbox:
		return "mailbox"
	default:
		return "unknown"
	}
}

// Pose is a mutable position + facing.
type Pose struct {
	X, Y, Z float64
	RotY    float64
}

// Entity is the single denormalized record spec.md §3 describes. Ownership:
// EntityRegistry exclusively writes this store.
type Entity struct {
	ID   ecs.EntityID
	Kind Kind

	RoomID string

	// OwnerSessionID is set for players and personal nodes (0 = none).
	OwnerSessionID uint64
	// OwnerEntityID is set for pets (zero value = none).
	OwnerEntityID ecs.EntityID

	Pose Pose

	// SpawnHome is set at creation and never mutated by movement.
	SpawnHome Pose

	HP, MaxHP int32
	Alive     bool

	Name  string
	Model string

	// Optional catalog linkage.
	ProtoID      int32
	SpawnPointID int32
	SpawnID      string
	RegionID     string

	Invulnerable     bool
	IsServiceNPC     bool
	ResourcePrototype bool // true when ProtoID resolves to a resource prototype

	// StatusEffects live on the entity they affect — no back-pointer.
	StatusEffects []StatusEffectInstance
}

// IsResourceSpawn reports whether this entity's prototype is a resource —
// resource prototypes must never spawn via the shared NPC pipeline, even if
// a spawn point's type field says "npc" (spec.md §4.6 hard rule).
func (e *Entity) IsResourceSpawn() bool { return e.ResourcePrototype }
