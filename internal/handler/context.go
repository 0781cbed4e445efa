package handler

import (
	"go.uber.org/zap"

	"github.com/worldcore/server/internal/combat"
	"github.com/worldcore/server/internal/respawn"
	"github.com/worldcore/server/internal/world"
)

// Context bundles the components handlers dispatch into. It is built once
// at bootstrap and shared by every session's dispatch call; handlers never
// hold their own references to these stores.
type Context struct {
	Entities *world.EntityRegistry
	Rooms    *world.RoomTable
	Sessions *world.SessionTable
	Combat   *combat.Pipeline
	Respawn  *respawn.Service
	Log      *zap.Logger
}
