package persist

import (
	"context"
	"time"
)

// CorpseRow mirrors death.Pipeline's in-memory corpseSchedule, persisted so a
// restart doesn't lose track of a pending delete/respawn timer pair.
type CorpseRow struct {
	EntityID     int64
	ProtoID      int32
	RoomID       string
	SpawnPointID int32
	DeleteAt     time.Time
	RespawnAt    time.Time
}

type CorpseRepo struct {
	db *DB
}

func NewCorpseRepo(db *DB) *CorpseRepo {
	return &CorpseRepo{db: db}
}

func (r *CorpseRepo) Upsert(ctx context.Context, c CorpseRow) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO corpses (entity_id, proto_id, room_id, spawn_point_id, delete_at, respawn_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (entity_id) DO UPDATE SET
			delete_at = EXCLUDED.delete_at, respawn_at = EXCLUDED.respawn_at`,
		c.EntityID, c.ProtoID, c.RoomID, c.SpawnPointID, c.DeleteAt, c.RespawnAt,
	)
	return err
}

func (r *CorpseRepo) Delete(ctx context.Context, entityID int64) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM corpses WHERE entity_id = $1`, entityID)
	return err
}

// LoadPending recovers every corpse schedule still outstanding at boot, so a
// restart mid-lifecycle resumes its delete/respawn timers instead of
// stranding the NPC's entity record forever.
func (r *CorpseRepo) LoadPending(ctx context.Context) ([]CorpseRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, proto_id, room_id, spawn_point_id, delete_at, respawn_at FROM corpses`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CorpseRow
	for rows.Next() {
		var c CorpseRow
		if err := rows.Scan(&c.EntityID, &c.ProtoID, &c.RoomID, &c.SpawnPointID, &c.DeleteAt, &c.RespawnAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
