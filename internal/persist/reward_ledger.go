package persist

import (
	"context"
	"encoding/json"

	"github.com/worldcore/server/internal/data"
)

// LedgerEntry is one write-ahead record for a reward the death pipeline
// handed to the background worker pool but which has not yet been
// confirmed delivered.
type LedgerEntry struct {
	ID             int64
	PlayerEntityID int64
	Kind           string // "xp" | "loot"
	XPAmount       int32
	ProtoID        int32
	Loot           []data.LootEntry
}

// RewardLedgerRepo is the teacher's economic WAL (persist/wal.go) narrowed to
// this domain's single concern: recovering a reward grant that crashed
// between being queued and being confirmed delivered.
type RewardLedgerRepo struct {
	db *DB
}

func NewRewardLedgerRepo(db *DB) *RewardLedgerRepo {
	return &RewardLedgerRepo{db: db}
}

// WriteXP records a pending XP grant before the bgwork task that applies it
// runs, so a crash mid-delivery is recoverable on next boot.
func (r *RewardLedgerRepo) WriteXP(ctx context.Context, playerEntityID int64, amount int32) (int64, error) {
	var id int64
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO reward_ledger (player_entity_id, kind, xp_amount) VALUES ($1, 'xp', $2) RETURNING id`,
		playerEntityID, amount,
	).Scan(&id)
	return id, err
}

// WriteLoot records a pending loot grant before delivery.
func (r *RewardLedgerRepo) WriteLoot(ctx context.Context, playerEntityID int64, protoID int32, loot []data.LootEntry) (int64, error) {
	raw, err := json.Marshal(loot)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.Pool.QueryRow(ctx,
		`INSERT INTO reward_ledger (player_entity_id, kind, proto_id, loot_json) VALUES ($1, 'loot', $2, $3) RETURNING id`,
		playerEntityID, protoID, raw,
	).Scan(&id)
	return id, err
}

// MarkProcessed clears a ledger entry once its reward has been confirmed
// applied.
func (r *RewardLedgerRepo) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE reward_ledger SET processed = TRUE WHERE id = $1`, id)
	return err
}

// RecoverPending loads every unprocessed entry, called once at boot before
// the tick loop starts so a crash between ledger-write and confirm doesn't
// silently drop the reward.
func (r *RewardLedgerRepo) RecoverPending(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, player_entity_id, kind, xp_amount, proto_id, loot_json
		 FROM reward_ledger WHERE processed = FALSE ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var rawLoot []byte
		if err := rows.Scan(&e.ID, &e.PlayerEntityID, &e.Kind, &e.XPAmount, &e.ProtoID, &rawLoot); err != nil {
			return nil, err
		}
		if len(rawLoot) > 0 {
			if err := json.Unmarshal(rawLoot, &e.Loot); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
