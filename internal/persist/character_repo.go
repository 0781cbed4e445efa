package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// CharacterRow is the full persisted shape behind world.Character.
type CharacterRow struct {
	ID          int32
	AccountName string
	Name        string
	ShardID     string
	ClassID     int32
	Level       int32
	XP          int64
	HP, MaxHP   int32
	X, Y, Z     float64
	RotY        float64

	LastRegionID string

	RecentCrimeUntil    *time.Time
	RecentCrimeSeverity string

	DeletedAt *time.Time
}

// CharacterRepo persists the player profile the world core reads at
// enterworld and writes back on position/vitals change and on logout.
type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

func (r *CharacterRepo) LoadByName(ctx context.Context, name string) (*CharacterRow, error) {
	c := &CharacterRow{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, account_name, name, shard_id, class_id, level, xp, hp, max_hp,
		        x, y, z, rot_y, last_region_id,
		        recent_crime_until, recent_crime_severity, deleted_at
		 FROM characters WHERE name = $1 AND deleted_at IS NULL`, name,
	).Scan(
		&c.ID, &c.AccountName, &c.Name, &c.ShardID, &c.ClassID, &c.Level, &c.XP, &c.HP, &c.MaxHP,
		&c.X, &c.Y, &c.Z, &c.RotY, &c.LastRegionID,
		&c.RecentCrimeUntil, &c.RecentCrimeSeverity, &c.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRow) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO characters (
			account_name, name, shard_id, class_id, level, xp, hp, max_hp,
			x, y, z, rot_y, last_region_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		c.AccountName, c.Name, c.ShardID, c.ClassID, c.Level, c.XP, c.HP, c.MaxHP,
		c.X, c.Y, c.Z, c.RotY, c.LastRegionID,
	).Scan(&c.ID)
}

// SavePose updates only position/facing — the hot path called on room
// transition and periodic tick-driven autosave.
func (r *CharacterRepo) SavePose(ctx context.Context, name string, x, y, z, rotY float64, regionID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET x = $1, y = $2, z = $3, rot_y = $4, last_region_id = $5 WHERE name = $6`,
		x, y, z, rotY, regionID, name,
	)
	return err
}

// SaveVitals persists HP/MaxHP so a reconnect resumes at the last known
// health rather than a full heal (respawn already heals separately).
func (r *CharacterRepo) SaveVitals(ctx context.Context, name string, hp, maxHP int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET hp = $1, max_hp = $2 WHERE name = $3`,
		hp, maxHP, name,
	)
	return err
}

// GrantXP adds to the character's stored XP total.
func (r *CharacterRepo) GrantXP(ctx context.Context, name string, amount int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET xp = xp + $1 WHERE name = $2`,
		amount, name,
	)
	return err
}

func (r *CharacterRepo) SetLevel(ctx context.Context, name string, level int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET level = $1 WHERE name = $2`,
		level, name,
	)
	return err
}

func (r *CharacterRepo) RecordCrime(ctx context.Context, name string, until time.Time, severity string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET recent_crime_until = $1, recent_crime_severity = $2 WHERE name = $3`,
		until, severity, name,
	)
	return err
}

func (r *CharacterRepo) SoftDelete(ctx context.Context, name string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET deleted_at = NOW() WHERE name = $1 AND deleted_at IS NULL`,
		name,
	)
	return err
}
