package persist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/worldcore/server/internal/config"
)

// requireTestDB connects to a real Postgres instance via TEST_DATABASE_DSN
// and runs migrations against it. These tests exercise the repos against
// real SQL rather than mocking pgx, mirroring how the teacher's own
// migrations.go/wal.go are only meaningfully testable against a live
// database; they skip (not fail) when no test database is configured.
func requireTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping persist integration test")
	}

	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 5, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, db.Pool))
	t.Cleanup(db.Close)
	return db
}

func TestCharacterRepo_CreateAndLoadRoundTrip(t *testing.T) {
	db := requireTestDB(t)
	repo := NewCharacterRepo(db)
	ctx := context.Background()

	c := &CharacterRow{
		AccountName: "acct1", Name: "Hero1", ShardID: "s1",
		Level: 1, XP: 0, HP: 100, MaxHP: 100,
	}
	require.NoError(t, repo.Create(ctx, c))
	require.NotZero(t, c.ID)

	loaded, err := repo.LoadByName(ctx, "Hero1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "s1", loaded.ShardID)

	require.NoError(t, repo.GrantXP(ctx, "Hero1", 50))
	loaded, err = repo.LoadByName(ctx, "Hero1")
	require.NoError(t, err)
	require.Equal(t, int64(50), loaded.XP)
}

func TestRewardLedgerRepo_WriteAndRecoverPending(t *testing.T) {
	db := requireTestDB(t)
	repo := NewRewardLedgerRepo(db)
	ctx := context.Background()

	id, err := repo.WriteXP(ctx, 42, 100)
	require.NoError(t, err)
	require.NotZero(t, id)

	pending, err := repo.RecoverPending(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	require.NoError(t, repo.MarkProcessed(ctx, id))
	pending, err = repo.RecoverPending(ctx)
	require.NoError(t, err)
	for _, e := range pending {
		require.NotEqual(t, id, e.ID)
	}
}

func TestCorpseRepo_UpsertLoadAndDelete(t *testing.T) {
	db := requireTestDB(t)
	repo := NewCorpseRepo(db)
	ctx := context.Background()

	now := time.Now()
	row := CorpseRow{EntityID: 7, ProtoID: 1, RoomID: "s1:0,0", SpawnPointID: 3, DeleteAt: now, RespawnAt: now.Add(time.Minute)}
	require.NoError(t, repo.Upsert(ctx, row))

	pending, err := repo.LoadPending(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	require.NoError(t, repo.Delete(ctx, 7))
	pending, err = repo.LoadPending(ctx)
	require.NoError(t, err)
	for _, c := range pending {
		require.NotEqual(t, int64(7), c.EntityID)
	}
}
