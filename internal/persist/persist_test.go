package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/config"
	"github.com/l1jgo/lockstep/internal/gametime"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{
		Driver: DialectSQLite,
		DSN:    filepath.Join(t.TempDir(), "store", "lockstep.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, RunMigrations(ctx, db))
	return db
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, RunMigrations(context.Background(), db))
}

func TestNewDB_UnknownDriver(t *testing.T) {
	_, err := NewDB(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{Dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &DB{Dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestReplayRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewReplayRepo(openTestDB(t))
	game, other := uuid.New(), uuid.New()

	seq, err := repo.NextSeq(ctx, game)
	require.NoError(t, err)
	assert.Zero(t, seq)

	now := time.UnixMilli(1_700_000_000_000)
	require.NoError(t, repo.Append(ctx, game, []ReplayEntry{
		{Seq: 0, Due: 100, Tag: command.TagBuildFlag, Sender: 1, Payload: []byte{2, 1}, ReceivedAt: now},
		{Seq: 1, Due: 150, Tag: command.TagRename, Sender: 2, Payload: []byte{4, 2, 9}, ReceivedAt: now},
	}))
	require.NoError(t, repo.Append(ctx, other, []ReplayEntry{{Seq: 0, Payload: []byte{1}, ReceivedAt: now}}))
	require.NoError(t, repo.Append(ctx, game, nil))

	got, err := repo.Load(ctx, game)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, command.TagRename, got[1].Tag)
	assert.Equal(t, []byte{4, 2, 9}, got[1].Payload)
	assert.EqualValues(t, 150, got[1].Due)
	assert.True(t, now.Equal(got[0].ReceivedAt))

	seq, err = repo.NextSeq(ctx, game)
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	// A duplicate sequence number rolls back the whole batch.
	err = repo.Append(ctx, game, []ReplayEntry{
		{Seq: 2, Payload: []byte{1}, ReceivedAt: now},
		{Seq: 1, Payload: []byte{1}, ReceivedAt: now},
	})
	require.Error(t, err)
	got, err = repo.Load(ctx, game)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSaveRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewSaveRepo(openTestDB(t))
	game := uuid.New()

	_, err := repo.Latest(ctx, game)
	require.ErrorIs(t, err, ErrNotFound)

	at := time.UnixMilli(1_700_000_000_000)
	for _, gt := range []uint32{0, 60_000, 30_000} {
		require.NoError(t, repo.Record(ctx, SaveRecord{
			GameID:    game,
			Path:      filepath.Join("saves", uuid.NewString()),
			GameTime:  gametime.Time(gt),
			Digest:    "abcd",
			CreatedAt: at,
		}))
	}

	latest, err := repo.Latest(ctx, game)
	require.NoError(t, err)
	assert.EqualValues(t, 60_000, latest.GameTime)
	assert.Equal(t, game, latest.GameID)

	first, err := repo.First(ctx, game)
	require.NoError(t, err)
	assert.Zero(t, first.GameTime)
	assert.True(t, at.Equal(first.CreatedAt))
}
