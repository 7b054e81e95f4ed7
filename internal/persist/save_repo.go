package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/l1jgo/lockstep/internal/gametime"
)

// SaveRecord indexes one save file written for a game.
type SaveRecord struct {
	ID        int64
	GameID    uuid.UUID
	Path      string
	GameTime  gametime.Time
	Digest    string // hex world digest at save time
	CreatedAt time.Time
}

type SaveRepo struct {
	db *DB
}

func NewSaveRepo(db *DB) *SaveRepo {
	return &SaveRepo{db: db}
}

// Record adds a save to the index.
func (r *SaveRepo) Record(ctx context.Context, s SaveRecord) error {
	_, err := r.db.SQL.ExecContext(ctx, r.db.rebind(
		`INSERT INTO saves (game_id, path, game_time, digest, created_at) VALUES (?, ?, ?, ?, ?)`),
		s.GameID.String(), s.Path, int64(s.GameTime), s.Digest, s.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

// Latest returns the save with the highest game time.
func (r *SaveRepo) Latest(ctx context.Context, gameID uuid.UUID) (*SaveRecord, error) {
	return r.one(ctx, `SELECT id, game_id, path, game_time, digest, created_at
		FROM saves WHERE game_id = ? ORDER BY game_time DESC, id DESC LIMIT 1`, gameID)
}

// First returns the save with the lowest game time, normally the start save.
func (r *SaveRepo) First(ctx context.Context, gameID uuid.UUID) (*SaveRecord, error) {
	return r.one(ctx, `SELECT id, game_id, path, game_time, digest, created_at
		FROM saves WHERE game_id = ? ORDER BY game_time ASC, id ASC LIMIT 1`, gameID)
}

func (r *SaveRepo) one(ctx context.Context, query string, gameID uuid.UUID) (*SaveRecord, error) {
	var (
		s        SaveRecord
		id       string
		gt, when int64
	)
	err := r.db.SQL.QueryRowContext(ctx, r.db.rebind(query), gameID.String()).
		Scan(&s.ID, &id, &s.Path, &gt, &s.Digest, &when)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("save for game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query save: %w", err)
	}
	if s.GameID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("save %d game id: %w", s.ID, err)
	}
	s.GameTime = gametime.Time(gt)
	s.CreatedAt = time.UnixMilli(when)
	return &s, nil
}
