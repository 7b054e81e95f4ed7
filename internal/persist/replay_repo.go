package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/world"
)

// ReplayEntry is one accepted player command in wire form.
type ReplayEntry struct {
	Seq        int64
	Due        gametime.Time
	Tag        command.Tag
	Sender     world.PlayerNumber
	Payload    []byte
	ReceivedAt time.Time
}

// ReplayRepo stores the command stream of a game in acceptance order.
type ReplayRepo struct {
	db *DB
}

func NewReplayRepo(db *DB) *ReplayRepo {
	return &ReplayRepo{db: db}
}

// Append writes a batch of entries in a single transaction. Either the
// whole batch is stored or none of it.
func (r *ReplayRepo) Append(ctx context.Context, gameID uuid.UUID, entries []ReplayEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replay begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(
		`INSERT INTO replay_log (game_id, seq, due_time, tag, sender, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("replay prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			gameID.String(), e.Seq, int64(e.Due), int32(e.Tag), int32(e.Sender), e.Payload, e.ReceivedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("replay insert seq %d: %w", e.Seq, err)
		}
	}

	return tx.Commit()
}

// Load returns every entry of a game ordered by sequence number.
func (r *ReplayRepo) Load(ctx context.Context, gameID uuid.UUID) ([]ReplayEntry, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT seq, due_time, tag, sender, payload, received_at
		 FROM replay_log WHERE game_id = ? ORDER BY seq`), gameID.String())
	if err != nil {
		return nil, fmt.Errorf("replay query: %w", err)
	}
	defer rows.Close()

	var out []ReplayEntry
	for rows.Next() {
		var (
			e             ReplayEntry
			due, received int64
			tag, sender   int32
		)
		if err := rows.Scan(&e.Seq, &due, &tag, &sender, &e.Payload, &received); err != nil {
			return nil, fmt.Errorf("replay scan: %w", err)
		}
		e.Due = gametime.Time(due)
		e.Tag = command.Tag(tag)
		e.Sender = world.PlayerNumber(sender)
		e.ReceivedAt = time.UnixMilli(received)
		out = append(out, e)
	}
	return out, rows.Err()
}

// NextSeq returns the sequence number the next appended entry should use.
func (r *ReplayRepo) NextSeq(ctx context.Context, gameID uuid.UUID) (int64, error) {
	var max sql.NullInt64
	err := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT MAX(seq) FROM replay_log WHERE game_id = ?`), gameID.String()).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("replay next seq: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64 + 1, nil
}
