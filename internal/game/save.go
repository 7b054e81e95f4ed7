package game

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/cmdqueue"
	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/core/event"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/savegame"
	"github.com/l1jgo/lockstep/internal/world"
)

const bodyVersion = 1

// MarshalBody encodes the map, the pending commands and the sync state.
// Objects referenced by queued commands resolve through the map section.
func (g *Game) MarshalBody() ([]byte, error) {
	body, _, err := g.marshalBody()
	return body, err
}

// bodyInfo describes the queue snapshot a body was written from.
type bodyInfo struct {
	gameTime gametime.Time
	pending  int
}

func (g *Game) marshalBody() ([]byte, bodyInfo, error) {
	syncState, err := g.marshalSync()
	if err != nil {
		return nil, bodyInfo{}, err
	}
	w := codec.NewWriter()
	w.WriteH(bodyVersion)
	objs := codec.NewObjectMap()
	g.st.Write(w, objs)
	var info bodyInfo
	info.gameTime, info.pending = g.queue.Write(w, objs)
	writeU64(w, g.executed)
	writeU64(w, g.stale)
	w.WriteDU(uint32(len(syncState)))
	w.WriteBytes(syncState)
	if err := w.Err(); err != nil {
		return nil, bodyInfo{}, fmt.Errorf("encode body: %w", err)
	}
	return w.Bytes(), info, nil
}

// UnmarshalBody replaces the game state with one produced by MarshalBody.
// Nothing changes unless the whole body decodes.
func (g *Game) UnmarshalBody(body []byte) error {
	r := codec.NewReader(body)
	version, err := r.ReadH()
	if err != nil {
		return fmt.Errorf("read body version: %w", err)
	}
	if version != bodyVersion {
		return fmt.Errorf("body version %d (supported %d): %w", version, bodyVersion, savegame.ErrVersion)
	}

	objs := codec.NewObjectMap()
	st := world.NewState(0, 0, g.st.Buildings())
	if err := st.Read(r, objs); err != nil {
		return err
	}
	q := cmdqueue.New(g.queue.Buckets())
	if err := q.Read(r, objs, g.factory); err != nil {
		return err
	}
	executed, err := readU64(r)
	if err != nil {
		return fmt.Errorf("read executed count: %w", err)
	}
	stale, err := readU64(r)
	if err != nil {
		return fmt.Errorf("read stale count: %w", err)
	}
	n, err := r.ReadDU()
	if err != nil {
		return fmt.Errorf("read sync state: %w", err)
	}
	syncState, err := r.ReadBytes(int(n))
	if err != nil {
		return fmt.Errorf("read sync state: %w", err)
	}
	if rest := r.Remaining(); rest != 0 {
		return fmt.Errorf("%d trailing bytes after body", rest)
	}
	if err := g.unmarshalSync(syncState); err != nil {
		return fmt.Errorf("restore sync state: %w", err)
	}

	g.st = st
	g.queue.Replace(q)
	g.executed, g.stale = executed, stale
	return nil
}

// Save writes a save file at path.
func (g *Game) Save(path string, level zstd.EncoderLevel) (savegame.Header, error) {
	body, info, err := g.marshalBody()
	if err != nil {
		return savegame.Header{}, err
	}
	digest := g.st.Digest()
	h := savegame.Header{
		GameID:   g.id,
		GameTime: info.gameTime,
		Created:  time.Now().UTC(),
		Pending:  info.pending,
		Objects:  g.st.ObjectCount(),
		Digest:   hex.EncodeToString(digest[:]),
	}
	if err := savegame.WriteFile(path, h, body, level); err != nil {
		return h, fmt.Errorf("write save %s: %w", path, err)
	}
	g.log.Info("存檔完成",
		zap.String("path", path),
		zap.Stringer("gametime", h.GameTime),
		zap.Int("pending", h.Pending),
	)
	if g.bus != nil {
		event.Emit(g.bus, event.GameSaved{Path: path, GameTime: h.GameTime})
	}
	return h, nil
}

// Load replaces the game with the save at path, including its game ID.
func (g *Game) Load(path string) (savegame.Header, error) {
	h, body, err := savegame.ReadFile(path)
	if err != nil {
		return h, err
	}
	if err := g.UnmarshalBody(body); err != nil {
		return h, fmt.Errorf("load %s: %w", path, err)
	}
	g.id = h.GameID
	g.log = g.base.With(zap.String("game", g.id.String()))
	g.log.Info("讀檔完成",
		zap.String("path", path),
		zap.Stringer("gametime", h.GameTime),
		zap.Int("pending", h.Pending),
	)
	return h, nil
}

func writeU64(w *codec.Writer, v uint64) {
	w.WriteDU(uint32(v))
	w.WriteDU(uint32(v >> 32))
}

func readU64(r *codec.Reader) (uint64, error) {
	lo, err := r.ReadDU()
	if err != nil {
		return 0, err
	}
	hi, err := r.ReadDU()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}
