package system

import (
	"context"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	coresys "github.com/l1jgo/lockstep/internal/core/system"
	"github.com/l1jgo/lockstep/internal/game"
	"github.com/l1jgo/lockstep/internal/persist"
	"github.com/l1jgo/lockstep/internal/savegame"
)

// ReplaySource hands over accepted packets for the replay log.
type ReplaySource interface {
	TakeReplay() []persist.ReplayEntry
}

// PersistenceSystem flushes the replay log every tick and writes a save file
// every interval ticks. Store failures are logged and retried on the next
// tick; they never stop the simulation. Phase 3 (Persist).
type PersistenceSystem struct {
	game    *game.Game
	source  ReplaySource
	replays *persist.ReplayRepo // nil without a database
	saves   *persist.SaveRepo
	dir     string
	level   zstd.EncoderLevel
	log     *zap.Logger
	unsent  []persist.ReplayEntry

	tickCount int
	interval  int // autosave every N ticks; 0 disables
}

func NewPersistenceSystem(g *game.Game, source ReplaySource, replays *persist.ReplayRepo, saves *persist.SaveRepo, dir string, level zstd.EncoderLevel, intervalTicks int, log *zap.Logger) *PersistenceSystem {
	return &PersistenceSystem{
		game:     g,
		source:   source,
		replays:  replays,
		saves:    saves,
		dir:      dir,
		level:    level,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) error {
	s.flushReplay()
	if s.interval <= 0 {
		return nil
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return nil
	}
	s.tickCount = 0
	if _, err := s.SaveNow(); err != nil {
		s.log.Error("自動存檔失敗", zap.Error(err))
		return nil
	}
	s.log.Info("自動存檔完成", zap.Stringer("gametime", s.game.Now()))
	return nil
}

// SaveNow flushes the replay log and writes a save file for the current game
// time. Used for the start save and at shutdown.
func (s *PersistenceSystem) SaveNow() (string, error) {
	s.flushReplay()
	path := filepath.Join(s.dir, savegame.FileName(s.game.ID(), s.game.Now()))
	h, err := s.game.Save(path, s.level)
	if err != nil {
		return "", err
	}
	if s.saves != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.saves.Record(ctx, persist.SaveRecord{
			GameID:    h.GameID,
			Path:      path,
			GameTime:  h.GameTime,
			Digest:    h.Digest,
			CreatedAt: h.Created,
		})
		if err != nil {
			s.log.Error("存檔索引寫入失敗", zap.String("path", path), zap.Error(err))
		}
	}
	return path, nil
}

// Unsent returns how many replay entries wait for a successful flush.
func (s *PersistenceSystem) Unsent() int { return len(s.unsent) }

func (s *PersistenceSystem) flushReplay() {
	if s.source != nil {
		s.unsent = append(s.unsent, s.source.TakeReplay()...)
	}
	if s.replays == nil {
		s.unsent = nil
		return
	}
	if len(s.unsent) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.replays.Append(ctx, s.game.ID(), s.unsent); err != nil {
		s.log.Error("重播紀錄寫入失敗", zap.Int("entries", len(s.unsent)), zap.Error(err))
		return
	}
	s.unsent = nil
}
