package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/command"
	coresys "github.com/l1jgo/lockstep/internal/core/system"
	"github.com/l1jgo/lockstep/internal/game"
	"github.com/l1jgo/lockstep/internal/persist"
)

// InputSystem drains wire packets submitted by peers, schedules the player
// commands among them and remembers each accepted packet for the replay log.
// Phase 0 (Input).
type InputSystem struct {
	game       *game.Game
	in         <-chan []byte
	maxPerTick int
	log        *zap.Logger

	seq      int64
	accepted []persist.ReplayEntry
}

// NewInputSystem reads from in. firstSeq is the replay sequence number the
// first accepted packet receives.
func NewInputSystem(g *game.Game, in <-chan []byte, maxPerTick int, firstSeq int64, log *zap.Logger) *InputSystem {
	return &InputSystem{
		game:       g,
		in:         in,
		maxPerTick: maxPerTick,
		log:        log,
		seq:        firstSeq,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) error {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data, ok := <-s.in:
			if !ok {
				return nil
			}
			s.accept(data)
		default:
			return nil
		}
	}
	return nil
}

// accept never fails the tick: a bad packet only hurts its sender.
func (s *InputSystem) accept(data []byte) {
	c, err := s.game.Factory().Decode(data)
	if err != nil {
		s.log.Debug("指令封包解碼失敗", zap.Int("len", len(data)), zap.Error(err))
		return
	}
	if _, ok := c.(command.Sendable); !ok || c.Sender() == 0 {
		s.log.Warn("拒絕非玩家指令",
			zap.Stringer("tag", c.Tag()),
			zap.Uint8("sender", uint8(c.Sender())),
		)
		return
	}
	if err := s.game.Submit(c); err != nil {
		s.log.Warn("指令排程被拒",
			zap.Stringer("tag", c.Tag()),
			zap.Uint8("sender", uint8(c.Sender())),
			zap.Error(err),
		)
		return
	}

	payload := make([]byte, len(data))
	copy(payload, data)
	s.accepted = append(s.accepted, persist.ReplayEntry{
		Seq:        s.seq,
		Due:        c.DueTime(),
		Tag:        c.Tag(),
		Sender:     c.Sender(),
		Payload:    payload,
		ReceivedAt: time.Now(),
	})
	s.seq++
}

// NextSeq returns the sequence number of the next accepted packet.
func (s *InputSystem) NextSeq() int64 { return s.seq }

// TakeReplay returns the packets accepted since the last call.
func (s *InputSystem) TakeReplay() []persist.ReplayEntry {
	out := s.accepted
	s.accepted = nil
	return out
}
