package system

import (
	"math"
	"time"

	coresys "github.com/l1jgo/lockstep/internal/core/system"
	"github.com/l1jgo/lockstep/internal/game"
	"github.com/l1jgo/lockstep/internal/gametime"
)

// CommandSystem advances game time by the tick length scaled by speed and
// runs every command that came due. Phase 2 (Update).
type CommandSystem struct {
	game  *game.Game
	speed float64
	carry float64 // fraction of a game millisecond left from earlier ticks
}

func NewCommandSystem(g *game.Game, speed float64) *CommandSystem {
	return &CommandSystem{game: g, speed: speed}
}

func (s *CommandSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Update returns the first command failure. The game must stop after one.
func (s *CommandSystem) Update(dt time.Duration) error {
	ms := float64(dt)/float64(time.Millisecond)*s.speed + s.carry
	step := math.Floor(ms)
	s.carry = ms - step
	if step < 1 {
		return nil
	}
	if step > math.MaxUint32 {
		step = math.MaxUint32
	}
	return s.game.AdvanceTo(s.game.Now().Add(gametime.Duration(step)))
}
