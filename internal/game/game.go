// Package game ties the map, the command queue and the script engine into
// one deterministic simulation.
package game

import (
	"encoding"
	"errors"
	"fmt"
	"hash"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/lockstep/internal/cmdqueue"
	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/core/event"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/scripting"
	"github.com/l1jgo/lockstep/internal/world"
)

// ErrNoScripting is returned by RunScript when no engine is attached.
var ErrNoScripting = errors.New("scripting disabled")

// Config holds the per-game settings.
type Config struct {
	ID      uuid.UUID // uuid.Nil picks a new one
	Buckets int
}

// Game is the authoritative simulation. Submit may be called from any
// goroutine; everything else belongs to the simulation goroutine.
type Game struct {
	id      uuid.UUID
	st      *world.State
	queue   *cmdqueue.Queue
	factory *command.Factory
	scripts *scripting.Engine
	bus     *event.Bus
	base    *zap.Logger
	log     *zap.Logger

	sync     hash.Hash
	executed uint64
	stale    uint64
	skipped  bool // the running command reported itself stale
}

// New creates a game over st. scripts and bus may be nil.
func New(cfg Config, st *world.State, factory *command.Factory, scripts *scripting.Engine, bus *event.Bus, log *zap.Logger) *Game {
	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Game{
		id:      id,
		st:      st,
		queue:   cmdqueue.New(cfg.Buckets),
		factory: factory,
		scripts: scripts,
		bus:     bus,
		base:    log,
		log:     log.With(zap.String("game", id.String())),
		sync:    newSyncHash(),
	}
}

func newSyncHash() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err) // only fails for an oversized key
	}
	return h
}

func (g *Game) ID() uuid.UUID             { return g.id }
func (g *Game) Factory() *command.Factory { return g.factory }
func (g *Game) Queue() *cmdqueue.Queue    { return g.queue }
func (g *Game) Executed() uint64          { return g.executed }
func (g *Game) StaleCount() uint64        { return g.stale }

// Now returns the time being processed.
func (g *Game) Now() gametime.Time { return g.queue.Time() }

func (g *Game) State() *world.State { return g.st }

// Schedule enqueues a follow-up on behalf of a running command.
func (g *Game) Schedule(c command.Command) error { return g.queue.Enqueue(c) }

// Submit hands a command from a producer to the queue. Safe for concurrent use.
func (g *Game) Submit(c command.Command) error {
	if err := g.queue.Enqueue(c); err != nil {
		return err
	}
	g.log.Debug("指令已排程",
		zap.Stringer("tag", c.Tag()),
		zap.Uint8("sender", uint8(c.Sender())),
		zap.Stringer("due", c.DueTime()),
	)
	return nil
}

// SubmitWire decodes a wire packet and submits the command.
func (g *Game) SubmitWire(data []byte) (command.Command, error) {
	c, err := g.factory.Decode(data)
	if err != nil {
		return nil, err
	}
	return c, g.Submit(c)
}

func (g *Game) RunScript(name, source string) error {
	if g.scripts == nil {
		return fmt.Errorf("script %s: %w", name, ErrNoScripting)
	}
	return g.scripts.Run(name, source, g)
}

// Stale logs a command that no longer applies to the map and carries on.
func (g *Game) Stale(c command.Command, reason error) {
	g.skipped = true
	g.stale++
	g.log.Warn("指令已失效，略過",
		zap.Stringer("tag", c.Tag()),
		zap.Uint8("sender", uint8(c.Sender())),
		zap.Stringer("due", c.DueTime()),
		zap.Error(reason),
	)
	if g.bus != nil {
		event.Emit(g.bus, event.CommandStale{
			Tag:    c.Tag(),
			Due:    c.DueTime(),
			Sender: c.Sender(),
			Reason: reason.Error(),
		})
	}
}

// AdvanceTo runs every command due up to and including now. An error means
// the simulation can no longer be trusted and must stop.
func (g *Game) AdvanceTo(now gametime.Time) error {
	return g.queue.AdvanceTo(now, g.execute)
}

func (g *Game) execute(c command.Command) error {
	var tag [2]byte
	tag[0], tag[1] = byte(c.Tag()), byte(c.Tag()>>8)
	g.sync.Write(tag[:])
	g.sync.Write(command.Encode(c))

	g.skipped = false
	if err := c.Execute(g); err != nil {
		return err
	}
	if g.skipped {
		return nil
	}
	g.executed++
	if g.bus != nil {
		event.Emit(g.bus, event.CommandExecuted{Tag: c.Tag(), Due: c.DueTime(), Sender: c.Sender()})
	}
	return nil
}

// SyncDigest hashes every command executed so far, in order. Peers compare
// it to detect a desync.
func (g *Game) SyncDigest() [32]byte {
	var out [32]byte
	copy(out[:], g.sync.Sum(nil))
	return out
}

func (g *Game) marshalSync() ([]byte, error) {
	m, ok := g.sync.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errors.New("sync hash cannot be saved")
	}
	return m.MarshalBinary()
}

func (g *Game) unmarshalSync(b []byte) error {
	h := newSyncHash()
	u, ok := h.(encoding.BinaryUnmarshaler)
	if !ok {
		return errors.New("sync hash cannot be restored")
	}
	if err := u.UnmarshalBinary(b); err != nil {
		return err
	}
	g.sync = h
	return nil
}
