package command

import (
	"errors"
	"fmt"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

// Base carries the due time shared by every command. Commands that embed
// only Base run in the engine category and have no sender.
type Base struct {
	due gametime.Time
}

func (b *Base) DueTime() gametime.Time     { return b.due }
func (b *Base) SetDueTime(t gametime.Time) { b.due = t }
func (b *Base) Category() Category         { return CategoryEngine }
func (b *Base) Sender() world.PlayerNumber { return 0 }

func (b *Base) serializeHeader(w *packet.Writer) {
	w.WriteC(0)
	w.WriteDU(uint32(b.due))
}

func (b *Base) deserializeHeader(r *packet.Reader) {
	r.ReadC()
	b.due = gametime.Time(r.ReadDU())
}

// writeBase starts the save form: variant version, then due time.
func (b *Base) writeBase(w *codec.Writer, version uint16) {
	w.WriteH(version)
	b.due.Write(w)
}

// readBase reads and checks the variant version, then the due time. Any
// version outside [min, max] fails the load.
func (b *Base) readBase(r *codec.Reader, tag Tag, min, max uint16) (uint16, error) {
	v, err := r.ReadH()
	if err != nil {
		return 0, malformed(tag, "version", err)
	}
	if v < min || v > max {
		return v, &VersionError{Tag: tag, Observed: v, Min: min, Max: max}
	}
	due, err := gametime.Read(r)
	if err != nil {
		return v, malformed(tag, "due time", err)
	}
	b.due = due
	return v, nil
}

// PlayerCommand is embedded by every command a player issues. The sender
// and due time form the shared wire header.
type PlayerCommand struct {
	Base
	sender world.PlayerNumber
}

func (p *PlayerCommand) Category() Category             { return CategoryPlayer }
func (p *PlayerCommand) Sender() world.PlayerNumber     { return p.sender }
func (p *PlayerCommand) SetSender(n world.PlayerNumber) { p.sender = n }

func (p *PlayerCommand) serializeHeader(w *packet.Writer) {
	w.WriteC(byte(p.sender))
	w.WriteDU(uint32(p.due))
}

func (p *PlayerCommand) deserializeHeader(r *packet.Reader) {
	p.sender = world.PlayerNumber(r.ReadC())
	p.due = gametime.Time(r.ReadDU())
}

// finishPacket turns a short or overlong wire packet into a payload error.
func finishPacket(r *packet.Reader, tag Tag) error {
	if err := r.Err(); err != nil {
		return malformed(tag, "packet", err)
	}
	if n := r.Remaining(); n != 0 {
		return malformed(tag, "packet", fmt.Errorf("%d trailing bytes", n))
	}
	return nil
}

// checkString rejects a decoded wire string the save form could not hold.
func checkString(tag Tag, field, s string) error {
	if len(s) > codec.MaxString {
		return malformed(tag, field, fmt.Errorf("%d bytes: %w", len(s), codec.ErrStringTooLong))
	}
	return nil
}

// staleOr reports a stale world error as a skipped command; anything else
// is returned as a failure.
func staleOr(w World, c Command, err error) error {
	if errors.Is(err, world.ErrStale) {
		w.Stale(c, err)
		return nil
	}
	return err
}

func serializeCoords(w *packet.Writer, c world.Coords) {
	w.WriteH(uint16(c.X))
	w.WriteH(uint16(c.Y))
}

func deserializeCoords(r *packet.Reader) world.Coords {
	x := int16(r.ReadH())
	y := int16(r.ReadH())
	return world.Coords{X: x, Y: y}
}

func writeCoords(w *codec.Writer, c world.Coords) {
	w.WriteH(uint16(c.X))
	w.WriteH(uint16(c.Y))
}

func readCoords(r *codec.Reader, tag Tag, field string) (world.Coords, error) {
	x, err := r.ReadH()
	if err != nil {
		return world.Coords{}, malformed(tag, field, err)
	}
	y, err := r.ReadH()
	if err != nil {
		return world.Coords{}, malformed(tag, field, err)
	}
	return world.Coords{X: int16(x), Y: int16(y)}, nil
}

func writeObject(w *codec.Writer, objs codec.ObjectSaver, id world.ObjectID) {
	w.WriteDU(objs.FileIndex(uint32(id)))
}

func readObject(r *codec.Reader, objs codec.ObjectLoader, tag Tag, field string) (world.ObjectID, error) {
	idx, err := r.ReadDU()
	if err != nil {
		return 0, malformed(tag, field, err)
	}
	id, err := objs.ObjectID(idx)
	if err != nil {
		return 0, malformed(tag, field, err)
	}
	return world.ObjectID(id), nil
}
