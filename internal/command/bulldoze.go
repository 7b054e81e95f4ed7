package command

import (
	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

const bulldozeVersion = 1

// Bulldoze removes an owned object. It is also how a player takes back an
// earlier placement: commands already in the queue are never withdrawn.
type Bulldoze struct {
	PlayerCommand
	Object world.ObjectID
}

func NewBulldoze(sender world.PlayerNumber, due gametime.Time, object world.ObjectID) *Bulldoze {
	c := &Bulldoze{Object: object}
	c.sender = sender
	c.due = due
	return c
}

func (c *Bulldoze) Tag() Tag { return TagBulldoze }

func (c *Bulldoze) Execute(w World) error {
	if err := w.State().Destroy(c.sender, c.Object); err != nil {
		return staleOr(w, c, err)
	}
	return nil
}

func (c *Bulldoze) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	w.WriteDU(uint32(c.Object))
}

func (c *Bulldoze) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.Object = world.ObjectID(r.ReadDU())
	return finishPacket(r, TagBulldoze)
}

func (c *Bulldoze) Write(w *codec.Writer, objs codec.ObjectSaver) {
	c.writeBase(w, bulldozeVersion)
	writeObject(w, objs, c.Object)
}

func (c *Bulldoze) Read(r *codec.Reader, objs codec.ObjectLoader) error {
	if _, err := c.readBase(r, TagBulldoze, bulldozeVersion, bulldozeVersion); err != nil {
		return err
	}
	obj, err := readObject(r, objs, TagBulldoze, "object")
	if err != nil {
		return err
	}
	c.Object = obj
	return nil
}
