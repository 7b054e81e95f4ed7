package command

import (
	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

const renameVersion = 1

// Rename sets the display name of an owned object.
type Rename struct {
	PlayerCommand
	Object world.ObjectID
	Name   string
}

func NewRename(sender world.PlayerNumber, due gametime.Time, object world.ObjectID, name string) *Rename {
	c := &Rename{Object: object, Name: name}
	c.sender = sender
	c.due = due
	return c
}

func (c *Rename) Tag() Tag { return TagRename }

func (c *Rename) Execute(w World) error {
	if err := w.State().Rename(c.sender, c.Object, c.Name); err != nil {
		return staleOr(w, c, err)
	}
	return nil
}

func (c *Rename) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	w.WriteDU(uint32(c.Object))
	w.WriteS(c.Name)
}

func (c *Rename) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.Object = world.ObjectID(r.ReadDU())
	c.Name = r.ReadS()
	if err := finishPacket(r, TagRename); err != nil {
		return err
	}
	return checkString(TagRename, "name", c.Name)
}

func (c *Rename) Write(w *codec.Writer, objs codec.ObjectSaver) {
	c.writeBase(w, renameVersion)
	writeObject(w, objs, c.Object)
	w.WriteS(c.Name)
}

func (c *Rename) Read(r *codec.Reader, objs codec.ObjectLoader) error {
	if _, err := c.readBase(r, TagRename, renameVersion, renameVersion); err != nil {
		return err
	}
	obj, err := readObject(r, objs, TagRename, "object")
	if err != nil {
		return err
	}
	name, err := r.ReadS()
	if err != nil {
		return malformed(TagRename, "name", err)
	}
	c.Object, c.Name = obj, name
	return nil
}
