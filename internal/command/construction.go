package command

import (
	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

const constructionCompleteVersion = 1

// ConstructionComplete finishes a construction site. Scheduled by Build.
type ConstructionComplete struct {
	Base
	Building world.ObjectID
}

func NewConstructionComplete(due gametime.Time, building world.ObjectID) *ConstructionComplete {
	c := &ConstructionComplete{Building: building}
	c.due = due
	return c
}

func (c *ConstructionComplete) Tag() Tag { return TagConstructionComplete }

func (c *ConstructionComplete) Execute(w World) error {
	if err := w.State().CompleteConstruction(c.Building); err != nil {
		return staleOr(w, c, err)
	}
	return nil
}

func (c *ConstructionComplete) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	w.WriteDU(uint32(c.Building))
}

func (c *ConstructionComplete) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.Building = world.ObjectID(r.ReadDU())
	return finishPacket(r, TagConstructionComplete)
}

func (c *ConstructionComplete) Write(w *codec.Writer, objs codec.ObjectSaver) {
	c.writeBase(w, constructionCompleteVersion)
	writeObject(w, objs, c.Building)
}

func (c *ConstructionComplete) Read(r *codec.Reader, objs codec.ObjectLoader) error {
	if _, err := c.readBase(r, TagConstructionComplete, constructionCompleteVersion, constructionCompleteVersion); err != nil {
		return err
	}
	b, err := readObject(r, objs, TagConstructionComplete, "building")
	if err != nil {
		return err
	}
	c.Building = b
	return nil
}
