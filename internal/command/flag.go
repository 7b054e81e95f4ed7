package command

import (
	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

const buildFlagVersion = 1

// BuildFlag places a flag on a free node.
type BuildFlag struct {
	PlayerCommand
	At world.Coords
}

func NewBuildFlag(sender world.PlayerNumber, due gametime.Time, at world.Coords) *BuildFlag {
	c := &BuildFlag{At: at}
	c.sender = sender
	c.due = due
	return c
}

func (c *BuildFlag) Tag() Tag { return TagBuildFlag }

func (c *BuildFlag) Execute(w World) error {
	if _, err := w.State().PlaceFlag(c.sender, c.At); err != nil {
		return staleOr(w, c, err)
	}
	return nil
}

func (c *BuildFlag) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	serializeCoords(w, c.At)
}

func (c *BuildFlag) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.At = deserializeCoords(r)
	return finishPacket(r, TagBuildFlag)
}

func (c *BuildFlag) Write(w *codec.Writer, _ codec.ObjectSaver) {
	c.writeBase(w, buildFlagVersion)
	writeCoords(w, c.At)
}

func (c *BuildFlag) Read(r *codec.Reader, _ codec.ObjectLoader) error {
	if _, err := c.readBase(r, TagBuildFlag, buildFlagVersion, buildFlagVersion); err != nil {
		return err
	}
	at, err := readCoords(r, TagBuildFlag, "site")
	if err != nil {
		return err
	}
	c.At = at
	return nil
}
