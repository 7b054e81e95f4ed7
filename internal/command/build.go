package command

import (
	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

const buildVersion = 1

// Build places a construction site for a building type. When the type has a
// build time, a ConstructionComplete follow-up finishes it later.
type Build struct {
	PlayerCommand
	At       world.Coords
	Building string
}

func NewBuild(sender world.PlayerNumber, due gametime.Time, at world.Coords, building string) *Build {
	c := &Build{At: at, Building: building}
	c.sender = sender
	c.due = due
	return c
}

func (c *Build) Tag() Tag { return TagBuild }

func (c *Build) Execute(w World) error {
	st := w.State()
	id, err := st.PlaceBuilding(c.sender, c.At, c.Building)
	if err != nil {
		return staleOr(w, c, err)
	}
	info := st.Buildings().Get(c.Building)
	if info.BuildTime == 0 {
		return nil
	}
	return w.Schedule(NewConstructionComplete(w.Now().Add(gametime.Duration(info.BuildTime)), id))
}

func (c *Build) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	serializeCoords(w, c.At)
	w.WriteS(c.Building)
}

func (c *Build) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.At = deserializeCoords(r)
	c.Building = r.ReadS()
	if err := finishPacket(r, TagBuild); err != nil {
		return err
	}
	return checkString(TagBuild, "building", c.Building)
}

func (c *Build) Write(w *codec.Writer, _ codec.ObjectSaver) {
	c.writeBase(w, buildVersion)
	writeCoords(w, c.At)
	w.WriteS(c.Building)
}

func (c *Build) Read(r *codec.Reader, _ codec.ObjectLoader) error {
	if _, err := c.readBase(r, TagBuild, buildVersion, buildVersion); err != nil {
		return err
	}
	at, err := readCoords(r, TagBuild, "site")
	if err != nil {
		return err
	}
	name, err := r.ReadS()
	if err != nil {
		return malformed(TagBuild, "building", err)
	}
	c.At, c.Building = at, name
	return nil
}
