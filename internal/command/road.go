package command

import (
	"fmt"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

// MaxRoadSteps bounds the step list of a single BuildRoad.
const MaxRoadSteps = 512

// Version 1 stored one step per uint16; version 2 stores one per byte.
const (
	buildRoadMinVersion = 1
	buildRoadVersion    = 2
)

// BuildRoad connects two flags. The payload is a start node plus a list of
// steps; the node path is expanded against the map on first Execute.
type BuildRoad struct {
	PlayerCommand
	Start world.Coords
	Steps []world.Direction

	path []world.Coords
}

func NewBuildRoad(sender world.PlayerNumber, due gametime.Time, start world.Coords, steps []world.Direction) *BuildRoad {
	c := &BuildRoad{Start: start, Steps: append([]world.Direction(nil), steps...)}
	c.sender = sender
	c.due = due
	return c
}

func (c *BuildRoad) Tag() Tag { return TagBuildRoad }

// Path returns the expanded node path, or nil before the first Execute.
func (c *BuildRoad) Path() []world.Coords { return c.path }

func (c *BuildRoad) Execute(w World) error {
	st := w.State()
	if c.path == nil {
		path, err := st.Walk(c.Start, c.Steps)
		if err != nil {
			return staleOr(w, c, err)
		}
		c.path = path
	}
	if _, err := st.BuildRoad(c.sender, c.path); err != nil {
		return staleOr(w, c, err)
	}
	return nil
}

func (c *BuildRoad) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	serializeCoords(w, c.Start)
	w.WriteH(uint16(len(c.Steps)))
	for _, d := range c.Steps {
		w.WriteC(byte(d))
	}
}

func (c *BuildRoad) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.Start = deserializeCoords(r)
	n := int(r.ReadH())
	if n > MaxRoadSteps {
		return malformed(TagBuildRoad, "steps", fmt.Errorf("%d steps exceeds %d", n, MaxRoadSteps))
	}
	c.Steps = make([]world.Direction, n)
	for i := range c.Steps {
		c.Steps[i] = world.Direction(r.ReadC())
	}
	c.path = nil
	return finishPacket(r, TagBuildRoad)
}

func (c *BuildRoad) Write(w *codec.Writer, _ codec.ObjectSaver) {
	c.writeBase(w, buildRoadVersion)
	writeCoords(w, c.Start)
	w.WriteH(uint16(len(c.Steps)))
	for _, d := range c.Steps {
		w.WriteC(byte(d))
	}
}

func (c *BuildRoad) Read(r *codec.Reader, _ codec.ObjectLoader) error {
	version, err := c.readBase(r, TagBuildRoad, buildRoadMinVersion, buildRoadVersion)
	if err != nil {
		return err
	}
	start, err := readCoords(r, TagBuildRoad, "start")
	if err != nil {
		return err
	}
	n, err := r.ReadH()
	if err != nil {
		return malformed(TagBuildRoad, "step count", err)
	}
	if n > MaxRoadSteps {
		return malformed(TagBuildRoad, "steps", fmt.Errorf("%d steps exceeds %d", n, MaxRoadSteps))
	}
	steps := make([]world.Direction, n)
	for i := range steps {
		var d uint16
		if version == 1 {
			d, err = r.ReadH()
		} else {
			var b byte
			b, err = r.ReadC()
			d = uint16(b)
		}
		if err != nil {
			return malformed(TagBuildRoad, fmt.Sprintf("step %d", i), err)
		}
		steps[i] = world.Direction(d)
	}
	c.Start, c.Steps, c.path = start, steps, nil
	return nil
}
