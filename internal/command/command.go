// Package command defines the commands that mutate the simulated world and
// the two encodings every command supports: the compact wire form exchanged
// between peers, and the versioned form written to save files.
package command

import (
	"fmt"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
	"github.com/l1jgo/lockstep/internal/world"
)

// Tag identifies a concrete command variant in save files and on the wire.
// Values are stable forever; never renumber an existing tag.
type Tag uint16

const (
	TagNone Tag = iota // end-of-queue sentinel in save files
	TagBuild
	TagBuildFlag
	TagBuildRoad
	TagRename
	TagBulldoze
	TagConstructionComplete
	TagLuaScript
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "none"
	case TagBuild:
		return "build"
	case TagBuildFlag:
		return "build_flag"
	case TagBuildRoad:
		return "build_road"
	case TagRename:
		return "rename"
	case TagBulldoze:
		return "bulldoze"
	case TagConstructionComplete:
		return "construction_complete"
	case TagLuaScript:
		return "lua_script"
	default:
		return fmt.Sprintf("tag(%d)", uint16(t))
	}
}

// Category is the tie-break key among commands due at the same time.
// Lower categories run first. It is not a priority.
type Category int32

const (
	CategoryEngine Category = iota // follow-ups and scripts
	CategoryPlayer
)

// World is the mutation surface a command executes against.
type World interface {
	// Now is the time being processed; equal to the executing command's due time.
	Now() gametime.Time
	State() *world.State
	// Schedule enqueues a follow-up command. Its due time must not be before Now.
	Schedule(c Command) error
	RunScript(name, source string) error
	// Stale reports that c was skipped because the world no longer supports it.
	Stale(c Command, reason error)
}

// Command is one state-mutating operation.
//
// Execute must read the world as it is when the command runs, never a copy
// taken at creation, so live play and replay produce identical results.
// Serialize, Deserialize, Write and Read must not touch the world.
type Command interface {
	Tag() Tag
	DueTime() gametime.Time
	SetDueTime(t gametime.Time)
	Category() Category
	Sender() world.PlayerNumber

	Execute(w World) error

	// Serialize writes the wire form: sender, due time, payload.
	Serialize(w *packet.Writer)
	Deserialize(r *packet.Reader) error

	// Write emits the versioned save form. Object references go through objs.
	Write(w *codec.Writer, objs codec.ObjectSaver)
	Read(r *codec.Reader, objs codec.ObjectLoader) error
}

// Sendable is implemented by commands issued on behalf of a player.
type Sendable interface {
	Command
	SetSender(n world.PlayerNumber)
}

// Encode returns the complete wire packet for c, tag byte first.
func Encode(c Command) []byte {
	w := packet.NewWriterWithTag(byte(c.Tag()))
	c.Serialize(w)
	return w.Bytes()
}
