package world

import (
	"errors"
	"fmt"
)

// PlayerNumber identifies a player slot. 0 means no player (engine or script).
type PlayerNumber uint8

// ObjectID identifies a map object. IDs are handed out in creation order and
// survive save/load unchanged, so every replica names objects identically.
type ObjectID uint32

// Coords is a node on the map grid.
type Coords struct {
	X int16
	Y int16
}

func (c Coords) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Direction is one step on the grid.
type Direction uint8

const (
	DirNorth Direction = iota + 1
	DirEast
	DirSouth
	DirWest
)

// Valid reports whether d is one of the four step directions.
func (d Direction) Valid() bool {
	return d >= DirNorth && d <= DirWest
}

// Neighbour returns the node one step from c in direction d.
func (c Coords) Neighbour(d Direction) Coords {
	switch d {
	case DirNorth:
		return Coords{c.X, c.Y - 1}
	case DirEast:
		return Coords{c.X + 1, c.Y}
	case DirSouth:
		return Coords{c.X, c.Y + 1}
	case DirWest:
		return Coords{c.X - 1, c.Y}
	}
	return c
}

// ObjectKind distinguishes map objects.
type ObjectKind uint8

const (
	KindFlag ObjectKind = iota + 1
	KindBuilding
	KindRoad
)

func (k ObjectKind) String() string {
	switch k {
	case KindFlag:
		return "flag"
	case KindBuilding:
		return "building"
	case KindRoad:
		return "road"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Object is one player-owned thing on the map. Treat returned objects as
// read-only; all mutation goes through State methods.
type Object struct {
	ID       ObjectID
	Kind     ObjectKind
	Owner    PlayerNumber
	At       Coords   // flag and building position, road start
	Name     string   // display name, set by Rename
	Building string   // building type name (KindBuilding)
	Complete bool     // construction finished (KindBuilding)
	Flag     ObjectID // the building's flag (KindBuilding)
	Path     []Coords // every node from start flag to end flag (KindRoad)
}

// Player is one participant in the game.
type Player struct {
	Number PlayerNumber
	Name   string
}

// ErrStale marks a command whose effect the world no longer supports.
// Stale commands are skipped with a warning; they never abort the simulation.
var ErrStale = errors.New("command no longer applicable")

var (
	ErrOutOfBounds     = fmt.Errorf("%w: outside the map", ErrStale)
	ErrOccupied        = fmt.Errorf("%w: node occupied", ErrStale)
	ErrNoSuchObject    = fmt.Errorf("%w: object does not exist", ErrStale)
	ErrNoSuchPlayer    = fmt.Errorf("%w: player does not exist", ErrStale)
	ErrNotOwner        = fmt.Errorf("%w: object owned by another player", ErrStale)
	ErrWrongKind       = fmt.Errorf("%w: wrong object kind", ErrStale)
	ErrUnknownBuilding = fmt.Errorf("%w: building type not buildable", ErrStale)
	ErrBadRoad         = fmt.Errorf("%w: road must connect two own flags", ErrStale)
	ErrBadName         = fmt.Errorf("%w: invalid name", ErrStale)
	ErrAlreadyComplete = fmt.Errorf("%w: construction already finished", ErrStale)
)
