package world

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/l1jgo/lockstep/internal/data"
)

// MaxNameLen bounds object names set by Rename, in runes.
const MaxNameLen = 48

// State holds the simulated map: players and the objects they own.
// Accessed only from the simulation goroutine.
type State struct {
	width     int16
	height    int16
	buildings *data.BuildingTable

	players map[PlayerNumber]*Player
	objects map[ObjectID]*Object
	tiles   map[Coords]ObjectID // node occupant (flag, building or road interior)
	nextID  ObjectID
}

// NewState creates an empty map of the given size.
func NewState(width, height int16, buildings *data.BuildingTable) *State {
	return &State{
		width:     width,
		height:    height,
		buildings: buildings,
		players:   make(map[PlayerNumber]*Player),
		objects:   make(map[ObjectID]*Object),
		tiles:     make(map[Coords]ObjectID),
		nextID:    1,
	}
}

func (s *State) Width() int16                   { return s.width }
func (s *State) Height() int16                  { return s.height }
func (s *State) Buildings() *data.BuildingTable { return s.buildings }
func (s *State) ObjectCount() int               { return len(s.objects) }
func (s *State) Player(n PlayerNumber) *Player  { return s.players[n] }
func (s *State) Object(id ObjectID) *Object     { return s.objects[id] }
func (s *State) InBounds(c Coords) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < s.width && c.Y < s.height
}

// ObjectAt returns the object occupying c, or nil.
func (s *State) ObjectAt(c Coords) *Object {
	id, ok := s.tiles[c]
	if !ok {
		return nil
	}
	return s.objects[id]
}

// AddPlayer registers a player slot. Used during game setup.
func (s *State) AddPlayer(n PlayerNumber, name string) error {
	if n == 0 {
		return fmt.Errorf("player number 0 is reserved")
	}
	if _, dup := s.players[n]; dup {
		return fmt.Errorf("player %d already exists", n)
	}
	s.players[n] = &Player{Number: n, Name: name}
	return nil
}

// Players returns all players ordered by number.
func (s *State) Players() []*Player {
	out := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Objects returns all objects ordered by ID.
func (s *State) Objects() []*Object {
	out := make([]*Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) add(o *Object) ObjectID {
	o.ID = s.nextID
	s.nextID++
	s.objects[o.ID] = o
	return o.ID
}

func (s *State) checkPlayer(p PlayerNumber) error {
	if _, ok := s.players[p]; !ok {
		return fmt.Errorf("player %d: %w", p, ErrNoSuchPlayer)
	}
	return nil
}

func (s *State) checkFree(c Coords) error {
	if !s.InBounds(c) {
		return fmt.Errorf("node %s: %w", c, ErrOutOfBounds)
	}
	if o := s.ObjectAt(c); o != nil {
		return fmt.Errorf("node %s holds %s %d: %w", c, o.Kind, o.ID, ErrOccupied)
	}
	return nil
}

// PlaceFlag puts a flag for player p on a free node.
func (s *State) PlaceFlag(p PlayerNumber, at Coords) (ObjectID, error) {
	if err := s.checkPlayer(p); err != nil {
		return 0, err
	}
	if err := s.checkFree(at); err != nil {
		return 0, err
	}
	id := s.add(&Object{Kind: KindFlag, Owner: p, At: at})
	s.tiles[at] = id
	return id, nil
}

// FlagSite returns the node where a building at c keeps its flag.
func FlagSite(c Coords) Coords {
	return c.Neighbour(DirSouth)
}

// PlaceBuilding starts construction of a building of type name at node at.
// The building's flag sits south of it; an own flag there is reused, a free
// node gets a new flag.
func (s *State) PlaceBuilding(p PlayerNumber, at Coords, name string) (ObjectID, error) {
	if err := s.checkPlayer(p); err != nil {
		return 0, err
	}
	info := s.buildings.Get(name)
	if info == nil || !info.Buildable {
		return 0, fmt.Errorf("building %q: %w", name, ErrUnknownBuilding)
	}
	if err := s.checkFree(at); err != nil {
		return 0, err
	}

	site := FlagSite(at)
	flag := s.ObjectAt(site)
	switch {
	case flag == nil:
		if err := s.checkFree(site); err != nil {
			return 0, err
		}
	case flag.Kind != KindFlag:
		return 0, fmt.Errorf("flag site %s holds %s: %w", site, flag.Kind, ErrOccupied)
	case flag.Owner != p:
		return 0, fmt.Errorf("flag %d: %w", flag.ID, ErrNotOwner)
	}

	var flagID ObjectID
	if flag == nil {
		flagID = s.add(&Object{Kind: KindFlag, Owner: p, At: site})
		s.tiles[site] = flagID
	} else {
		flagID = flag.ID
	}
	id := s.add(&Object{
		Kind:     KindBuilding,
		Owner:    p,
		At:       at,
		Building: name,
		Complete: info.BuildTime == 0,
		Flag:     flagID,
	})
	s.tiles[at] = id
	return id, nil
}

// Walk expands a start node and step list into the nodes it visits.
func (s *State) Walk(start Coords, steps []Direction) ([]Coords, error) {
	path := make([]Coords, 0, len(steps)+1)
	path = append(path, start)
	c := start
	for i, d := range steps {
		if !d.Valid() {
			return nil, fmt.Errorf("step %d: direction %d: %w", i, d, ErrBadRoad)
		}
		c = c.Neighbour(d)
		if !s.InBounds(c) {
			return nil, fmt.Errorf("step %d to %s: %w", i, c, ErrOutOfBounds)
		}
		path = append(path, c)
	}
	return path, nil
}

// BuildRoad connects two of player p's flags along path. Interior nodes must
// be free and the path must not cross itself.
func (s *State) BuildRoad(p PlayerNumber, path []Coords) (ObjectID, error) {
	if err := s.checkPlayer(p); err != nil {
		return 0, err
	}
	if len(path) < 2 {
		return 0, fmt.Errorf("road of %d nodes: %w", len(path), ErrBadRoad)
	}
	for _, end := range []Coords{path[0], path[len(path)-1]} {
		o := s.ObjectAt(end)
		if o == nil || o.Kind != KindFlag || o.Owner != p {
			return 0, fmt.Errorf("road end %s: %w", end, ErrBadRoad)
		}
	}
	seen := make(map[Coords]bool, len(path))
	for i, c := range path {
		if seen[c] {
			return 0, fmt.Errorf("road crosses itself at %s: %w", c, ErrBadRoad)
		}
		seen[c] = true
		if i == 0 || i == len(path)-1 {
			continue
		}
		if err := s.checkFree(c); err != nil {
			return 0, err
		}
	}

	nodes := make([]Coords, len(path))
	copy(nodes, path)
	id := s.add(&Object{Kind: KindRoad, Owner: p, At: path[0], Path: nodes})
	for _, c := range nodes[1 : len(nodes)-1] {
		s.tiles[c] = id
	}
	return id, nil
}

// Rename sets the display name of an object. Player 0 may rename anything.
func (s *State) Rename(p PlayerNumber, id ObjectID, name string) error {
	o, err := s.owned(p, id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		return fmt.Errorf("name %q: %w", name, ErrBadName)
	}
	o.Name = name
	return nil
}

// CompleteConstruction finishes a building under construction.
func (s *State) CompleteConstruction(id ObjectID) error {
	o := s.objects[id]
	if o == nil {
		return fmt.Errorf("object %d: %w", id, ErrNoSuchObject)
	}
	if o.Kind != KindBuilding {
		return fmt.Errorf("object %d is a %s: %w", id, o.Kind, ErrWrongKind)
	}
	if o.Complete {
		return fmt.Errorf("building %d: %w", id, ErrAlreadyComplete)
	}
	o.Complete = true
	return nil
}

// Destroy removes an object owned by p. Destroying a flag also destroys the
// buildings and roads attached to it.
func (s *State) Destroy(p PlayerNumber, id ObjectID) error {
	o, err := s.owned(p, id)
	if err != nil {
		return err
	}
	if o.Kind == KindFlag {
		var attached []ObjectID
		for _, other := range s.objects {
			switch {
			case other.Kind == KindBuilding && other.Flag == o.ID:
				attached = append(attached, other.ID)
			case other.Kind == KindRoad && (other.Path[0] == o.At || other.Path[len(other.Path)-1] == o.At):
				attached = append(attached, other.ID)
			}
		}
		for _, a := range attached {
			s.remove(s.objects[a])
		}
	}
	s.remove(o)
	return nil
}

func (s *State) remove(o *Object) {
	switch o.Kind {
	case KindFlag, KindBuilding:
		delete(s.tiles, o.At)
	case KindRoad:
		for _, c := range o.Path[1 : len(o.Path)-1] {
			delete(s.tiles, c)
		}
	}
	delete(s.objects, o.ID)
}

func (s *State) owned(p PlayerNumber, id ObjectID) (*Object, error) {
	o := s.objects[id]
	if o == nil {
		return nil, fmt.Errorf("object %d: %w", id, ErrNoSuchObject)
	}
	if p != 0 && o.Owner != p {
		return nil, fmt.Errorf("object %d owned by %d, not %d: %w", id, o.Owner, p, ErrNotOwner)
	}
	return o, nil
}
