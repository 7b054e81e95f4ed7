package world

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/l1jgo/lockstep/internal/codec"
)

const stateVersion = 1

// Write emits the whole map in object ID order and registers every object
// with objs, so commands written afterwards can refer to them by file index.
func (s *State) Write(w *codec.Writer, objs *codec.ObjectMap) {
	w.WriteH(stateVersion)
	w.WriteH(uint16(s.width))
	w.WriteH(uint16(s.height))
	w.WriteDU(uint32(s.nextID))

	players := s.Players()
	w.WriteC(byte(len(players)))
	for _, p := range players {
		w.WriteC(byte(p.Number))
		w.WriteS(p.Name)
	}

	objects := s.Objects()
	for _, o := range objects {
		objs.Register(uint32(o.ID))
	}
	w.WriteDU(uint32(len(objects)))
	for _, o := range objects {
		w.WriteDU(uint32(o.ID))
		w.WriteC(byte(o.Kind))
		w.WriteC(byte(o.Owner))
		w.WriteH(uint16(o.At.X))
		w.WriteH(uint16(o.At.Y))
		w.WriteS(o.Name)
		switch o.Kind {
		case KindBuilding:
			w.WriteS(o.Building)
			w.WriteC(boolByte(o.Complete))
			w.WriteDU(objs.FileIndex(uint32(o.Flag)))
		case KindRoad:
			w.WriteH(uint16(len(o.Path)))
			for _, c := range o.Path {
				w.WriteH(uint16(c.X))
				w.WriteH(uint16(c.Y))
			}
		}
	}
}

// Read replaces the state with one written by Write and binds every file
// index in objs. Building flags are resolved after all objects are known.
func (s *State) Read(r *codec.Reader, objs *codec.ObjectMap) error {
	version, err := r.ReadH()
	if err != nil {
		return fmt.Errorf("world: read version: %w", err)
	}
	if version != stateVersion {
		return fmt.Errorf("world: unhandled format version %d (supported %d)", version, stateVersion)
	}

	size, err := readCoords(r)
	if err != nil {
		return fmt.Errorf("world: read size: %w", err)
	}
	nextID, err := r.ReadDU()
	if err != nil {
		return fmt.Errorf("world: read next id: %w", err)
	}
	players, err := r.ReadC()
	if err != nil {
		return fmt.Errorf("world: read player count: %w", err)
	}

	fresh := NewState(size.X, size.Y, s.buildings)
	fresh.nextID = ObjectID(nextID)
	for i := 0; i < int(players); i++ {
		n, err := r.ReadC()
		if err != nil {
			return fmt.Errorf("world: player %d: %w", i, err)
		}
		name, err := r.ReadS()
		if err != nil {
			return fmt.Errorf("world: player %d name: %w", i, err)
		}
		if err := fresh.AddPlayer(PlayerNumber(n), name); err != nil {
			return fmt.Errorf("world: %w", err)
		}
	}

	count, err := r.ReadDU()
	if err != nil {
		return fmt.Errorf("world: object count: %w", err)
	}
	flagRefs := make(map[*Object]uint32)
	for i := uint32(0); i < count; i++ {
		o, flagIdx, err := readObject(r)
		if err != nil {
			return fmt.Errorf("world: object #%d: %w", i, err)
		}
		if o.ID == 0 || o.ID >= fresh.nextID || fresh.objects[o.ID] != nil {
			return fmt.Errorf("world: object #%d: bad id %d", i, o.ID)
		}
		fresh.objects[o.ID] = o
		objs.Bind(i+1, uint32(o.ID))
		if o.Kind == KindBuilding {
			flagRefs[o] = flagIdx
		}
		switch o.Kind {
		case KindFlag, KindBuilding:
			fresh.tiles[o.At] = o.ID
		case KindRoad:
			for _, c := range o.Path[1 : len(o.Path)-1] {
				fresh.tiles[c] = o.ID
			}
		}
	}
	for o, idx := range flagRefs {
		id, err := objs.ObjectID(idx)
		if err != nil {
			return fmt.Errorf("world: building %d flag: %w", o.ID, err)
		}
		o.Flag = ObjectID(id)
	}

	*s = *fresh
	return nil
}

func readObject(r *codec.Reader) (*Object, uint32, error) {
	var (
		o       Object
		flagIdx uint32
	)
	id, err := r.ReadDU()
	if err != nil {
		return nil, 0, err
	}
	o.ID = ObjectID(id)
	kind, err := r.ReadC()
	if err != nil {
		return nil, 0, err
	}
	o.Kind = ObjectKind(kind)
	owner, err := r.ReadC()
	if err != nil {
		return nil, 0, err
	}
	o.Owner = PlayerNumber(owner)
	if o.At, err = readCoords(r); err != nil {
		return nil, 0, err
	}
	if o.Name, err = r.ReadS(); err != nil {
		return nil, 0, err
	}

	switch o.Kind {
	case KindFlag:
	case KindBuilding:
		if o.Building, err = r.ReadS(); err != nil {
			return nil, 0, err
		}
		complete, err := r.ReadC()
		if err != nil {
			return nil, 0, err
		}
		o.Complete = complete != 0
		if flagIdx, err = r.ReadDU(); err != nil {
			return nil, 0, err
		}
	case KindRoad:
		n, err := r.ReadH()
		if err != nil {
			return nil, 0, err
		}
		if n < 2 {
			return nil, 0, fmt.Errorf("road %d with %d nodes", o.ID, n)
		}
		o.Path = make([]Coords, n)
		for i := range o.Path {
			if o.Path[i], err = readCoords(r); err != nil {
				return nil, 0, err
			}
		}
	default:
		return nil, 0, fmt.Errorf("object %d: unknown kind %d", o.ID, kind)
	}
	return &o, flagIdx, nil
}

func readCoords(r *codec.Reader) (Coords, error) {
	x, err := r.ReadH()
	if err != nil {
		return Coords{}, err
	}
	y, err := r.ReadH()
	if err != nil {
		return Coords{}, err
	}
	return Coords{X: int16(x), Y: int16(y)}, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Digest returns a checksum of the complete state. Replicas that executed
// the same command stream produce the same digest.
func (s *State) Digest() [32]byte {
	w := codec.NewWriter()
	s.Write(w, codec.NewObjectMap())
	return blake2b.Sum256(w.Bytes())
}
