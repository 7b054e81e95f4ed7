package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/data"
)

const testBuildings = `
buildings:
  - name: headquarters
    size: big
    buildable: false
  - name: lumberjacks_hut
    size: small
    build_time: 40000
    buildable: true
  - name: well
    size: small
    build_time: 0
    buildable: true
`

func newTestState(t *testing.T) *State {
	t.Helper()
	tbl, err := data.ParseBuildingTable([]byte(testBuildings))
	require.NoError(t, err)
	s := NewState(32, 32, tbl)
	require.NoError(t, s.AddPlayer(1, "Barbarians"))
	require.NoError(t, s.AddPlayer(2, "Empire"))
	return s
}

func TestState_AddPlayer(t *testing.T) {
	s := newTestState(t)
	assert.Error(t, s.AddPlayer(0, "nobody"))
	assert.Error(t, s.AddPlayer(1, "again"))
	require.Len(t, s.Players(), 2)
	assert.Equal(t, PlayerNumber(1), s.Players()[0].Number)
}

func TestState_PlaceFlag(t *testing.T) {
	s := newTestState(t)

	id, err := s.PlaceFlag(1, Coords{3, 3})
	require.NoError(t, err)
	assert.Equal(t, ObjectID(1), id)
	assert.Equal(t, KindFlag, s.ObjectAt(Coords{3, 3}).Kind)

	_, err = s.PlaceFlag(2, Coords{3, 3})
	assert.ErrorIs(t, err, ErrOccupied)
	assert.ErrorIs(t, err, ErrStale)

	_, err = s.PlaceFlag(1, Coords{-1, 0})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = s.PlaceFlag(7, Coords{5, 5})
	assert.ErrorIs(t, err, ErrNoSuchPlayer)
}

func TestState_PlaceBuilding(t *testing.T) {
	s := newTestState(t)

	id, err := s.PlaceBuilding(1, Coords{4, 4}, "lumberjacks_hut")
	require.NoError(t, err)
	b := s.Object(id)
	require.NotNil(t, b)
	assert.False(t, b.Complete)
	flag := s.Object(b.Flag)
	require.NotNil(t, flag)
	assert.Equal(t, Coords{4, 5}, flag.At)

	wellID, err := s.PlaceBuilding(1, Coords{6, 4}, "well")
	require.NoError(t, err)
	assert.True(t, s.Object(wellID).Complete, "zero build time finishes at once")

	_, err = s.PlaceBuilding(1, Coords{10, 10}, "headquarters")
	assert.ErrorIs(t, err, ErrUnknownBuilding)

	// Player 2 cannot use player 1's flag.
	_, err = s.PlaceBuilding(2, Coords{4, 6}, "well")
	require.NoError(t, err, "flag site (4,7) is free")
	_, err = s.PlaceBuilding(2, Coords{4, 3}, "well")
	assert.ErrorIs(t, err, ErrOccupied, "flag site is player 1's building")
}

func TestState_PlaceBuildingReusesOwnFlag(t *testing.T) {
	s := newTestState(t)
	flagID, err := s.PlaceFlag(1, Coords{8, 9})
	require.NoError(t, err)

	id, err := s.PlaceBuilding(1, Coords{8, 8}, "lumberjacks_hut")
	require.NoError(t, err)
	assert.Equal(t, flagID, s.Object(id).Flag)

	_, err = s.PlaceFlag(2, Coords{12, 13})
	require.NoError(t, err)
	_, err = s.PlaceBuilding(1, Coords{12, 12}, "well")
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestState_BuildRoad(t *testing.T) {
	s := newTestState(t)
	_, err := s.PlaceFlag(1, Coords{2, 2})
	require.NoError(t, err)
	_, err = s.PlaceFlag(1, Coords{5, 2})
	require.NoError(t, err)

	path, err := s.Walk(Coords{2, 2}, []Direction{DirEast, DirEast, DirEast})
	require.NoError(t, err)
	require.Len(t, path, 4)

	id, err := s.BuildRoad(1, path)
	require.NoError(t, err)
	assert.Equal(t, id, s.ObjectAt(Coords{3, 2}).ID)

	_, err = s.BuildRoad(1, path)
	assert.ErrorIs(t, err, ErrOccupied, "interior already taken")

	_, err = s.BuildRoad(2, path)
	assert.ErrorIs(t, err, ErrBadRoad, "ends belong to player 1")

	_, err = s.Walk(Coords{0, 0}, []Direction{DirNorth})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = s.Walk(Coords{0, 0}, []Direction{9})
	assert.ErrorIs(t, err, ErrBadRoad)
}

func TestState_RenameAndDestroy(t *testing.T) {
	s := newTestState(t)
	id, err := s.PlaceBuilding(1, Coords{4, 4}, "lumberjacks_hut")
	require.NoError(t, err)

	require.NoError(t, s.Rename(1, id, "  North Camp "))
	assert.Equal(t, "North Camp", s.Object(id).Name)
	assert.ErrorIs(t, s.Rename(2, id, "Mine"), ErrNotOwner)
	assert.ErrorIs(t, s.Rename(1, id, "   "), ErrBadName)
	assert.ErrorIs(t, s.Rename(1, 999, "x"), ErrNoSuchObject)
	require.NoError(t, s.Rename(0, id, "Scripted"), "player 0 renames anything")

	flagID := s.Object(id).Flag
	require.NoError(t, s.Destroy(1, flagID))
	assert.Nil(t, s.Object(id), "building goes with its flag")
	assert.Nil(t, s.ObjectAt(Coords{4, 4}))
	assert.Equal(t, 0, s.ObjectCount())
	assert.ErrorIs(t, s.Destroy(1, flagID), ErrNoSuchObject)
}

func TestState_CompleteConstruction(t *testing.T) {
	s := newTestState(t)
	id, err := s.PlaceBuilding(1, Coords{4, 4}, "lumberjacks_hut")
	require.NoError(t, err)

	require.NoError(t, s.CompleteConstruction(id))
	assert.True(t, s.Object(id).Complete)
	assert.ErrorIs(t, s.CompleteConstruction(id), ErrAlreadyComplete)
	assert.ErrorIs(t, s.CompleteConstruction(s.Object(id).Flag), ErrWrongKind)
	assert.ErrorIs(t, s.CompleteConstruction(77), ErrNoSuchObject)
}

func TestState_WriteReadFixedPoint(t *testing.T) {
	s := newTestState(t)
	_, err := s.PlaceFlag(1, Coords{2, 2})
	require.NoError(t, err)
	_, err = s.PlaceFlag(1, Coords{5, 2})
	require.NoError(t, err)
	path, err := s.Walk(Coords{2, 2}, []Direction{DirEast, DirEast, DirEast})
	require.NoError(t, err)
	_, err = s.BuildRoad(1, path)
	require.NoError(t, err)
	hut, err := s.PlaceBuilding(2, Coords{10, 10}, "lumberjacks_hut")
	require.NoError(t, err)
	require.NoError(t, s.Rename(2, hut, "Sägewerk"))
	gone, err := s.PlaceFlag(2, Coords{20, 20})
	require.NoError(t, err)
	require.NoError(t, s.Destroy(2, gone))

	w1 := codec.NewWriter()
	m1 := codec.NewObjectMap()
	s.Write(w1, m1)
	assert.Equal(t, s.ObjectCount(), m1.Len())

	loaded := NewState(0, 0, s.Buildings())
	m2 := codec.NewObjectMap()
	require.NoError(t, loaded.Read(codec.NewReader(w1.Bytes()), m2))

	w2 := codec.NewWriter()
	loaded.Write(w2, codec.NewObjectMap())
	assert.Equal(t, w1.Bytes(), w2.Bytes())
	assert.Equal(t, s.Digest(), loaded.Digest())

	// Same IDs keep being handed out after a reload.
	a, err := s.PlaceFlag(1, Coords{30, 30})
	require.NoError(t, err)
	b, err := loaded.PlaceFlag(1, Coords{30, 30})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, "Sägewerk", loaded.Object(hut).Name)
	assert.Equal(t, hut, loaded.ObjectAt(Coords{10, 10}).ID)
	id, err := m2.ObjectID(m1.FileIndex(uint32(hut)))
	require.NoError(t, err)
	assert.Equal(t, uint32(hut), id)
}

func TestState_ReadRejectsBadInput(t *testing.T) {
	s := newTestState(t)
	w := codec.NewWriter()
	s.Write(w, codec.NewObjectMap())
	data := w.Bytes()

	assert.Error(t, NewState(0, 0, nil).Read(codec.NewReader(data[:len(data)-1]), codec.NewObjectMap()))

	bad := append([]byte{}, data...)
	bad[0] = 99
	assert.Error(t, NewState(0, 0, nil).Read(codec.NewReader(bad), codec.NewObjectMap()))
}
