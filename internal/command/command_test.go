package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/data"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/world"
)

const testBuildings = `
buildings:
  - name: lumberjacks_hut
    build_time: 40000
    buildable: true
  - name: well
    build_time: 0
    buildable: true
`

type fakeWorld struct {
	now         gametime.Time
	st          *world.State
	scheduled   []Command
	stale       []Command
	scripts     []string
	scriptErr   error
	scheduleErr error
}

func newFakeWorld(t *testing.T) *fakeWorld {
	t.Helper()
	tbl, err := data.ParseBuildingTable([]byte(testBuildings))
	require.NoError(t, err)
	st := world.NewState(32, 32, tbl)
	require.NoError(t, st.AddPlayer(1, "Barbarians"))
	require.NoError(t, st.AddPlayer(2, "Empire"))
	return &fakeWorld{now: 1000, st: st}
}

func (w *fakeWorld) Now() gametime.Time  { return w.now }
func (w *fakeWorld) State() *world.State { return w.st }

func (w *fakeWorld) Schedule(c Command) error {
	if w.scheduleErr != nil {
		return w.scheduleErr
	}
	w.scheduled = append(w.scheduled, c)
	return nil
}

func (w *fakeWorld) RunScript(name, _ string) error {
	w.scripts = append(w.scripts, name)
	return w.scriptErr
}

func (w *fakeWorld) Stale(c Command, _ error) { w.stale = append(w.stale, c) }

func mustScript(due gametime.Time, name, source string) *LuaScript {
	c, err := NewLuaScript(due, name, source)
	if err != nil {
		panic(err)
	}
	return c
}

func allVariants() []Command {
	return []Command{
		NewBuild(1, 500, world.Coords{X: 4, Y: 4}, "lumberjacks_hut"),
		NewBuildFlag(2, 600, world.Coords{X: -3, Y: 7}),
		NewBuildRoad(1, 700, world.Coords{X: 2, Y: 2}, []world.Direction{world.DirEast, world.DirSouth, world.DirEast}),
		NewRename(1, 800, 5, "Nordlager"),
		NewBulldoze(2, 900, 5),
		NewConstructionComplete(1000, 5),
		mustScript(1100, "intro", "log('hi')"),
	}
}

func TestFactory_DefaultTags(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	assert.Equal(t, []Tag{
		TagBuild, TagBuildFlag, TagBuildRoad, TagRename,
		TagBulldoze, TagConstructionComplete, TagLuaScript,
	}, f.Tags())

	for _, tag := range f.Tags() {
		c, err := f.Create(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, c.Tag())
		assert.Zero(t, c.DueTime())
	}
}

func TestFactory_Register(t *testing.T) {
	f := NewFactory(zap.NewNop())
	require.NoError(t, f.Register(TagBuild, func() Command { return &Build{} }))
	assert.Error(t, f.Register(TagBuild, func() Command { return &Build{} }))
	assert.Error(t, f.Register(TagNone, func() Command { return &Build{} }))
	assert.Error(t, f.Register(300, func() Command { return &Build{} }))
}

func TestFactory_CreateUnknownTag(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	_, err := f.Create(99)
	require.ErrorIs(t, err, ErrUnknownVariantTag)
	var tagErr *TagError
	require.True(t, errors.As(err, &tagErr))
	assert.Equal(t, Tag(99), tagErr.Tag)

	_, err = f.Decode([]byte{200, 1, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrUnknownVariantTag)
}

func TestWireRoundTrip(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	for _, c := range allVariants() {
		t.Run(c.Tag().String(), func(t *testing.T) {
			wire := Encode(c)
			assert.Equal(t, byte(c.Tag()), wire[0])

			got, err := f.Decode(wire)
			require.NoError(t, err)
			assert.Equal(t, c, got)
			assert.Equal(t, c.Sender(), got.Sender())
			assert.Equal(t, wire, Encode(got))
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	wire := Encode(NewBuild(1, 500, world.Coords{X: 4, Y: 4}, "well"))

	_, err := f.Decode(wire[:len(wire)-1])
	require.ErrorIs(t, err, ErrMalformedPayload)
	var pe *PayloadError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, TagBuild, pe.Tag)

	_, err = f.Decode(append(append([]byte{}, wire...), 0))
	assert.ErrorIs(t, err, ErrMalformedPayload, "trailing bytes")

	_, err = f.Decode(nil)
	assert.ErrorIs(t, err, ErrMalformedPayload)

	// Step count beyond the limit.
	road := Encode(NewBuildRoad(1, 0, world.Coords{}, nil))
	road[len(road)-2] = 0xFF
	road[len(road)-1] = 0xFF
	_, err = f.Decode(road)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSaveRoundTrip(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	saver := codec.NewObjectMap()
	saver.Register(3)
	idx := saver.Register(5)

	loader := codec.NewObjectMap()
	loader.Bind(1, 30)
	loader.Bind(idx, 50)

	for _, c := range allVariants() {
		t.Run(c.Tag().String(), func(t *testing.T) {
			w := codec.NewWriter()
			c.Write(w, saver)

			got, err := f.Create(c.Tag())
			require.NoError(t, err)
			r := codec.NewReader(w.Bytes())
			require.NoError(t, got.Read(r, loader))
			assert.Zero(t, r.Remaining())
			assert.Equal(t, c.DueTime(), got.DueTime())

			// Object references come back as the loader's live IDs.
			switch g := got.(type) {
			case *Rename:
				assert.Equal(t, world.ObjectID(50), g.Object)
				assert.Equal(t, "Nordlager", g.Name)
			case *Bulldoze:
				assert.Equal(t, world.ObjectID(50), g.Object)
			case *ConstructionComplete:
				assert.Equal(t, world.ObjectID(50), g.Building)
			default:
				if s, ok := c.(Sendable); ok {
					got.(Sendable).SetSender(s.Sender())
				}
				assert.Equal(t, c, got)
			}
		})
	}
}

func TestSaveRead_VersionMismatch(t *testing.T) {
	w := codec.NewWriter()
	NewBuild(1, 500, world.Coords{X: 4, Y: 4}, "well").Write(w, codec.NewObjectMap())
	raw := w.Bytes()
	raw[0] = 9

	err := (&Build{}).Read(codec.NewReader(raw), codec.NewObjectMap())
	require.ErrorIs(t, err, ErrUnhandledFormatVersion)
	var ve *VersionError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, uint16(9), ve.Observed)
	assert.Equal(t, TagBuild, ve.Tag)
	assert.Contains(t, err.Error(), "build")
}

func TestSaveRead_Truncated(t *testing.T) {
	w := codec.NewWriter()
	NewRename(1, 500, 0, "x").Write(w, codec.NewObjectMap())
	raw := w.Bytes()

	err := (&Rename{}).Read(codec.NewReader(raw[:len(raw)-1]), codec.NewObjectMap())
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, codec.ErrTruncated)

	// Unknown file index.
	w = codec.NewWriter()
	w.WriteH(renameVersion)
	w.WriteDU(500)
	w.WriteDU(42)
	w.WriteS("x")
	err = (&Rename{}).Read(codec.NewReader(w.Bytes()), codec.NewObjectMap())
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, codec.ErrUnknownObject)
}

func TestBuildRoad_ReadsVersion1(t *testing.T) {
	w := codec.NewWriter()
	w.WriteH(1)
	w.WriteDU(700)
	w.WriteH(2)
	w.WriteH(2)
	w.WriteH(2)
	w.WriteH(uint16(world.DirEast))
	w.WriteH(uint16(world.DirSouth))

	var c BuildRoad
	require.NoError(t, c.Read(codec.NewReader(w.Bytes()), codec.NewObjectMap()))
	assert.Equal(t, gametime.Time(700), c.DueTime())
	assert.Equal(t, world.Coords{X: 2, Y: 2}, c.Start)
	assert.Equal(t, []world.Direction{world.DirEast, world.DirSouth}, c.Steps)

	// Written back at the current version.
	out := codec.NewWriter()
	c.Write(out, codec.NewObjectMap())
	assert.Equal(t, byte(buildRoadVersion), out.Bytes()[0])
}

func TestBuild_SchedulesCompletion(t *testing.T) {
	w := newFakeWorld(t)

	hut := NewBuild(1, 1000, world.Coords{X: 4, Y: 4}, "lumberjacks_hut")
	require.NoError(t, hut.Execute(w))
	require.Len(t, w.scheduled, 1)
	done, ok := w.scheduled[0].(*ConstructionComplete)
	require.True(t, ok)
	assert.Equal(t, gametime.Time(41000), done.DueTime())
	assert.Equal(t, CategoryEngine, done.Category())
	assert.False(t, w.st.Object(done.Building).Complete)

	require.NoError(t, done.Execute(w))
	assert.True(t, w.st.Object(done.Building).Complete)

	require.NoError(t, NewBuild(1, 1000, world.Coords{X: 8, Y: 4}, "well").Execute(w))
	assert.Len(t, w.scheduled, 1, "zero build time needs no follow-up")
	assert.Empty(t, w.stale)
}

func TestBuild_ScheduleErrorIsFatal(t *testing.T) {
	w := newFakeWorld(t)
	w.scheduleErr = errors.New("illegal schedule")
	err := NewBuild(1, 1000, world.Coords{X: 4, Y: 4}, "lumberjacks_hut").Execute(w)
	assert.EqualError(t, err, "illegal schedule")
}

func TestExecute_StaleIsNoOp(t *testing.T) {
	w := newFakeWorld(t)
	require.NoError(t, NewBuildFlag(1, 1000, world.Coords{X: 3, Y: 3}).Execute(w))
	before := w.st.Digest()

	stale := []Command{
		NewBuildFlag(2, 1000, world.Coords{X: 3, Y: 3}),
		NewBuild(1, 1000, world.Coords{X: 3, Y: 3}, "well"),
		NewBuild(1, 1000, world.Coords{X: 9, Y: 9}, "castle"),
		NewRename(2, 1000, 1, "mine"),
		NewBulldoze(2, 1000, 1),
		NewConstructionComplete(1000, 77),
		NewBuildRoad(1, 1000, world.Coords{X: 0, Y: 0}, []world.Direction{world.DirNorth}),
	}
	for _, c := range stale {
		assert.NoError(t, c.Execute(w), c.Tag().String())
	}
	assert.Len(t, w.stale, len(stale))
	assert.Equal(t, before, w.st.Digest())
}

func TestBuildRoad_ResolvesPathOnExecute(t *testing.T) {
	w := newFakeWorld(t)
	require.NoError(t, NewBuildFlag(1, 1000, world.Coords{X: 2, Y: 2}).Execute(w))
	require.NoError(t, NewBuildFlag(1, 1000, world.Coords{X: 5, Y: 2}).Execute(w))

	steps := []world.Direction{world.DirEast, world.DirEast, world.DirEast}
	road := NewBuildRoad(1, 1000, world.Coords{X: 2, Y: 2}, steps)
	assert.Nil(t, road.Path())
	require.NoError(t, road.Execute(w))
	assert.Len(t, road.Path(), 4)
	assert.Equal(t, world.KindRoad, w.st.ObjectAt(world.Coords{X: 3, Y: 2}).Kind)

	again := NewBuildRoad(1, 1000, world.Coords{X: 2, Y: 2}, steps)
	require.NoError(t, again.Execute(w))
	assert.Len(t, w.stale, 1)
}

func TestLuaScript_Execute(t *testing.T) {
	w := newFakeWorld(t)
	require.NoError(t, mustScript(1000, "intro", "").Execute(w))
	assert.Equal(t, []string{"intro"}, w.scripts)

	w.scriptErr = errors.New("boom")
	assert.Error(t, mustScript(1000, "broken", "").Execute(w))
	assert.Empty(t, w.stale)
}

func TestCategories(t *testing.T) {
	for _, c := range allVariants() {
		_, player := c.(Sendable)
		if player {
			assert.Equal(t, CategoryPlayer, c.Category(), c.Tag().String())
			assert.NotZero(t, c.Sender())
		} else {
			assert.Equal(t, CategoryEngine, c.Category(), c.Tag().String())
			assert.Zero(t, c.Sender())
		}
	}
}

func TestLuaScript_SizeLimit(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	body := "\nreturn 1"
	src := "-- " + strings.Repeat("x", MaxScriptSource-3-len(body)) + body
	require.Len(t, src, MaxScriptSource)

	c := mustScript(1000, "big", src)
	w := codec.NewWriter()
	c.Write(w, codec.NewObjectMap())
	require.NoError(t, w.Err())
	got, err := f.Create(TagLuaScript)
	require.NoError(t, err)
	require.NoError(t, got.Read(codec.NewReader(w.Bytes()), codec.NewObjectMap()))
	assert.Equal(t, src, got.(*LuaScript).Source)

	_, err = NewLuaScript(1000, "big", src+"x")
	assert.ErrorIs(t, err, ErrScriptTooLong)
	_, err = NewLuaScript(1000, strings.Repeat("n", MaxScriptName+1), "")
	assert.ErrorIs(t, err, ErrScriptTooLong)

	// The wire form has no length prefix, so the limit is checked on decode.
	over := &LuaScript{Name: "big", Source: src + "x"}
	_, err = f.Decode(Encode(over))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, ErrScriptTooLong)

	// A save record with an overlong name is refused on load.
	w = codec.NewWriter()
	w.WriteH(luaScriptVersion)
	w.WriteDU(1000)
	w.WriteS(strings.Repeat("n", MaxScriptName+1))
	w.WriteS("")
	err = (&LuaScript{}).Read(codec.NewReader(w.Bytes()), codec.NewObjectMap())
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, ErrScriptTooLong)
}

func TestDecode_OverlongNames(t *testing.T) {
	f := NewDefaultFactory(zap.NewNop())
	long := strings.Repeat("a", codec.MaxString+1)

	_, err := f.Decode(Encode(NewRename(1, 500, 3, long)))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, codec.ErrStringTooLong)

	_, err = f.Decode(Encode(NewBuild(1, 500, world.Coords{X: 1, Y: 1}, long)))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.ErrorIs(t, err, codec.ErrStringTooLong)
}
