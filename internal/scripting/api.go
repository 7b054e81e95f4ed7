package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/world"
)

func (e *Engine) registerAPI(vm *lua.LState) {
	for _, api := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{"game_time", e.luaGameTime},
		{"place_flag", e.luaPlaceFlag},
		{"place_building", e.luaPlaceBuilding},
		{"rename", e.luaRename},
		{"object", e.luaObject},
		{"schedule_script", e.luaScheduleScript},
		{"log", e.luaLog},
		{"print", e.luaLog},
	} {
		vm.SetGlobal(api.name, vm.NewFunction(api.fn))
	}
}

func (e *Engine) mustHost(L *lua.LState) Host {
	if e.host == nil {
		L.RaiseError("no game attached")
	}
	return e.host
}

// staleResult pushes nil plus the reason, the way Lua library calls report
// failures the script may handle.
func staleResult(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

func checkCoords(L *lua.LState, n int) world.Coords {
	return world.Coords{X: int16(L.CheckInt(n)), Y: int16(L.CheckInt(n + 1))}
}

// game_time() -> ms
func (e *Engine) luaGameTime(L *lua.LState) int {
	L.Push(lua.LNumber(e.mustHost(L).Now()))
	return 1
}

// place_flag(player, x, y) -> id | nil, reason
func (e *Engine) luaPlaceFlag(L *lua.LState) int {
	h := e.mustHost(L)
	id, err := h.State().PlaceFlag(world.PlayerNumber(L.CheckInt(1)), checkCoords(L, 2))
	if err != nil {
		return staleResult(L, err)
	}
	L.Push(lua.LNumber(id))
	return 1
}

// place_building(player, x, y, name) -> id | nil, reason
//
// Buildings with a build time get their completion scheduled like player
// builds do.
func (e *Engine) luaPlaceBuilding(L *lua.LState) int {
	h := e.mustHost(L)
	st := h.State()
	name := L.CheckString(4)
	id, err := st.PlaceBuilding(world.PlayerNumber(L.CheckInt(1)), checkCoords(L, 2), name)
	if err != nil {
		return staleResult(L, err)
	}
	if info := st.Buildings().Get(name); info.BuildTime > 0 {
		due := h.Now().Add(gametime.Duration(info.BuildTime))
		if err := h.Schedule(command.NewConstructionComplete(due, id)); err != nil {
			L.RaiseError("schedule construction: %s", err.Error())
		}
	}
	L.Push(lua.LNumber(id))
	return 1
}

// rename(id, name) -> true | nil, reason
func (e *Engine) luaRename(L *lua.LState) int {
	h := e.mustHost(L)
	if err := h.State().Rename(0, world.ObjectID(L.CheckInt(1)), L.CheckString(2)); err != nil {
		return staleResult(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// object(id) -> table | nil
func (e *Engine) luaObject(L *lua.LState) int {
	o := e.mustHost(L).State().Object(world.ObjectID(L.CheckInt(1)))
	if o == nil {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	t.RawSetString("id", lua.LNumber(o.ID))
	t.RawSetString("kind", lua.LString(o.Kind.String()))
	t.RawSetString("owner", lua.LNumber(o.Owner))
	t.RawSetString("x", lua.LNumber(o.At.X))
	t.RawSetString("y", lua.LNumber(o.At.Y))
	t.RawSetString("name", lua.LString(o.Name))
	if o.Kind == world.KindBuilding {
		t.RawSetString("building", lua.LString(o.Building))
		t.RawSetString("complete", lua.LBool(o.Complete))
		t.RawSetString("flag", lua.LNumber(o.Flag))
	}
	L.Push(t)
	return 1
}

// schedule_script(delay_ms, name, source)
func (e *Engine) luaScheduleScript(L *lua.LState) int {
	h := e.mustHost(L)
	delay := L.CheckInt(1)
	if delay < 0 {
		L.ArgError(1, "delay must not be negative")
	}
	c, err := command.NewLuaScript(h.Now().Add(gametime.Duration(delay)), L.CheckString(2), L.CheckString(3))
	if err != nil {
		L.RaiseError("schedule script: %s", err.Error())
	}
	if err := h.Schedule(c); err != nil {
		L.RaiseError("schedule script: %s", err.Error())
	}
	return 0
}

// log(...) writes the arguments as one line at info level.
func (e *Engine) luaLog(L *lua.LState) int {
	msg := ""
	for i := 1; i <= L.GetTop(); i++ {
		if i > 1 {
			msg += " "
		}
		msg += L.ToStringMeta(L.Get(i)).String()
	}
	fields := []zap.Field{zap.String("msg", msg)}
	if e.host != nil {
		fields = append(fields, zap.Stringer("gametime", e.host.Now()))
	}
	e.log.Info("腳本訊息", fields...)
	return 0
}
