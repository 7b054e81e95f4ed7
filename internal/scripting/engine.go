package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/world"
)

// APIVersion is exposed to scripts as the global API_VERSION.
const APIVersion = 1

// Host is what a running script may touch.
type Host interface {
	Now() gametime.Time
	State() *world.State
	Schedule(c command.Command) error
}

// Engine runs scripted commands. Single-goroutine access only (simulation
// loop).
//
// Every Run gets a fresh gopher-lua VM with the base, table, string and math
// libraries, minus the functions that read the clock, the file system, a
// random source or another function's environment. The shared library
// scripts are compiled once and replayed into each VM. Nothing a script
// writes survives its run, so a replica that reloaded from a save runs the
// next script exactly like one that never stopped.
type Engine struct {
	lib  []libChunk
	log  *zap.Logger
	host Host
}

type libChunk struct {
	path  string
	proto *lua.FunctionProto
}

// NewEngine compiles the shared library scripts in dir/lib in file name order
// and checks that they load. A missing directory is not an error.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{log: log}
	if dir != "" {
		if err := e.compileDir(filepath.Join(dir, "lib")); err != nil {
			return nil, fmt.Errorf("load lib scripts: %w", err)
		}
	}
	vm, err := e.newVM()
	if err != nil {
		return nil, err
	}
	vm.Close()
	return e, nil
}

// compileDir compiles all .lua files in a directory.
func (e *Engine) compileDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		proto, err := compileFile(path)
		if err != nil {
			return fmt.Errorf("compile %s: %w", path, err)
		}
		e.lib = append(e.lib, libChunk{path: path, proto: proto})
		e.log.Debug("載入 Lua 腳本", zap.String("file", path))
	}
	return nil
}

func compileFile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	chunk, err := parse.Parse(f, path)
	if err != nil {
		return nil, err
	}
	return lua.Compile(chunk, path)
}

// newVM builds a sandboxed VM with the script API and the shared library.
func (e *Engine) newVM() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := vm.CallByParam(lua.P{
			Fn:      vm.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	for _, name := range []string{
		"dofile", "loadfile", "load", "loadstring", "collectgarbage", "module", "require",
		"getfenv", "setfenv",
	} {
		vm.SetGlobal(name, lua.LNil)
	}
	if m, ok := vm.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		m.RawSetString("random", lua.LNil)
		m.RawSetString("randomseed", lua.LNil)
	}
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	e.registerAPI(vm)

	for _, chunk := range e.lib {
		vm.Push(vm.NewFunctionFromProto(chunk.proto))
		if err := vm.PCall(0, 0, nil); err != nil {
			vm.Close()
			return nil, fmt.Errorf("run %s: %w", chunk.path, err)
		}
	}
	return vm, nil
}

// Run compiles and executes source against host in a VM of its own. Compile
// and runtime errors are returned; the caller decides whether they are fatal.
func (e *Engine) Run(name, source string, host Host) error {
	vm, err := e.newVM()
	if err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	defer vm.Close()

	fn, err := vm.LoadString(source)
	if err != nil {
		return fmt.Errorf("script %s: compile: %w", name, err)
	}

	e.host = host
	defer func() { e.host = nil }()

	if err := vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// Close drops the compiled library.
func (e *Engine) Close() {
	e.lib = nil
}
