package command

import (
	"fmt"

	"github.com/l1jgo/lockstep/internal/codec"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/net/packet"
)

const luaScriptVersion = 1

// Size limits of a LuaScript, in bytes. A script over either limit is never
// created, decoded or loaded, so every accepted script survives a save.
const (
	MaxScriptName   = 255
	MaxScriptSource = codec.MaxString
)

// LuaScript runs a chunk of Lua against the world at its due time. Script
// errors are fatal: a script that fails on one replica fails on all of them.
type LuaScript struct {
	Base
	Name   string
	Source string
}

// NewLuaScript fails with ErrScriptTooLong when name or source is over its
// limit.
func NewLuaScript(due gametime.Time, name, source string) (*LuaScript, error) {
	if err := checkScript(name, source); err != nil {
		return nil, err
	}
	c := &LuaScript{Name: name, Source: source}
	c.due = due
	return c, nil
}

func checkScript(name, source string) error {
	if len(name) > MaxScriptName {
		return fmt.Errorf("script name is %d bytes (max %d): %w", len(name), MaxScriptName, ErrScriptTooLong)
	}
	if len(source) > MaxScriptSource {
		return fmt.Errorf("script %s is %d bytes (max %d): %w", name, len(source), MaxScriptSource, ErrScriptTooLong)
	}
	return nil
}

func (c *LuaScript) Tag() Tag { return TagLuaScript }

func (c *LuaScript) Execute(w World) error {
	return w.RunScript(c.Name, c.Source)
}

func (c *LuaScript) Serialize(w *packet.Writer) {
	c.serializeHeader(w)
	w.WriteS(c.Name)
	w.WriteS(c.Source)
}

func (c *LuaScript) Deserialize(r *packet.Reader) error {
	c.deserializeHeader(r)
	c.Name = r.ReadS()
	c.Source = r.ReadS()
	if err := finishPacket(r, TagLuaScript); err != nil {
		return err
	}
	if err := checkScript(c.Name, c.Source); err != nil {
		return malformed(TagLuaScript, "script", err)
	}
	return nil
}

func (c *LuaScript) Write(w *codec.Writer, _ codec.ObjectSaver) {
	c.writeBase(w, luaScriptVersion)
	w.WriteS(c.Name)
	w.WriteS(c.Source)
}

func (c *LuaScript) Read(r *codec.Reader, _ codec.ObjectLoader) error {
	if _, err := c.readBase(r, TagLuaScript, luaScriptVersion, luaScriptVersion); err != nil {
		return err
	}
	name, err := r.ReadS()
	if err != nil {
		return malformed(TagLuaScript, "name", err)
	}
	src, err := r.ReadS()
	if err != nil {
		return malformed(TagLuaScript, "source", err)
	}
	if err := checkScript(name, src); err != nil {
		return malformed(TagLuaScript, "script", err)
	}
	c.Name, c.Source = name, src
	return nil
}
