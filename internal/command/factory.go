package command

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/net/packet"
)

// Constructor returns a new, empty command of one variant.
type Constructor func() Command

// Factory maps tags to constructors. It is filled once at startup and
// read-only afterwards.
type Factory struct {
	ctors map[Tag]Constructor
	log   *zap.Logger
}

func NewFactory(log *zap.Logger) *Factory {
	return &Factory{
		ctors: make(map[Tag]Constructor),
		log:   log,
	}
}

// NewDefaultFactory returns a factory with every built-in variant registered.
func NewDefaultFactory(log *zap.Logger) *Factory {
	f := NewFactory(log)
	f.mustRegister(TagBuild, func() Command { return &Build{} })
	f.mustRegister(TagBuildFlag, func() Command { return &BuildFlag{} })
	f.mustRegister(TagBuildRoad, func() Command { return &BuildRoad{} })
	f.mustRegister(TagRename, func() Command { return &Rename{} })
	f.mustRegister(TagBulldoze, func() Command { return &Bulldoze{} })
	f.mustRegister(TagConstructionComplete, func() Command { return &ConstructionComplete{} })
	f.mustRegister(TagLuaScript, func() Command { return &LuaScript{} })
	return f
}

// Register adds a variant. Tag 0 and duplicate tags are rejected; the wire
// form carries tags as one byte, so tags above 255 are rejected too.
func (f *Factory) Register(tag Tag, ctor Constructor) error {
	if tag == TagNone || tag > 0xFF {
		return fmt.Errorf("command tag %d: out of range", uint16(tag))
	}
	if _, dup := f.ctors[tag]; dup {
		return fmt.Errorf("command tag %d: already registered", uint16(tag))
	}
	f.ctors[tag] = ctor
	return nil
}

func (f *Factory) mustRegister(tag Tag, ctor Constructor) {
	if err := f.Register(tag, ctor); err != nil {
		panic(err)
	}
}

// Create returns a fresh, empty command for tag.
func (f *Factory) Create(tag Tag) (Command, error) {
	ctor, ok := f.ctors[tag]
	if !ok {
		return nil, &TagError{Tag: tag}
	}
	return ctor(), nil
}

// Tags returns the registered tags in ascending order.
func (f *Factory) Tags() []Tag {
	out := make([]Tag, 0, len(f.ctors))
	for t := range f.ctors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decode builds a command from a complete wire packet.
func (f *Factory) Decode(data []byte) (Command, error) {
	if len(data) == 0 {
		return nil, malformed(TagNone, "packet", errors.New("empty packet"))
	}
	tag := Tag(data[0])
	c, err := f.Create(tag)
	if err != nil {
		f.log.Debug("未知指令標籤", zap.Uint16("tag", uint16(tag)), zap.Int("size", len(data)))
		return nil, err
	}
	if err := f.safeDeserialize(c, packet.NewReader(data)); err != nil {
		return nil, err
	}
	return c, nil
}

// safeDeserialize keeps a hostile packet from taking down the caller.
func (f *Factory) safeDeserialize(c Command, r *packet.Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			f.log.Error("指令解碼 panic 已恢復",
				zap.Stringer("tag", c.Tag()),
				zap.Any("panic", rec),
			)
			err = malformed(c.Tag(), "packet", fmt.Errorf("panic: %v", rec))
		}
	}()
	return c.Deserialize(r)
}
