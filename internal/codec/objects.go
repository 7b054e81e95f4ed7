package codec

import (
	"errors"
	"fmt"
)

// ErrUnknownObject is returned when a file index has no bound live object.
var ErrUnknownObject = errors.New("unknown object file index")

// ObjectSaver maps live object IDs to small file-local indices while saving.
// Index 0 means "no object".
type ObjectSaver interface {
	FileIndex(id uint32) uint32
}

// ObjectLoader maps file indices back to live object IDs while loading.
type ObjectLoader interface {
	ObjectID(index uint32) (uint32, error)
}

// ObjectMap is the identity resolver used by one save or one load. Indices
// are handed out in registration order, starting at 1.
type ObjectMap struct {
	toFile map[uint32]uint32
	toLive map[uint32]uint32
	next   uint32
}

func NewObjectMap() *ObjectMap {
	return &ObjectMap{
		toFile: make(map[uint32]uint32),
		toLive: make(map[uint32]uint32),
		next:   1,
	}
}

// Register assigns the next file index to a live object (save side).
// Registering the same object twice returns its existing index.
func (m *ObjectMap) Register(id uint32) uint32 {
	if idx, ok := m.toFile[id]; ok {
		return idx
	}
	idx := m.next
	m.next++
	m.toFile[id] = idx
	m.toLive[idx] = id
	return idx
}

// FileIndex returns the index of a registered object, or 0 if the object was
// never registered (it no longer exists in the world).
func (m *ObjectMap) FileIndex(id uint32) uint32 {
	if id == 0 {
		return 0
	}
	return m.toFile[id]
}

// Bind records that a file index was loaded as the given live object (load side).
func (m *ObjectMap) Bind(index, id uint32) {
	m.toLive[index] = id
	m.toFile[id] = index
	if index >= m.next {
		m.next = index + 1
	}
}

// ObjectID resolves a file index. Index 0 resolves to 0 without error.
func (m *ObjectMap) ObjectID(index uint32) (uint32, error) {
	if index == 0 {
		return 0, nil
	}
	id, ok := m.toLive[index]
	if !ok {
		return 0, fmt.Errorf("file index %d: %w", index, ErrUnknownObject)
	}
	return id, nil
}

// Len returns the number of registered objects.
func (m *ObjectMap) Len() int {
	return len(m.toLive)
}
