package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_Fields(t *testing.T) {
	w := NewWriter()
	w.WriteC(7)
	w.WriteH(0xBEEF)
	w.WriteD(-42)
	w.WriteDU(0xCAFEBABE)
	w.WriteS("headquarters")
	w.WriteBytes([]byte{9, 8})

	r := NewReader(w.Bytes())
	c, err := r.ReadC()
	require.NoError(t, err)
	assert.Equal(t, byte(7), c)

	h, err := r.ReadH()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), h)

	d, err := r.ReadD()
	require.NoError(t, err)
	assert.Equal(t, int32(-42), d)

	du, err := r.ReadDU()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), du)

	s, err := r.ReadS()
	require.NoError(t, err)
	assert.Equal(t, "headquarters", s)

	b, err := r.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, b)
	assert.Equal(t, 0, r.Remaining())
}

func TestReader_Truncated(t *testing.T) {
	w := NewWriter()
	w.WriteS("lumberjack")
	data := w.Bytes()[:5]

	_, err := NewReader(data).ReadS()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = NewReader(nil).ReadC()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestWriteS_Limit(t *testing.T) {
	w := NewWriter()
	w.WriteS(strings.Repeat("é", MaxString/2) + "x")
	require.NoError(t, w.Err())
	s, err := NewReader(w.Bytes()).ReadS()
	require.NoError(t, err)
	assert.Len(t, s, MaxString)

	w = NewWriter()
	w.WriteC(1)
	w.WriteS(strings.Repeat("é", MaxString/2+1))
	w.WriteS("next")
	assert.ErrorIs(t, w.Err(), ErrStringTooLong)
	assert.Equal(t, 1+2+4, w.Len(), "the overlong string is not written at all")
}

func TestObjectMap(t *testing.T) {
	m := NewObjectMap()
	assert.Equal(t, uint32(1), m.Register(500))
	assert.Equal(t, uint32(2), m.Register(17))
	assert.Equal(t, uint32(1), m.Register(500))
	assert.Equal(t, uint32(2), m.FileIndex(17))
	assert.Equal(t, uint32(0), m.FileIndex(99), "unregistered objects save as none")
	assert.Equal(t, uint32(0), m.FileIndex(0))

	loaded := NewObjectMap()
	loaded.Bind(1, 900)
	id, err := loaded.ObjectID(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(900), id)

	id, err = loaded.ObjectID(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)

	_, err = loaded.ObjectID(5)
	assert.ErrorIs(t, err, ErrUnknownObject)
}
