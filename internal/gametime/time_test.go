package gametime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/lockstep/internal/codec"
)

func TestTime_Order(t *testing.T) {
	a, b := Time(10), Time(20)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestTime_Arithmetic(t *testing.T) {
	assert.Equal(t, Time(1500), Time(500).Add(Second))
	assert.Equal(t, Duration(5), Time(15).Sub(10))
	assert.Equal(t, Duration(0), Time(10).Sub(15))
}

func TestTime_String(t *testing.T) {
	assert.Equal(t, "01:02:03.004", Time(3_723_004).String())
}

func TestTime_Codec(t *testing.T) {
	w := codec.NewWriter()
	Time(0xDEADBEEF).Write(w)
	require.Equal(t, 4, w.Len())

	got, err := Read(codec.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, Time(0xDEADBEEF), got)
}

func TestTime_ReadTruncated(t *testing.T) {
	_, err := Read(codec.NewReader([]byte{1, 2}))
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrTruncated)
}
