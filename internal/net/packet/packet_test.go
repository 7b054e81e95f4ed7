package packet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_RoundTrip(t *testing.T) {
	w := NewWriterWithTag(4)
	w.WriteC(2)
	w.WriteH(300)
	w.WriteD(-7)
	w.WriteDU(123456)
	w.WriteS("Burg Wolfsberg")

	r := NewReader(w.Bytes())
	assert.Equal(t, byte(4), r.Tag())
	assert.Equal(t, byte(2), r.ReadC())
	assert.Equal(t, uint16(300), r.ReadH())
	assert.Equal(t, int32(-7), r.ReadD())
	assert.Equal(t, uint32(123456), r.ReadDU())
	assert.Equal(t, "Burg Wolfsberg", r.ReadS())
	assert.Equal(t, 0, r.Remaining())
	require.NoError(t, r.Err())
}

func TestReader_ShortPacket(t *testing.T) {
	r := NewReader([]byte{1, 0xAA})
	assert.Equal(t, uint32(0), r.ReadDU())
	assert.Error(t, r.Err())
}

func TestWriter_NormalizesStrings(t *testing.T) {
	// "e" + combining acute accent is stored as the precomposed rune.
	w := NewWriterWithTag(1)
	w.WriteS("Cafe\u0301")

	r := NewReader(w.Bytes())
	assert.Equal(t, "Caf\u00e9", r.ReadS())
	require.NoError(t, r.Err())
}
