package net

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{1, 2, 3}))
	require.NoError(t, WriteFrame(&buf, []byte{4}))

	f1, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, f1)

	f2, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, f2)

	_, err = ReadFrame(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestFrames_Truncated(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{10, 0, 1}))
	require.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
}

func TestWriteFrame_RejectsEmpty(t *testing.T) {
	assert.Error(t, WriteFrame(io.Discard, nil))
}
