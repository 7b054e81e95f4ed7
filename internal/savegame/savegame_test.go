package savegame

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	h := Header{
		GameID:   uuid.New(),
		GameTime: 90_000,
		Created:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Pending:  3,
	}
	body := bytes.Repeat([]byte{1, 2, 3, '\n', 0}, 1000)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, h, body, zstd.SpeedDefault))
	assert.Less(t, buf.Len(), len(body))

	got, gotBody, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, Version, got.Version)
	assert.Equal(t, h.GameID, got.GameID)
	assert.Equal(t, h.GameTime, got.GameTime)
	assert.True(t, h.Created.Equal(got.Created))
	assert.Equal(t, body, gotBody)
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()
	path := filepath.Join(dir, "nested", FileName(id, 1234))
	require.NoError(t, WriteFile(path, Header{GameID: id, GameTime: 1234}, []byte("body"), zstd.SpeedFastest))

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, id, h.GameID)

	_, body, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), body)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp file left behind")
}

func TestDecode_BadVersion(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(`{"version":99}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, _, err = Decode(&buf)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("best")
	require.NoError(t, err)
	assert.Equal(t, zstd.SpeedBestCompression, lvl)
	_, err = ParseLevel("max")
	assert.Error(t, err)
}
