// Package savegame stores game snapshots as zstd streams: one JSON header
// line followed by the binary body produced by the game.
package savegame

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/l1jgo/lockstep/internal/gametime"
)

// Version is the save file layout version written into every header.
const Version = 1

// Ext is the file extension used for save files.
const Ext = ".lsav"

// ErrVersion is returned for a save file written with another layout.
var ErrVersion = errors.New("unsupported save version")

// Header describes a save without decoding its body.
type Header struct {
	Version  int           `json:"version"`
	GameID   uuid.UUID     `json:"game_id"`
	GameTime gametime.Time `json:"gametime"`
	Created  time.Time     `json:"created"`
	Pending  int           `json:"pending"`
	Objects  int           `json:"objects"`
	Digest   string        `json:"digest"`
}

// ParseLevel maps a config level name to a zstd encoder level.
func ParseLevel(name string) (zstd.EncoderLevel, error) {
	ok, lvl := zstd.EncoderLevelFromString(name)
	if !ok {
		return 0, fmt.Errorf("unknown compression level %q", name)
	}
	return lvl, nil
}

// Encode writes h and body to w.
func Encode(w io.Writer, h Header, body []byte, level zstd.EncoderLevel) error {
	h.Version = Version
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(level))
	if err != nil {
		return err
	}
	hb, err := json.Marshal(h)
	if err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	if _, err := enc.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a save written by Encode.
func Decode(r io.Reader) (Header, []byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Header{}, nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	h, err := readHeader(br)
	if err != nil {
		return h, nil, err
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return h, nil, fmt.Errorf("read body: %w", err)
	}
	return h, body, nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d (supported %d)", ErrVersion, h.Version, Version)
	}
	return h, nil
}

// WriteFile writes the save next to path and renames it into place, so a
// crash never leaves a truncated save behind.
func WriteFile(path string, h Header, body []byte, level zstd.EncoderLevel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriterSize(tmp, 256*1024)
	if err := Encode(bw, h, body, level); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile reads a whole save file.
func ReadFile(path string) (Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer f.Close()
	h, body, err := Decode(f)
	if err != nil {
		return h, nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, body, nil
}

// ReadHeader reads only the header line of a save file.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()
	h, err := readHeader(bufio.NewReader(dec))
	if err != nil {
		return h, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// FileName returns the conventional save file name for a game at t.
func FileName(id uuid.UUID, t gametime.Time) string {
	return fmt.Sprintf("%s-%010d%s", id, uint32(t), Ext)
}
