package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a read runs past the end of the data.
var ErrTruncated = errors.New("unexpected end of data")

// Reader reads fields written by Writer. Unlike the wire reader, every read
// reports truncation: a half-read save record must abort the load.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.off+n > len(r.data) {
		return nil, fmt.Errorf("read %d bytes at offset %d of %d: %w", n, r.off, len(r.data), ErrTruncated)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// ReadC reads 1 byte.
func (r *Reader) ReadC() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() (int32, error) {
	v, err := r.ReadDU()
	return int32(v), err
}

// ReadDU reads 4 bytes as little-endian uint32.
func (r *Reader) ReadDU() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadS reads a length-prefixed string written by WriteS.
func (r *Reader) ReadS() (string, error) {
	n, err := r.ReadH()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads n raw bytes into a fresh slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Offset returns the current read position.
func (r *Reader) Offset() int {
	return r.off
}
