package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxString is the longest string, in bytes, WriteS can encode.
const MaxString = 0xFFFF

// ErrStringTooLong is reported by Err after WriteS was given more than
// MaxString bytes.
var ErrStringTooLong = errors.New("string too long for save form")

// Writer builds a persistent (save file) byte stream. All multi-byte writes
// are little-endian and fixed width, so equal inputs always produce equal bytes.
//
// A field that cannot be encoded is not written; the first such failure is
// kept and returned by Err.
type Writer struct {
	buf []byte
	err error
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteD writes 4 bytes little-endian signed.
func (w *Writer) WriteD(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteS writes a string as a 2-byte length followed by its UTF-8 bytes.
// Strings longer than MaxString are rejected, see Err.
func (w *Writer) WriteS(s string) {
	if len(s) > MaxString {
		if w.err == nil {
			w.err = fmt.Errorf("%d byte string at offset %d: %w", len(s), len(w.buf), ErrStringTooLong)
		}
		return
	}
	w.WriteH(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the written content. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Err returns the first encoding failure, if any.
func (w *Writer) Err() error {
	return w.err
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}
