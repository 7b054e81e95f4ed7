// Package gametime defines the discrete simulated clock shared by every replica.
package gametime

import (
	"fmt"

	"github.com/l1jgo/lockstep/internal/codec"
)

// Time is a point in simulated time, in milliseconds since the game started.
// It never goes backwards and is identical on every peer for the same step.
type Time uint32

// Duration is a non-negative span of simulated milliseconds.
type Duration uint32

const (
	Millisecond Duration = 1
	Second               = 1000 * Millisecond
	Minute               = 60 * Second
)

// Add returns t+d.
func (t Time) Add(d Duration) Time {
	return t + Time(d)
}

// Sub returns t-u, or 0 when u is after t.
func (t Time) Sub(u Time) Duration {
	if u > t {
		return 0
	}
	return Duration(t - u)
}

func (t Time) Before(u Time) bool { return t < u }
func (t Time) After(u Time) bool  { return t > u }

// Compare returns -1, 0 or +1.
func (t Time) Compare(u Time) int {
	switch {
	case t < u:
		return -1
	case t > u:
		return 1
	}
	return 0
}

func (t Time) String() string {
	ms := uint32(t)
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}

// Write emits t as a fixed-width 4-byte field.
func (t Time) Write(w *codec.Writer) {
	w.WriteDU(uint32(t))
}

// Read reads a Time written by Time.Write.
func Read(r *codec.Reader) (Time, error) {
	v, err := r.ReadDU()
	if err != nil {
		return 0, fmt.Errorf("read game time: %w", err)
	}
	return Time(v), nil
}
