package system

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSystem struct {
	phase Phase
	name  string
	log   *[]string
	err   error
}

func (s *stubSystem) Phase() Phase { return s.phase }

func (s *stubSystem) Update(time.Duration) error {
	*s.log = append(*s.log, s.name)
	return s.err
}

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&stubSystem{phase: PhasePersist, name: "persist", log: &log})
	r.Register(&stubSystem{phase: PhaseUpdate, name: "update", log: &log})
	r.Register(&stubSystem{phase: PhaseInput, name: "input-a", log: &log})
	r.Register(&stubSystem{phase: PhaseInput, name: "input-b", log: &log})

	require.NoError(t, r.Tick(time.Millisecond))
	assert.Equal(t, []string{"input-a", "input-b", "update", "persist"}, log)

	log = nil
	require.NoError(t, r.TickPhase(PhaseInput, 0))
	assert.Equal(t, []string{"input-a", "input-b"}, log)
}

func TestRunner_StopsOnError(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	r := NewRunner()
	r.Register(&stubSystem{phase: PhaseUpdate, name: "update", log: &log, err: boom})
	r.Register(&stubSystem{phase: PhasePersist, name: "persist", log: &log})

	err := r.Tick(0)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "update phase")
	assert.Equal(t, []string{"update"}, log)
}
