package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput     Phase = iota // 0: drain submitted command packets
	PhasePreUpdate              // 1: deliver last tick's events
	PhaseUpdate                 // 2: advance the simulation
	PhasePersist                // 3: replay log flush + autosave
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePersist:
		return "persist"
	}
	return "unknown"
}

// System is one stage of the tick. An error stops the tick.
type System interface {
	Phase() Phase
	Update(dt time.Duration) error
}
