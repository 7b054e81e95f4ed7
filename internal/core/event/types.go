package event

import (
	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/world"
)

// CommandExecuted is emitted after a command ran to completion.
type CommandExecuted struct {
	Tag    command.Tag
	Due    gametime.Time
	Sender world.PlayerNumber
}

// CommandStale is emitted when a command was skipped at its due time.
type CommandStale struct {
	Tag    command.Tag
	Due    gametime.Time
	Sender world.PlayerNumber
	Reason string
}

// GameSaved is emitted after a save file was written.
type GameSaved struct {
	Path     string
	GameTime gametime.Time
}
