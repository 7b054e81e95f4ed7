package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/config"
	"github.com/l1jgo/lockstep/internal/persist"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Replay diverged from the recorded game
	ExitCommandError = 2 // Command error (bad path, database not found, etc.)
)

// ExitError carries the exit code a failed command should produce.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// StoreOptions selects a recorded game in the store.
type StoreOptions struct {
	Driver string
	DSN    string
	Game   string
}

func (s *StoreOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.Driver, "driver", persist.DialectSQLite, "store driver (postgres|sqlite)")
	cmd.Flags().StringVar(&s.DSN, "db", "", "store DSN or sqlite path (required)")
	cmd.Flags().StringVar(&s.Game, "game", "", "game ID (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("game")
}

func (s *StoreOptions) open(cmd *cobra.Command) (*persist.DB, uuid.UUID, error) {
	id, err := uuid.Parse(s.Game)
	if err != nil {
		return nil, uuid.Nil, WrapExitError(ExitCommandError, "invalid game ID", err)
	}
	db, err := persist.NewDB(cmd.Context(), config.DatabaseConfig{Driver: s.Driver, DSN: s.DSN}, zap.NewNop())
	if err != nil {
		return nil, uuid.Nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return db, id, nil
}
