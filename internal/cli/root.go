// Package cli implements savetool, the offline companion of the lockstep
// server: it inspects save files and re-runs recorded games from the store.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/lockstep/internal/cmdqueue"
	"github.com/l1jgo/lockstep/internal/command"
	"github.com/l1jgo/lockstep/internal/data"
	"github.com/l1jgo/lockstep/internal/game"
	"github.com/l1jgo/lockstep/internal/scripting"
	"github.com/l1jgo/lockstep/internal/world"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Buildings string
	Scripts   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the savetool root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "savetool",
		Short: "Inspect lockstep saves and replay recorded games",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log simulation output to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Buildings, "buildings", "data/yaml/building_list.yaml", "building catalog the game was played with")
	cmd.PersistentFlags().StringVar(&opts.Scripts, "scripts", "scripts", "script directory the game was played with")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

func (o *RootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newGame builds an empty game with the catalog and scripts of opts, ready
// to have a save loaded into it. Call the returned func when done.
func (o *RootOptions) newGame() (*game.Game, func(), error) {
	buildings, err := data.LoadBuildingTable(o.Buildings)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load building catalog", err)
	}
	log := o.logger()
	scripts, err := scripting.NewEngine(o.Scripts, log)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to start script engine", err)
	}
	g := game.New(game.Config{Buckets: cmdqueue.DefaultBuckets},
		world.NewState(0, 0, buildings), command.NewDefaultFactory(log), scripts, nil, log)
	return g, func() {
		scripts.Close()
		_ = log.Sync()
	}, nil
}
