package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	gonet "github.com/l1jgo/lockstep/internal/net"
	"github.com/l1jgo/lockstep/internal/persist"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Store StoreOptions
	Out   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the replay log of a game as a framed command stream",
		Long: `Write every logged wire packet of a game, in acceptance order, as
length-prefixed frames. The file can be fed back to the server through
sim.stream.`,
		Example:       `  savetool export --db lockstep.db --game 6f1c2b7e-4d0a-4c53-9a53-0d5f1b6f2a11 --out game.cmds`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}
	opts.Store.bind(cmd)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "-", `output file ("-" for stdout)`)

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	db, id, err := opts.Store.open(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := persist.NewReplayRepo(db).Load(cmd.Context(), id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read replay log", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.Out != "-" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output", err)
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)
	for _, e := range entries {
		if err := gonet.WriteFrame(bw, e.Payload); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("entry %d", e.Seq), err)
		}
	}
	if err := bw.Flush(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if opts.Out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d commands to %s\n", len(entries), opts.Out)
	}
	return nil
}
