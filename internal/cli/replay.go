package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l1jgo/lockstep/internal/gametime"
	"github.com/l1jgo/lockstep/internal/persist"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Store StoreOptions
	Until int64 // game time to stop at; -1 checks against the latest save
}

// ReplayResult reports one replay run.
type ReplayResult struct {
	Game        string `json:"game"`
	Base        string `json:"base"`
	From        uint32 `json:"from"`
	To          uint32 `json:"to"`
	Entries     int    `json:"entries"`
	Executed    uint64 `json:"executed"`
	Stale       uint64 `json:"stale"`
	WorldDigest string `json:"world_digest"`
	SyncDigest  string `json:"sync_digest"`
	Reference   string `json:"reference,omitempty"`
	Match       *bool  `json:"match,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a recorded game from its first save and the replay log",
		Long: `Load the earliest save of a game, schedule every logged player command in
acceptance order and advance the simulation.

Without --until the run stops at the latest save's game time, using only the
commands received before that save was written, and compares the resulting
world digest with the one recorded for the save.

Exit codes:
  0 - Replay finished (and matched the latest save, when compared)
  1 - Replay diverged from the latest save
  2 - Command error (store unreachable, save missing, etc.)`,
		Example: `  savetool replay --db lockstep.db --game 6f1c2b7e-4d0a-4c53-9a53-0d5f1b6f2a11
  savetool replay --driver postgres --db postgres://localhost/lockstep --game ... --until 60000`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}
	opts.Store.bind(cmd)
	cmd.Flags().Int64Var(&opts.Until, "until", -1, "game time to stop at (default: latest save)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	db, id, err := opts.Store.open(cmd)
	if err != nil {
		return err
	}
	defer db.Close()
	saves, replays := persist.NewSaveRepo(db), persist.NewReplayRepo(db)

	base, err := saves.First(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "no save to start from", err)
	}
	var ref *persist.SaveRecord
	if opts.Until < 0 {
		if ref, err = saves.Latest(ctx, id); err != nil {
			return WrapExitError(ExitCommandError, "no save to compare with", err)
		}
	} else if opts.Until > 0xFFFFFFFF {
		return NewExitError(ExitCommandError, fmt.Sprintf("--until %d out of range", opts.Until))
	}

	entries, err := replays.Load(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read replay log", err)
	}

	g, done, err := opts.newGame()
	if err != nil {
		return err
	}
	defer done()
	if _, err := g.Load(base.Path); err != nil {
		return WrapExitError(ExitCommandError, "failed to load first save", err)
	}

	until := gametime.Time(opts.Until)
	if ref != nil {
		until = ref.GameTime
	}
	if until < g.Now() {
		return NewExitError(ExitCommandError, fmt.Sprintf("stop time %s is before the first save at %s", until, g.Now()))
	}

	result := ReplayResult{
		Game: id.String(),
		Base: base.Path,
		From: uint32(g.Now()),
		To:   uint32(until),
	}
	for _, e := range entries {
		if ref != nil && e.ReceivedAt.After(ref.CreatedAt) {
			break
		}
		if _, err := g.SubmitWire(e.Payload); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("replay entry %d", e.Seq), err)
		}
		result.Entries++
	}
	if err := g.AdvanceTo(until); err != nil {
		return WrapExitError(ExitFailure, "replay stopped", err)
	}

	world := g.State().Digest()
	sync := g.SyncDigest()
	result.Executed = g.Executed()
	result.Stale = g.StaleCount()
	result.WorldDigest = hex.EncodeToString(world[:])
	result.SyncDigest = hex.EncodeToString(sync[:])

	var diverged error
	if ref != nil {
		match := ref.Digest == result.WorldDigest
		result.Reference = ref.Path
		result.Match = &match
		if !match {
			diverged = NewExitError(ExitFailure, fmt.Sprintf("world digest differs from %s", ref.Path))
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
		return diverged
	}
	printReplay(cmd.OutOrStdout(), result)
	return diverged
}

func printReplay(w io.Writer, r ReplayResult) {
	fmt.Fprintf(w, "game      %s\n", r.Game)
	fmt.Fprintf(w, "base      %s\n", r.Base)
	fmt.Fprintf(w, "time      %s .. %s\n", gametime.Time(r.From), gametime.Time(r.To))
	fmt.Fprintf(w, "entries   %d\n", r.Entries)
	fmt.Fprintf(w, "executed  %d (%d stale)\n", r.Executed, r.Stale)
	fmt.Fprintf(w, "world     %s\n", r.WorldDigest)
	fmt.Fprintf(w, "sync      %s\n", r.SyncDigest)
	if r.Match != nil {
		verdict := "match"
		if !*r.Match {
			verdict = "DIVERGED"
		}
		fmt.Fprintf(w, "reference %s: %s\n", r.Reference, verdict)
	}
}
