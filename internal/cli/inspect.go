package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/l1jgo/lockstep/internal/savegame"
)

// PendingEntry is one queued command in inspect output.
type PendingEntry struct {
	Due      uint32 `json:"due"`
	Category int32  `json:"category"`
	Serial   uint32 `json:"serial"`
	Tag      string `json:"tag"`
	Sender   uint8  `json:"sender"`
}

// ObjectEntry is one map object in inspect output.
type ObjectEntry struct {
	ID       uint32 `json:"id"`
	Kind     string `json:"kind"`
	Owner    uint8  `json:"owner"`
	At       string `json:"at"`
	Name     string `json:"name,omitempty"`
	Building string `json:"building,omitempty"`
	Complete bool   `json:"complete,omitempty"`
}

// InspectResult is the decoded content of a save file.
type InspectResult struct {
	Path    string          `json:"path"`
	Header  savegame.Header `json:"header"`
	Pending []PendingEntry  `json:"pending"`
	Objects []ObjectEntry   `json:"objects"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	var headerOnly bool

	cmd := &cobra.Command{
		Use:   "inspect <save>",
		Short: "Show the header, queued commands and objects of a save file",
		Example: `  savetool inspect saves/6f1c2b7e-4d0a-4c53-9a53-0d5f1b6f2a11-0000012000.lsav
  savetool inspect --header-only --format json game.lsav`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd, args[0], headerOnly)
		},
	}
	cmd.Flags().BoolVar(&headerOnly, "header-only", false, "read only the header line")

	return cmd
}

func runInspect(opts *RootOptions, cmd *cobra.Command, path string, headerOnly bool) error {
	result := InspectResult{Path: path, Pending: []PendingEntry{}, Objects: []ObjectEntry{}}

	if headerOnly {
		h, err := savegame.ReadHeader(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read save header", err)
		}
		result.Header = h
	} else {
		g, done, err := opts.newGame()
		if err != nil {
			return err
		}
		defer done()
		h, err := g.Load(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load save", err)
		}
		result.Header = h
		for _, e := range g.Queue().Entries() {
			result.Pending = append(result.Pending, PendingEntry{
				Due:      uint32(e.Due),
				Category: int32(e.Category),
				Serial:   e.Serial,
				Tag:      e.Command.Tag().String(),
				Sender:   uint8(e.Command.Sender()),
			})
		}
		for _, o := range g.State().Objects() {
			result.Objects = append(result.Objects, ObjectEntry{
				ID:       uint32(o.ID),
				Kind:     o.Kind.String(),
				Owner:    uint8(o.Owner),
				At:       o.At.String(),
				Name:     o.Name,
				Building: o.Building,
				Complete: o.Complete,
			})
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printInspect(cmd.OutOrStdout(), result, headerOnly)
	return nil
}

func printInspect(w io.Writer, r InspectResult, headerOnly bool) {
	h := r.Header
	fmt.Fprintf(w, "save      %s\n", r.Path)
	fmt.Fprintf(w, "version   %d\n", h.Version)
	fmt.Fprintf(w, "game      %s\n", h.GameID)
	fmt.Fprintf(w, "gametime  %s\n", h.GameTime)
	fmt.Fprintf(w, "created   %s\n", h.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "digest    %s\n", h.Digest)
	fmt.Fprintf(w, "pending   %d\n", h.Pending)
	fmt.Fprintf(w, "objects   %d\n", h.Objects)
	if headerOnly {
		return
	}

	if len(r.Pending) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%10s %3s %8s %-22s %s\n", "due", "cat", "serial", "tag", "sender")
		for _, e := range r.Pending {
			fmt.Fprintf(w, "%10d %3d %8d %-22s %d\n", e.Due, e.Category, e.Serial, e.Tag, e.Sender)
		}
	}
	if len(r.Objects) > 0 {
		fmt.Fprintln(w)
		for _, o := range r.Objects {
			fmt.Fprintf(w, "#%-5d %-8s p%d %-10s", o.ID, o.Kind, o.Owner, o.At)
			if o.Building != "" {
				state := "building"
				if o.Complete {
					state = "complete"
				}
				fmt.Fprintf(w, " %s (%s)", o.Building, state)
			}
			if o.Name != "" {
				fmt.Fprintf(w, " %q", o.Name)
			}
			fmt.Fprintln(w)
		}
	}
}
