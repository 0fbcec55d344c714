package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SpongePowered/Common-sub001/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Window   string // optional - show one window in full
	Outcome  string // optional - filter the window list
}

// TraceWindow is one journaled window.
type TraceWindow struct {
	ID        string       `json:"id"`
	Seq       int64        `json:"seq"`
	Operation string       `json:"operation"`
	Outcome   string       `json:"outcome"`
	NodeCount int          `json:"node_count"`
	Restored  []int        `json:"restored"`
	Error     string       `json:"error,omitempty"`
	Digest    string       `json:"digest"`
	Groups    []TraceGroup `json:"groups,omitempty"`
	Nodes     []TraceNode  `json:"nodes,omitempty"`
}

// TraceGroup is one event group of a journaled window.
type TraceGroup struct {
	Index   int    `json:"index"`
	Parent  int    `json:"parent"`
	Type    string `json:"type"`
	World   string `json:"world"`
	Event   string `json:"event,omitempty"`
	Outcome string `json:"outcome"`
	Nodes   []int  `json:"nodes"`
}

// TraceNode is one node of a journaled window.
type TraceNode struct {
	ID          int    `json:"id"`
	Parent      int    `json:"parent"`
	Group       int    `json:"group"`
	Variant     string `json:"variant"`
	Description string `json:"description"`
	Cancelled   bool   `json:"cancelled"`
	Restored    bool   `json:"restored"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Windows []TraceWindow `json:"windows"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the listed windows.
type TraceStats struct {
	Windows    int `json:"windows"`
	Committed  int `json:"committed"`
	RolledBack int `json:"rolled_back"`
	Aborted    int `json:"aborted"`
	Failed     int `json:"failed"`
	Restored   int `json:"restored"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect journaled capture windows",
		Long: `Inspect the capture windows journaled in a SQLite database.

Without --window every window header is listed in seq order. With
--window one window is shown with its event groups and nodes.

Examples:
  worldtx trace --db ./journal.db
  worldtx trace --db ./journal.db --outcome rolled_back
  worldtx trace --db ./journal.db --window 0190a7e2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Window, "window", "", "window ID to show in full")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "list only windows with this outcome")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	// store.Open would create a missing file.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var windows []store.Window
	switch {
	case opts.Window != "":
		w, err := st.ReadWindow(ctx, opts.Window)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("window not found: %s", opts.Window))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read window", err)
		}
		windows = []store.Window{w}
	case opts.Outcome != "":
		windows, err = st.ListWindowsByOutcome(ctx, opts.Outcome)
	default:
		windows, err = st.ListWindows(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list windows", err)
	}

	result := buildTrace(windows)
	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Success(result)
	}
	return outputTraceText(f.Writer, result, opts.Verbose)
}

func buildTrace(windows []store.Window) TraceResult {
	result := TraceResult{Windows: make([]TraceWindow, 0, len(windows))}
	for _, w := range windows {
		tw := TraceWindow{
			ID:        w.ID,
			Seq:       w.Seq,
			Operation: w.Operation,
			Outcome:   w.Outcome,
			NodeCount: w.NodeCount,
			Restored:  w.Restored,
			Error:     w.Error,
			Digest:    w.Digest,
		}
		if tw.Restored == nil {
			tw.Restored = []int{}
		}
		for _, g := range w.Groups {
			tw.Groups = append(tw.Groups, TraceGroup{
				Index:   g.Index,
				Parent:  g.Parent,
				Type:    g.Type,
				World:   g.World,
				Event:   g.Event,
				Outcome: g.Outcome,
				Nodes:   g.Nodes,
			})
		}
		for _, n := range w.Nodes {
			tw.Nodes = append(tw.Nodes, TraceNode{
				ID:          n.ID,
				Parent:      n.Parent,
				Group:       n.Group,
				Variant:     n.Variant,
				Description: n.Description,
				Cancelled:   n.Cancelled,
				Restored:    n.Restored,
			})
		}
		result.Windows = append(result.Windows, tw)

		result.Stats.Windows++
		result.Stats.Restored += len(w.Restored)
		switch w.Outcome {
		case "committed":
			result.Stats.Committed++
		case "rolled_back":
			result.Stats.RolledBack++
		case "aborted":
			result.Stats.Aborted++
		case "failed":
			result.Stats.Failed++
		}
	}
	return result
}

func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	if len(result.Windows) == 0 {
		fmt.Fprintln(w, "No windows found.")
		return nil
	}

	fmt.Fprintln(w, "Windows:")
	for _, win := range result.Windows {
		formatTraceWindow(w, win, verbose)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Windows:     %d\n", result.Stats.Windows)
	fmt.Fprintf(w, "  Committed:   %d\n", result.Stats.Committed)
	fmt.Fprintf(w, "  Rolled back: %d\n", result.Stats.RolledBack)
	fmt.Fprintf(w, "  Aborted:     %d\n", result.Stats.Aborted)
	fmt.Fprintf(w, "  Failed:      %d\n", result.Stats.Failed)
	fmt.Fprintf(w, "  Restored:    %d\n", result.Stats.Restored)
	return nil
}

func formatTraceWindow(w io.Writer, win TraceWindow, verbose bool) {
	fmt.Fprintf(w, "  [%d] %s %s nodes=%d", win.Seq, win.Operation, win.Outcome, win.NodeCount)
	if len(win.Restored) > 0 {
		fmt.Fprintf(w, " restored=%v", win.Restored)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "       ID: %s\n", win.ID)
	if win.Error != "" {
		fmt.Fprintf(w, "       Error: %s\n", win.Error)
	}
	if verbose {
		fmt.Fprintf(w, "       Digest: %s\n", win.Digest)
	}

	for _, g := range win.Groups {
		event := g.Event
		if event == "" {
			event = "-"
		}
		fmt.Fprintf(w, "       group %d %s %s %s %s nodes=%v\n", g.Index, g.Type, g.World, event, g.Outcome, g.Nodes)
	}
	for _, n := range win.Nodes {
		marks := ""
		if n.Cancelled {
			marks += " cancelled"
		}
		if n.Restored {
			marks += " restored"
		}
		fmt.Fprintf(w, "       node %d %s%s\n", n.ID, n.Description, marks)
	}
}
