package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SpongePowered/Common-sub001/internal/harness"
	"github.com/SpongePowered/Common-sub001/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions

	// Database journals every window to a SQLite file. Empty keeps the
	// journal in memory.
	Database string

	// LogWriter receives engine logs. Defaults to stderr.
	LogWriter io.Writer
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string                `json:"scenario"`
	Pass     bool                  `json:"pass"`
	Windows  []harness.WindowTrace `json:"windows"`
	Blocks   []harness.BlockTrace  `json:"blocks"`
	RuleHits map[string]int        `json:"rule_hits"`
	Errors   []string              `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario through the capture engine",
		Long: `Run a scenario file: set up its world, perform each flow step in its own
capture window and check its expectations and assertions.

With --db every window is journaled to a SQLite database (created if it
doesn't exist) that the trace command can inspect afterwards. Repeated
runs against one database append to it.

Example:
  worldtx run ./scenarios/place_then_reject.yaml
  worldtx run --db ./journal.db ./scenarios/quota_abort.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default: in memory)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: logLevel}))

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	logger.Info("scenario loaded", "name", scenario.Name, "windows", len(scenario.Flow))

	hopts := harness.Options{Logger: logger}
	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		hopts.Store = st
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := harness.RunWithOptions(ctx, scenario, hopts)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	out := RunResult{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		Windows:  result.Trace,
		Blocks:   result.Blocks,
		RuleHits: result.RuleHits,
		Errors:   result.Errors,
	}
	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		if !out.Pass {
			return f.Failure(out, "E_SCENARIO_FAILED", fmt.Sprintf("scenario %s failed", out.Scenario), out.Errors)
		}
		return f.Success(out)
	}
	return outputRunText(f, out)
}

func outputRunText(f *OutputFormatter, result RunResult) error {
	w := f.Writer
	verbose := f.Verbose

	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	for _, win := range result.Windows {
		fmt.Fprintf(w, "  [%d] %s %s", win.Seq, win.Window, win.Outcome)
		if len(win.Restored) > 0 {
			fmt.Fprintf(w, " restored=%v", win.Restored)
		}
		if win.Error != "" {
			fmt.Fprintf(w, " error=%s", win.Error)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", win.WindowID)
			for i, g := range win.Groups {
				fmt.Fprintf(w, "       group %d %s %s %s nodes=%v\n", i, g.Type, g.World, g.Outcome, g.Nodes)
			}
		}
	}

	if !result.Pass {
		fmt.Fprintf(w, "✗ %s\n", result.Scenario)
		for _, e := range result.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}

	fmt.Fprintf(w, "✓ %s\n", result.Scenario)
	return nil
}
