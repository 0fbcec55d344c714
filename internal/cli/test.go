package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SpongePowered/Common-sub001/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run a directory of scenarios",
		Long: `Run every scenario file under a directory.

Each scenario's expectations and assertions are checked, and its trace is
compared with golden/<name>.golden next to the scenario when that file
exists.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  worldtx test ./scenarios
  worldtx test ./scenarios --filter "quota_*"
  worldtx test ./scenarios --update
  worldtx test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	result, err := harness.RunSuite(cmd.Context(), scenariosDir, harness.SuiteOptions{
		Filter: opts.Filter,
		Update: opts.Update,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		if result.Failed > 0 {
			return f.Failure(result, "E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed), nil)
		}
		return f.Success(result)
	}
	return outputTestText(f.Writer, result)
}

// outputTestText writes one line per scenario and a summary.
func outputTestText(w io.Writer, result *harness.SuiteResult) error {

	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	for _, sr := range result.Scenarios {
		if !sr.Pass {
			fmt.Fprintf(w, "✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
			continue
		}
		switch sr.Golden {
		case "updated":
			fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
		case "matched":
			fmt.Fprintf(w, "✓ %s (golden matched)\n", sr.Name)
		default:
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
