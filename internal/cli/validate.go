package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SpongePowered/Common-sub001/internal/policy"
)

// Error codes for policy files that fail before rule validation.
const (
	ErrCodePolicyLoad    = "E101" // file or directory unreadable
	ErrCodePolicyCompile = "E102" // CUE syntax or schema error
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Files  []PolicyFileResult       `json:"files"`
	Errors []policy.ValidationError `json:"errors,omitempty"`
}

// PolicyFileResult is the validation outcome of one path.
type PolicyFileResult struct {
	Path  string `json:"path"`
	Rules int    `json:"rules"`
	Valid bool   `json:"valid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <policy.cue|policy-dir>...",
		Short: "Validate policy files without running anything",
		Long: `Validate CUE policy files.

Each argument is a .cue file or a directory holding one CUE package.
Syntax, schema and cross-field rule checks run for every argument and
all errors are reported.

Examples:
  worldtx validate ./policies/no_tnt.cue
  worldtx validate ./policies --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidationResult{Valid: true, Files: make([]PolicyFileResult, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		fr, errs := validatePath(path)
		result.Files = append(result.Files, fr)
		if len(errs) > 0 {
			result.Valid = false
			result.Errors = append(result.Errors, errs...)
		}
		formatter.VerboseLog("  %d rule(s), %d error(s)", fr.Rules, len(errs))
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validatePath compiles one policy file or directory and converts every
// failure into validation errors.
func validatePath(path string) (PolicyFileResult, []policy.ValidationError) {
	fr := PolicyFileResult{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return fr, []policy.ValidationError{{Rule: path, Field: "load", Message: err.Error(), Code: ErrCodePolicyLoad}}
	}

	var p *policy.Policy
	if info.IsDir() {
		p, err = policy.LoadDir(path)
	} else {
		p, err = policy.LoadFile(path)
	}
	if err != nil {
		return fr, toValidationErrors(path, err)
	}

	fr.Rules = len(p.Rules)
	fr.Valid = true
	return fr, nil
}

func toValidationErrors(path string, err error) []policy.ValidationError {
	var verrs policy.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}

	var cerr *policy.CompileError
	if errors.As(err, &cerr) {
		return []policy.ValidationError{{
			Rule:    path,
			Field:   cerr.Field,
			Message: cerr.Message,
			Code:    ErrCodePolicyCompile,
			Line:    getLineFromTokenPos(cerr.Pos),
		}}
	}

	return []policy.ValidationError{{Rule: path, Field: "load", Message: err.Error(), Code: ErrCodePolicyLoad}}
}

// getLineFromTokenPos extracts a line number from a position, 0 if unknown.
func getLineFromTokenPos(pos interface {
	IsValid() bool
	Line() int
}) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	for _, f := range result.Files {
		fmt.Fprintf(formatter.Writer, "✓ %s (%d rules)\n", f.Path, f.Rules)
	}
	fmt.Fprintln(formatter.Writer, "✓ All policies valid")
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Failure(result, "E_VALIDATION_FAILED", fmt.Sprintf("%d validation error(s)", len(result.Errors)), result.Errors)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range result.Errors {
		fmt.Fprintf(formatter.Writer, "%s: ", err.Rule)
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		} else {
			fmt.Fprintln(formatter.Writer)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, "validation failed")
}
