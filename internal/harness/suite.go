package harness

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without their
	// extension. Empty runs everything.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// SuiteResult contains results from running a directory of scenarios.
type SuiteResult struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "matched", "updated" or empty if there is no golden file
	Errors []string `json:"errors,omitempty"`
}

// GoldenMismatchError is reported when a scenario's trace differs from its
// golden file.
type GoldenMismatchError struct {
	Scenario   string
	GoldenPath string
}

// Error implements the error interface.
func (e *GoldenMismatchError) Error() string {
	return fmt.Sprintf("scenario %q does not match golden file %s (run with --update to regenerate)", e.Scenario, e.GoldenPath)
}

// FindScenarios returns the .yaml and .yml files under dir, in lexical
// order, whose base name matches filter.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}

// GoldenPath returns where the golden file of a scenario file lives: a
// golden/ directory next to it.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// RunSuite runs every scenario under dir.
//
// For each scenario file:
// 1. Load and validate it
// 2. Run it with Run
// 3. Compare its snapshot with the golden file, if one exists, or rewrite
// the golden file with Update
// 4. Collect and report results
func RunSuite(ctx context.Context, dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}

	result := &SuiteResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, path := range files {
		sr := runSuiteScenario(ctx, path, opts)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	return result, nil
}

func runSuiteScenario(ctx context.Context, path string, opts SuiteOptions) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(path), Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return sr
	}
	sr.Name = scenario.Name

	runResult, err := RunContext(ctx, scenario)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("scenario execution failed: %v", err)}
		return sr
	}
	sr.Errors = runResult.Errors

	golden, err := checkGolden(path, scenario.Name, runResult, opts.Update)
	if err != nil {
		sr.Errors = append(sr.Errors, err.Error())
		return sr
	}
	sr.Golden = golden
	sr.Pass = runResult.Pass
	return sr
}

func checkGolden(path, name string, result *Result, update bool) (string, error) {
	goldenPath := GoldenPath(path)
	data, err := MarshalSnapshot(name, result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trace: %w", err)
	}

	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return "", fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write golden file: %w", err)
		}
		return "updated", nil
	}

	want, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(want, data) {
		return "", &GoldenMismatchError{Scenario: name, GoldenPath: goldenPath}
	}
	return "matched", nil
}
