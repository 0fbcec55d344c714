package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
// Window digests are left out so that changes to journal encoding do not
// churn golden files.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Trace        []WindowTrace  `json:"trace"`
	Blocks       []BlockTrace   `json:"blocks"`
	RuleHits     map[string]int `json:"rule_hits"`
}

// NewTraceSnapshot builds the snapshot of result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Blocks:       result.Blocks,
		RuleHits:     result.RuleHits,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles ir types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, w := range s.Trace {
		groups := make([]any, len(w.Groups))
		for j, g := range w.Groups {
			gm := map[string]any{
				"type":    g.Type,
				"world":   g.World,
				"outcome": g.Outcome,
				"parent":  g.Parent,
				"nodes":   intList(g.Nodes),
			}
			if g.Event != "" {
				gm["event"] = g.Event
			}
			groups[j] = gm
		}
		wm := map[string]any{
			"seq":       w.Seq,
			"window_id": w.WindowID,
			"window":    w.Window,
			"outcome":   w.Outcome,
			"groups":    groups,
			"restored":  intList(w.Restored),
		}
		if w.Error != "" {
			wm["error"] = w.Error
		}
		trace[i] = wm
	}

	blocks := make([]any, len(s.Blocks))
	for i, b := range s.Blocks {
		bm := map[string]any{
			"world": b.World,
			"pos":   ir.Pos(b.X, b.Y, b.Z),
			"state": b.State,
		}
		if b.Tile != "" {
			bm["tile"] = b.Tile
		}
		blocks[i] = bm
	}

	hits := make(map[string]any, len(s.RuleHits))
	for name, n := range s.RuleHits {
		hits[name] = n
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"blocks":        blocks,
		"rule_hits":     hits,
	}
}

func intList(ids []int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// MarshalSnapshot renders the golden bytes for a scenario result.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := NewTraceSnapshot(name, result)
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
