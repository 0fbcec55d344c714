package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []WindowTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, w := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s restored=%v\n", w.Seq, w.Window, w.Outcome, w.Restored)
		}
	}

	return buf.String()
}

// AssertionContext provides the world state assertions run against.
type AssertionContext struct {
	World        *world.Memory
	DefaultWorld ir.WorldKey
}

func (c *AssertionContext) location(name string, coords []int) (ir.WorldKey, ir.BlockPos, error) {
	w := c.DefaultWorld
	if name != "" {
		k, err := ir.ParseWorldKey(name)
		if err != nil {
			return "", ir.BlockPos{}, err
		}
		w = k
	}
	if len(coords) != 3 {
		return "", ir.BlockPos{}, fmt.Errorf("pos must have 3 coordinates, got %d", len(coords))
	}
	return w, ir.Pos(coords[0], coords[1], coords[2]), nil
}

// assertBlockState checks the final block state at a position.
func assertBlockState(actx *AssertionContext, a Assertion) error {
	w, pos, err := actx.location(a.World, a.Pos)
	if err != nil {
		return err
	}
	want, err := ir.ParseBlockState(a.State)
	if err != nil {
		return err
	}
	got := actx.World.Block(w, pos)
	if got != want && !(got.IsAir() && want.IsAir()) {
		return &AssertionError{
			Type:     AssertBlockState,
			Expected: fmt.Sprintf("%s at %s %s", want, w, pos),
			Actual:   string(got),
		}
	}
	return nil
}

// assertTileEntity checks the tile entity type at a position, or its
// absence.
func assertTileEntity(actx *AssertionContext, a Assertion) error {
	w, pos, err := actx.location(a.World, a.Pos)
	if err != nil {
		return err
	}
	got := NoTile
	if t, ok := actx.World.TileEntity(w, pos); ok {
		got = t.Type
	}
	if got != a.Tile {
		return &AssertionError{
			Type:     AssertTileEntity,
			Expected: fmt.Sprintf("tile %s at %s %s", a.Tile, w, pos),
			Actual:   got,
		}
	}
	return nil
}

// assertEntityCount checks how many entities a world holds.
func assertEntityCount(actx *AssertionContext, a Assertion) error {
	w, _, err := actx.location(a.World, []int{0, 0, 0})
	if err != nil {
		return err
	}
	entities := actx.World.Entities(w)
	if len(entities) != a.Count {
		ids := make([]string, len(entities))
		for i, e := range entities {
			ids[i] = e.String()
		}
		return &AssertionError{
			Type:     AssertEntityCount,
			Expected: fmt.Sprintf("%d entities in %s", a.Count, w),
			Actual:   fmt.Sprintf("%d entities %v", len(entities), ids),
		}
	}
	return nil
}

func findWindow(trace []WindowTrace, a Assertion) (WindowTrace, error) {
	for _, w := range trace {
		if w.Window == a.Window {
			return w, nil
		}
	}
	return WindowTrace{}, &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("window %s in trace", a.Window),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertWindowOutcome checks a window's outcome.
func assertWindowOutcome(trace []WindowTrace, a Assertion) error {
	w, err := findWindow(trace, a)
	if err != nil {
		return err
	}
	if w.Outcome != a.Outcome {
		return &AssertionError{
			Type:     AssertWindowOutcome,
			Expected: fmt.Sprintf("window %s %s", a.Window, a.Outcome),
			Actual:   w.Outcome,
			Trace:    trace,
		}
	}
	return nil
}

// assertGroupOutcomes checks every group outcome of a window, in batch
// order.
func assertGroupOutcomes(trace []WindowTrace, a Assertion) error {
	w, err := findWindow(trace, a)
	if err != nil {
		return err
	}
	got := make([]string, len(w.Groups))
	for i, g := range w.Groups {
		got[i] = g.Outcome
	}
	if !slices.Equal(got, a.Outcomes) {
		return &AssertionError{
			Type:     AssertGroupOutcomes,
			Expected: fmt.Sprintf("window %s group outcomes %v", a.Window, a.Outcomes),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertGroupTypes checks every group's transaction type, in batch order.
func assertGroupTypes(trace []WindowTrace, a Assertion) error {
	w, err := findWindow(trace, a)
	if err != nil {
		return err
	}
	got := make([]string, len(w.Groups))
	for i, g := range w.Groups {
		got[i] = g.Type
	}
	if !slices.Equal(got, a.Types) {
		return &AssertionError{
			Type:     AssertGroupTypes,
			Expected: fmt.Sprintf("window %s group types %v", a.Window, a.Types),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertRestoreOrder checks the exact order nodes were restored in. An
// empty list asserts nothing was restored.
func assertRestoreOrder(trace []WindowTrace, a Assertion) error {
	w, err := findWindow(trace, a)
	if err != nil {
		return err
	}
	if !slices.Equal(w.Restored, a.Restored) {
		return &AssertionError{
			Type:     AssertRestoreOrder,
			Expected: fmt.Sprintf("window %s restore order %v", a.Window, a.Restored),
			Actual:   fmt.Sprintf("%v", w.Restored),
			Trace:    trace,
		}
	}
	return nil
}

func assertCount(typ, what string, got, want int) error {
	if got != want {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%d for %s", want, what),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the world for block_state, tile_entity and
// entity_count assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertBlockState, AssertTileEntity, AssertEntityCount:
			if actx == nil || actx.World == nil {
				err = fmt.Errorf("assertion[%d]: %s requires world context", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertBlockState:
				err = assertBlockState(actx, assertion)
			case AssertTileEntity:
				err = assertTileEntity(actx, assertion)
			default:
				err = assertEntityCount(actx, assertion)
			}
		case AssertWindowOutcome:
			err = assertWindowOutcome(result.Trace, assertion)
		case AssertGroupOutcomes:
			err = assertGroupOutcomes(result.Trace, assertion)
		case AssertGroupTypes:
			err = assertGroupTypes(result.Trace, assertion)
		case AssertRestoreOrder:
			err = assertRestoreOrder(result.Trace, assertion)
		case AssertRuleHits:
			err = assertCount(AssertRuleHits, "rule "+assertion.Rule, result.RuleHits[assertion.Rule], assertion.Count)
		case AssertEventCount:
			err = assertCount(AssertEventCount, "event "+assertion.Event, result.Events[assertion.Event], assertion.Count)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
