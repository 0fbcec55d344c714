package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

var overworld = ir.MustWorldKey("minecraft:overworld")

func assertionWorld(t *testing.T) *AssertionContext {
	t.Helper()
	mem := world.NewMemory(overworld)
	pos := ir.Pos(1, 64, 1)
	require.NoError(t, mem.SetBlock(overworld, ir.Pos(0, 64, 0), ir.MustBlockState("minecraft:stone")))
	require.NoError(t, mem.SetBlock(overworld, pos, ir.MustBlockState("minecraft:chest")))
	require.NoError(t, mem.SetTileEntity(overworld, ir.TileEntity{Type: "minecraft:chest", Pos: pos}))
	require.NoError(t, mem.SpawnEntity(ir.Entity{ID: "cow-1", Type: "minecraft:cow", World: overworld, Pos: pos}))
	return &AssertionContext{World: mem, DefaultWorld: overworld}
}

func sampleResult() *Result {
	r := NewResult()
	r.AddWindow(WindowTrace{
		Seq:      1,
		WindowID: "window-0001",
		Window:   "build",
		Outcome:  "rolled_back",
		Groups: []GroupTrace{
			{Type: "block", World: string(overworld), Event: "change_block", Outcome: "cancelled", Parent: -1, Nodes: []int{0}},
			{Type: "neighbor_notification", World: string(overworld), Outcome: "parent_cancelled", Parent: 0, Nodes: []int{1, 2}},
		},
		Restored: []int{2, 1, 0},
	})
	r.RuleHits["no-tnt"] = 1
	r.Events["change_block"] = 1
	return r
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	actx := assertionWorld(t)
	assertions := []Assertion{
		{Type: AssertBlockState, Pos: []int{0, 64, 0}, State: "minecraft:stone"},
		{Type: AssertBlockState, Pos: []int{5, 5, 5}, State: "minecraft:air"},
		{Type: AssertTileEntity, Pos: []int{1, 64, 1}, Tile: "minecraft:chest"},
		{Type: AssertTileEntity, Pos: []int{0, 64, 0}, Tile: NoTile},
		{Type: AssertEntityCount, Count: 1},
		{Type: AssertWindowOutcome, Window: "build", Outcome: "rolled_back"},
		{Type: AssertGroupOutcomes, Window: "build", Outcomes: []string{"cancelled", "parent_cancelled"}},
		{Type: AssertGroupTypes, Window: "build", Types: []string{"block", "neighbor_notification"}},
		{Type: AssertRestoreOrder, Window: "build", Restored: []int{2, 1, 0}},
		{Type: AssertRuleHits, Rule: "no-tnt", Count: 1},
		{Type: AssertRuleHits, Rule: "never-fired", Count: 0},
		{Type: AssertEventCount, Event: "change_block", Count: 1},
	}

	errs := EvaluateAssertions(sampleResult(), assertions, actx)
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		contains  []string
	}{
		{
			name:      "block state",
			assertion: Assertion{Type: AssertBlockState, Pos: []int{0, 64, 0}, State: "minecraft:dirt"},
			contains:  []string{"Assertion failed: block_state", "Expected: minecraft:dirt", "Actual: minecraft:stone"},
		},
		{
			name:      "tile entity missing",
			assertion: Assertion{Type: AssertTileEntity, Pos: []int{0, 64, 0}, Tile: "minecraft:chest"},
			contains:  []string{"tile_entity", "Actual: none"},
		},
		{
			name:      "tile entity present",
			assertion: Assertion{Type: AssertTileEntity, Pos: []int{1, 64, 1}, Tile: NoTile},
			contains:  []string{"Actual: minecraft:chest"},
		},
		{
			name:      "entity count",
			assertion: Assertion{Type: AssertEntityCount, Count: 3},
			contains:  []string{"entity_count", "Expected: 3 entities", "cow-1"},
		},
		{
			name:      "window outcome",
			assertion: Assertion{Type: AssertWindowOutcome, Window: "build", Outcome: "committed"},
			contains:  []string{"window_outcome", "Actual: rolled_back", "Full trace:", "[1] build rolled_back"},
		},
		{
			name:      "unknown window",
			assertion: Assertion{Type: AssertWindowOutcome, Window: "missing", Outcome: "committed"},
			contains:  []string{"window missing in trace", "not found in trace"},
		},
		{
			name:      "group outcomes",
			assertion: Assertion{Type: AssertGroupOutcomes, Window: "build", Outcomes: []string{"committed"}},
			contains:  []string{"group_outcomes", "[cancelled parent_cancelled]"},
		},
		{
			name:      "group types",
			assertion: Assertion{Type: AssertGroupTypes, Window: "build", Types: []string{"block"}},
			contains:  []string{"group_types", "[block neighbor_notification]"},
		},
		{
			name:      "restore order",
			assertion: Assertion{Type: AssertRestoreOrder, Window: "build", Restored: []int{0, 1, 2}},
			contains:  []string{"restore_order", "Actual: [2 1 0]"},
		},
		{
			name:      "rule hits",
			assertion: Assertion{Type: AssertRuleHits, Rule: "no-tnt", Count: 2},
			contains:  []string{"rule_hits", "2 for rule no-tnt", "Actual: 1"},
		},
		{
			name:      "event count",
			assertion: Assertion{Type: AssertEventCount, Event: "spawn_entity", Count: 1},
			contains:  []string{"event_count", "Actual: 0"},
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "trace_contains"},
			contains:  []string{`unknown assertion type "trace_contains"`},
		},
		{
			name:      "bad block state",
			assertion: Assertion{Type: AssertBlockState, Pos: []int{0, 64, 0}, State: "Not Valid"},
			contains:  []string{"block state"},
		},
	}

	actx := assertionWorld(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion}, actx)
			require.Len(t, errs, 1)
			for _, s := range tt.contains {
				assert.Contains(t, errs[0], s)
			}
		})
	}
}

func TestEvaluateAssertions_WorldAssertionsNeedContext(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertBlockState, Pos: []int{0, 0, 0}, State: "minecraft:air"},
		{Type: AssertEntityCount, Count: 0},
		{Type: AssertWindowOutcome, Window: "build", Outcome: "rolled_back"},
	}

	errs := EvaluateAssertions(sampleResult(), assertions, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion[0]: block_state requires world context")
	assert.Contains(t, errs[1], "assertion[1]: entity_count requires world context")
}

func TestEvaluateAssertions_OtherWorld(t *testing.T) {
	nether := ir.MustWorldKey("minecraft:the_nether")
	mem := world.NewMemory(overworld, nether)
	require.NoError(t, mem.SetBlock(nether, ir.Pos(0, 0, 0), ir.MustBlockState("minecraft:netherrack")))
	actx := &AssertionContext{World: mem, DefaultWorld: overworld}

	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertBlockState, World: "minecraft:the_nether", Pos: []int{0, 0, 0}, State: "minecraft:netherrack"},
		{Type: AssertBlockState, Pos: []int{0, 0, 0}, State: "minecraft:air"},
	}, actx)
	assert.Empty(t, errs)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertWindowOutcome,
		Expected: "window build committed",
		Actual:   "aborted",
		Trace: []WindowTrace{
			{Seq: 1, Window: "build", Outcome: "aborted", Restored: []int{1, 0}},
		},
	}

	want := "Assertion failed: window_outcome\n" +
		"  Expected: window build committed\n" +
		"  Actual: aborted\n" +
		"\nFull trace:\n" +
		"  [1] build aborted restored=[1 0]\n"
	assert.Equal(t, want, err.Error())
}
