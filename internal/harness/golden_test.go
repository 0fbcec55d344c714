package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden files live in testdata/golden. Regenerate them with:
//
//	go test ./internal/harness -run TestGolden -update
func TestGolden_PlaceThenReject(t *testing.T) {
	s, err := LoadScenario("testdata/place_then_reject.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))
}

func TestGolden_ChestRejected(t *testing.T) {
	s, err := LoadScenario("testdata/chest_rejected.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	require.NoError(t, AssertGolden(t, s.Name, result))
}

func TestMarshalSnapshot_Canonical(t *testing.T) {
	result := sampleResult()
	result.Trace[0].Digest = "sha256:abc"
	result.Trace[0].Error = "QUOTA_EXCEEDED"
	result.Blocks = []BlockTrace{{World: "minecraft:overworld", X: 1, Y: 64, Z: -2, State: "minecraft:chest", Tile: "minecraft:chest"}}

	data, err := MarshalSnapshot("sample", result)
	require.NoError(t, err)
	s := string(data)

	assert.True(t, strings.HasPrefix(s, `{"blocks":[{"pos":`), "keys are sorted: %s", s)
	assert.Contains(t, s, `"error":"QUOTA_EXCEEDED"`)
	assert.Contains(t, s, `"tile":"minecraft:chest"`)
	assert.Contains(t, s, `"rule_hits":{"no-tnt":1}`)
	assert.Contains(t, s, `"restored":[2,1,0]`)
	assert.NotContains(t, s, "sha256:abc", "digests stay out of snapshots")
	assert.NotContains(t, s, "change_block\":1", "event counts stay out of snapshots")
	assert.False(t, strings.HasSuffix(s, "\n"))

	again, err := MarshalSnapshot("sample", result)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestMarshalSnapshot_EmptyResult(t *testing.T) {
	data, err := MarshalSnapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"blocks":[],"rule_hits":{},"scenario_name":"empty","trace":[]}`, string(data))
}
