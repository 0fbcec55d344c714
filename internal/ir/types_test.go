package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorldKey(t *testing.T) {
	tests := []struct {
		input    string
		expected WorldKey
		wantErr  bool
	}{
		{"overworld", "minecraft:overworld", false},
		{"minecraft:the_nether", "minecraft:the_nether", false},
		{"  Custom:Skyblock/Island-1 ", "custom:skyblock/island-1", false},
		{"", "", true},
		{":overworld", "", true},
		{"minecraft:", "", true},
		{"bad ns:overworld", "", true},
		{"ns/x:overworld", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseWorldKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWorldKeyParts(t *testing.T) {
	k := MustWorldKey("custom:arena/one")
	assert.Equal(t, "custom", k.Namespace())
	assert.Equal(t, "arena/one", k.Path())
	assert.Panics(t, func() { MustWorldKey("") })
}

func TestParseBlockState(t *testing.T) {
	st, err := ParseBlockState("Furnace[facing=north,lit=false]")
	require.NoError(t, err)
	assert.Equal(t, BlockState("minecraft:furnace[facing=north,lit=false]"), st)
	assert.Equal(t, "minecraft:furnace", st.BlockType())
	assert.False(t, st.IsAir())

	_, err = ParseBlockState("furnace[facing=north")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated")

	assert.True(t, Air.IsAir())
	assert.True(t, BlockState("").IsAir())
	assert.Equal(t, BlockState("minecraft:stone"), MustBlockState("stone"))
}

func TestBlockPosNeighbors(t *testing.T) {
	p := Pos(0, 64, 0)
	n := p.Neighbors()
	require.Len(t, n, 6)
	assert.Equal(t, Pos(-1, 64, 0), n[0])
	assert.Equal(t, Pos(0, 65, 0), n[3])
	assert.Equal(t, Pos(0, 64, 1), n[5])
	assert.Equal(t, "(0, 64, 0)", p.String())
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	snap := BlockSnapshot{
		World: "minecraft:overworld",
		Pos:   Pos(1, 2, 3),
		State: "minecraft:chest",
		Tile:  &TileEntity{Type: "minecraft:chest", Pos: Pos(1, 2, 3), Data: Compound{"Lock": Str("a")}},
	}
	clone := snap.Clone()
	clone.Tile.Data["Lock"] = Str("b")

	assert.Equal(t, Str("a"), snap.Tile.Data["Lock"])
	assert.NotSame(t, snap.Tile, clone.Tile)

	air := snap.WithState(Air)
	assert.Nil(t, air.Tile)
	assert.Equal(t, snap.Pos, air.Pos)
}

func TestJSONFieldNaming(t *testing.T) {
	data, err := json.Marshal(BlockSnapshot{
		World: "minecraft:overworld",
		State: "minecraft:stone",
		Tile:  &TileEntity{Type: "minecraft:sign"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"world"`)
	assert.Contains(t, string(data), `"state"`)
	assert.Contains(t, string(data), `"tile"`)

	data, err = json.Marshal(Entity{ID: "e1", Type: "minecraft:pig"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"e1"`)
	assert.NotContains(t, string(data), `"data"`)
}
