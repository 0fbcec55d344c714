package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDigestDeterminism(t *testing.T) {
	snap := BlockSnapshot{World: "minecraft:overworld", Pos: Pos(0, 1, 2), State: "minecraft:stone"}

	d1, err := SnapshotDigest(snap)
	require.NoError(t, err)
	d2, err := SnapshotDigest(snap.Clone())
	require.NoError(t, err)

	assert.Equal(t, d1, d2, "SnapshotDigest must be deterministic")
	assert.Len(t, d1, 64, "SHA-256 hex is 64 characters")
	_, err = hex.DecodeString(d1)
	assert.NoError(t, err)
}

func TestSnapshotDigestChangesWithInput(t *testing.T) {
	base := BlockSnapshot{World: "minecraft:overworld", Pos: Pos(0, 1, 2), State: "minecraft:stone"}
	moved := base
	moved.Pos = Pos(0, 1, 3)
	other := base
	other.World = "minecraft:the_end"
	withTile := base
	withTile.Tile = &TileEntity{Type: "minecraft:sign", Pos: base.Pos}

	d := MustSnapshotDigest(base)
	assert.NotEqual(t, d, MustSnapshotDigest(moved))
	assert.NotEqual(t, d, MustSnapshotDigest(other))
	assert.NotEqual(t, d, MustSnapshotDigest(withTile))
}

func TestZeroStateDigestsAsAir(t *testing.T) {
	a := BlockSnapshot{World: "minecraft:overworld"}
	b := BlockSnapshot{World: "minecraft:overworld", State: Air}
	assert.Equal(t, MustSnapshotDigest(a), MustSnapshotDigest(b))
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainSnapshot, data), hashWithDomain(DomainWindow, data))
}

func TestWindowDigest(t *testing.T) {
	outcome := map[string]any{"groups": 2, "restored": []any{"n1"}}

	d1, err := WindowDigest("w-1", 1, outcome)
	require.NoError(t, err)
	d2, err := WindowDigest("w-1", 2, outcome)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	_, err = WindowDigest("w-1", 1, map[string]any{"ratio": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WindowDigest")
}
