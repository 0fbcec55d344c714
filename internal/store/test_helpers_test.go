package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleWindow builds a rolled-back window: a chest placement whose tile
// entity was rejected along with the block change.
func sampleWindow(id string, seq int64) Window {
	return Window{
		ID:             id,
		Seq:            seq,
		Operation:      "place chest",
		Outcome:        "rolled_back",
		NodeCount:      2,
		Restored:       []int{1, 0},
		Digest:         "sha256:test",
		EngineVersion:  "0.1.0",
		JournalVersion: "1",
		Groups: []Group{
			{Index: 0, Parent: -1, Chain: 0, Type: "block", World: "minecraft:overworld", Decider: 0, Event: "change_block", Outcome: "cancelled", Nodes: []int{0}},
			{Index: 1, Parent: 0, Chain: 1, Type: "block", World: "minecraft:overworld", Decider: 1, Event: "", Outcome: "parent_cancelled", Nodes: []int{1}},
		},
		Nodes: []Node{
			{ID: 0, Chain: 0, Parent: -1, Group: 0, Type: "block", Variant: "change_block", World: "minecraft:overworld", Description: "change_block minecraft:overworld 0,64,0", Cancelled: true, Restored: true, Detail: `{"new":"minecraft:chest"}`},
			{ID: 1, Chain: 1, Parent: 0, Effect: "tile_entity_setup", Group: 1, Type: "block", Variant: "add_tile_entity", World: "minecraft:overworld", Description: "add_tile_entity minecraft:overworld 0,64,0", Cancelled: true, Restored: true},
		},
	}
}

// writeTestWindow journals a sample window and fails the test on error.
func writeTestWindow(t *testing.T, s *Store, id string, seq int64) Window {
	t.Helper()
	w := sampleWindow(id, seq)
	if _, err := s.WriteWindow(context.Background(), w); err != nil {
		t.Fatalf("WriteWindow(%s) failed: %v", id, err)
	}
	return w
}
