package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// ErrInjected is returned by RecordingWorld for operations set to fail.
var ErrInjected = errors.New("injected failure")

// RecordingWorld wraps an Accessor and records every mutating call, one
// line per call, e.g. "restore minecraft:overworld (0, 64, 0) minecraft:air".
// Operations named in FailOn return ErrInjected instead of running.
type RecordingWorld struct {
	world.Accessor

	Calls  []string
	FailOn map[string]bool
}

// NewRecordingWorld wraps inner.
func NewRecordingWorld(inner world.Accessor) *RecordingWorld {
	return &RecordingWorld{Accessor: inner, FailOn: make(map[string]bool)}
}

// Reset forgets recorded calls.
func (r *RecordingWorld) Reset() {
	r.Calls = nil
}

// CallsWithPrefix returns the recorded calls starting with op.
func (r *RecordingWorld) CallsWithPrefix(op string) []string {
	var out []string
	for _, c := range r.Calls {
		if strings.HasPrefix(c, op+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (r *RecordingWorld) record(op string, format string, args ...any) error {
	r.Calls = append(r.Calls, op+" "+fmt.Sprintf(format, args...))
	if r.FailOn[op] {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func tileName(t *ir.TileEntity) string {
	if t == nil {
		return "-"
	}
	return t.Type
}

// SetBlock implements world.Accessor.
func (r *RecordingWorld) SetBlock(w ir.WorldKey, pos ir.BlockPos, state ir.BlockState) error {
	if err := r.record("set_block", "%s %s %s", w, pos, state); err != nil {
		return err
	}
	return r.Accessor.SetBlock(w, pos, state)
}

// Restore implements world.Accessor.
func (r *RecordingWorld) Restore(snap ir.BlockSnapshot) error {
	if err := r.record("restore", "%s %s %s %s", snap.World, snap.Pos, snap.State, tileName(snap.Tile)); err != nil {
		return err
	}
	return r.Accessor.Restore(snap)
}

// SetTileEntity implements world.Accessor.
func (r *RecordingWorld) SetTileEntity(w ir.WorldKey, tile ir.TileEntity) error {
	if err := r.record("set_tile", "%s %s %s", w, tile.Pos, tile.Type); err != nil {
		return err
	}
	return r.Accessor.SetTileEntity(w, tile)
}

// RemoveTileEntity implements world.Accessor.
func (r *RecordingWorld) RemoveTileEntity(w ir.WorldKey, pos ir.BlockPos) (*ir.TileEntity, error) {
	if err := r.record("remove_tile", "%s %s", w, pos); err != nil {
		return nil, err
	}
	return r.Accessor.RemoveTileEntity(w, pos)
}

// SpawnEntity implements world.Accessor.
func (r *RecordingWorld) SpawnEntity(e ir.Entity) error {
	if err := r.record("spawn", "%s %s", e.World, e); err != nil {
		return err
	}
	return r.Accessor.SpawnEntity(e)
}

// RemoveEntity implements world.Accessor.
func (r *RecordingWorld) RemoveEntity(id string) (ir.Entity, error) {
	if err := r.record("remove_entity", "%s", id); err != nil {
		return ir.Entity{}, err
	}
	return r.Accessor.RemoveEntity(id)
}

var _ world.Accessor = (*RecordingWorld)(nil)
