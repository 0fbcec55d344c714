package world

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// Memory is a map-backed world. Positions never written read as air.
type Memory struct {
	regions  map[ir.WorldKey]*region
	entities map[string]ir.Entity
}

type region struct {
	blocks map[ir.BlockPos]ir.BlockState
	tiles  map[ir.BlockPos]ir.TileEntity
}

// NewMemory creates a world store with the given worlds registered.
func NewMemory(worlds ...ir.WorldKey) *Memory {
	m := &Memory{
		regions:  make(map[ir.WorldKey]*region),
		entities: make(map[string]ir.Entity),
	}
	for _, w := range worlds {
		m.AddWorld(w)
	}
	return m
}

// AddWorld registers a world. Registering an existing world is a no-op.
func (m *Memory) AddWorld(w ir.WorldKey) {
	if _, ok := m.regions[w]; ok {
		return
	}
	m.regions[w] = &region{
		blocks: make(map[ir.BlockPos]ir.BlockState),
		tiles:  make(map[ir.BlockPos]ir.TileEntity),
	}
}

// Worlds returns the registered worlds in sorted order.
func (m *Memory) Worlds() []ir.WorldKey {
	out := make([]ir.WorldKey, 0, len(m.regions))
	for w := range m.regions {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

func (m *Memory) region(w ir.WorldKey) (*region, error) {
	r, ok := m.regions[w]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorld, w)
	}
	return r, nil
}

// Block returns the state at pos, or air.
func (m *Memory) Block(w ir.WorldKey, pos ir.BlockPos) ir.BlockState {
	r, ok := m.regions[w]
	if !ok {
		return ir.Air
	}
	if st, ok := r.blocks[pos]; ok {
		return st
	}
	return ir.Air
}

// Snapshot implements Accessor.
func (m *Memory) Snapshot(w ir.WorldKey, pos ir.BlockPos) (ir.BlockSnapshot, error) {
	r, err := m.region(w)
	if err != nil {
		return ir.BlockSnapshot{}, err
	}
	snap := ir.BlockSnapshot{World: w, Pos: pos, State: ir.Air}
	if st, ok := r.blocks[pos]; ok {
		snap.State = st
	}
	if t, ok := r.tiles[pos]; ok {
		snap.Tile = t.Clone()
	}
	return snap, nil
}

// SetBlock implements Accessor. Setting air deletes the entry.
func (m *Memory) SetBlock(w ir.WorldKey, pos ir.BlockPos, state ir.BlockState) error {
	r, err := m.region(w)
	if err != nil {
		return err
	}
	if state.IsAir() {
		delete(r.blocks, pos)
		return nil
	}
	r.blocks[pos] = state
	return nil
}

// Restore implements Accessor.
func (m *Memory) Restore(snap ir.BlockSnapshot) error {
	r, err := m.region(snap.World)
	if err != nil {
		return err
	}
	if snap.State.IsAir() {
		delete(r.blocks, snap.Pos)
	} else {
		r.blocks[snap.Pos] = snap.State
	}
	if snap.Tile == nil {
		delete(r.tiles, snap.Pos)
	} else {
		t := snap.Tile.Clone()
		t.Pos = snap.Pos
		r.tiles[snap.Pos] = *t
	}
	return nil
}

// TileEntity returns a copy of the tile entity at pos.
func (m *Memory) TileEntity(w ir.WorldKey, pos ir.BlockPos) (*ir.TileEntity, bool) {
	r, ok := m.regions[w]
	if !ok {
		return nil, false
	}
	t, ok := r.tiles[pos]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// SetTileEntity implements Accessor.
func (m *Memory) SetTileEntity(w ir.WorldKey, tile ir.TileEntity) error {
	r, err := m.region(w)
	if err != nil {
		return err
	}
	r.tiles[tile.Pos] = *tile.Clone()
	return nil
}

// RemoveTileEntity implements Accessor. Removing an absent tile entity is
// not an error and returns nil.
func (m *Memory) RemoveTileEntity(w ir.WorldKey, pos ir.BlockPos) (*ir.TileEntity, error) {
	r, err := m.region(w)
	if err != nil {
		return nil, err
	}
	t, ok := r.tiles[pos]
	if !ok {
		return nil, nil
	}
	delete(r.tiles, pos)
	return &t, nil
}

// SpawnEntity implements Accessor.
func (m *Memory) SpawnEntity(e ir.Entity) error {
	if _, err := m.region(e.World); err != nil {
		return err
	}
	if _, ok := m.entities[e.ID]; ok {
		return fmt.Errorf("%w: %s", ErrEntityExists, e.ID)
	}
	m.entities[e.ID] = e.Clone()
	return nil
}

// RemoveEntity implements Accessor.
func (m *Memory) RemoveEntity(id string) (ir.Entity, error) {
	e, ok := m.entities[id]
	if !ok {
		return ir.Entity{}, fmt.Errorf("%w: %s", ErrNoEntity, id)
	}
	delete(m.entities, id)
	return e, nil
}

// Entity implements Accessor.
func (m *Memory) Entity(id string) (ir.Entity, bool) {
	e, ok := m.entities[id]
	if !ok {
		return ir.Entity{}, false
	}
	return e.Clone(), true
}

// Entities returns the entities in w ordered by ID.
func (m *Memory) Entities(w ir.WorldKey) []ir.Entity {
	var out []ir.Entity
	for _, e := range m.entities {
		if e.World == w {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b ir.Entity) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// BlockEntry is one non-air position in a Blocks listing.
type BlockEntry struct {
	Pos   ir.BlockPos
	State ir.BlockState
	Tile  *ir.TileEntity
}

// Blocks lists every non-air block and every tile entity in w, ordered by
// Y, then Z, then X.
func (m *Memory) Blocks(w ir.WorldKey) []BlockEntry {
	r, ok := m.regions[w]
	if !ok {
		return nil
	}
	seen := make(map[ir.BlockPos]bool, len(r.blocks)+len(r.tiles))
	var out []BlockEntry
	add := func(pos ir.BlockPos) {
		if seen[pos] {
			return
		}
		seen[pos] = true
		st, ok := r.blocks[pos]
		if !ok {
			st = ir.Air
		}
		entry := BlockEntry{Pos: pos, State: st}
		if t, ok := r.tiles[pos]; ok {
			entry.Tile = t.Clone()
		}
		out = append(out, entry)
	}
	for pos := range r.blocks {
		add(pos)
	}
	for pos := range r.tiles {
		add(pos)
	}
	slices.SortFunc(out, func(a, b BlockEntry) int { return comparePos(a.Pos, b.Pos) })
	return out
}

func comparePos(a, b ir.BlockPos) int {
	switch {
	case a.Y != b.Y:
		return a.Y - b.Y
	case a.Z != b.Z:
		return a.Z - b.Z
	default:
		return a.X - b.X
	}
}

var _ Accessor = (*Memory)(nil)
