package world

import (
	"errors"

	"github.com/SpongePowered/Common-sub001/internal/ir"
)

var (
	// ErrUnknownWorld is returned for operations on a world that was never
	// registered.
	ErrUnknownWorld = errors.New("unknown world")

	// ErrEntityExists is returned when spawning an entity whose ID is
	// already present.
	ErrEntityExists = errors.New("entity already exists")

	// ErrNoEntity is returned when removing an entity that does not exist.
	ErrNoEntity = errors.New("no such entity")
)

// Accessor is the set of world primitives nodes call back into when they
// post-process or restore. Implementations are not required to be safe for
// concurrent use; the engine drives them from a single goroutine.
type Accessor interface {
	// Snapshot returns the block state and tile entity at pos.
	Snapshot(world ir.WorldKey, pos ir.BlockPos) (ir.BlockSnapshot, error)

	// SetBlock changes the block state at pos and leaves any tile entity in
	// place.
	SetBlock(world ir.WorldKey, pos ir.BlockPos, state ir.BlockState) error

	// Restore writes snap back exactly: state and tile entity, or the
	// absence of one.
	Restore(snap ir.BlockSnapshot) error

	// SetTileEntity installs tile at tile.Pos, replacing any existing one.
	SetTileEntity(world ir.WorldKey, tile ir.TileEntity) error

	// RemoveTileEntity removes the tile entity at pos and returns it.
	RemoveTileEntity(world ir.WorldKey, pos ir.BlockPos) (*ir.TileEntity, error)

	// SpawnEntity adds e to e.World.
	SpawnEntity(e ir.Entity) error

	// RemoveEntity removes the entity with the given ID and returns it.
	RemoveEntity(id string) (ir.Entity, error)

	// Entity looks up an entity by ID.
	Entity(id string) (ir.Entity, bool)
}
