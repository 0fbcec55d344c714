package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SpongePowered/Common-sub001/internal/capture"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// Spawn types recorded in the cause context of spawn events.
const (
	SpawnTypeDrops     = "drops"
	SpawnTypePlacement = "placement"
	SpawnTypeCustom    = "custom"
)

var (
	// ErrNoTileEntity is returned when editing a tile entity that is not
	// there.
	ErrNoTileEntity = errors.New("no tile entity")

	// ErrUnknownBlockEvent is returned for a block event action with no
	// registered handler.
	ErrUnknownBlockEvent = errors.New("unknown block event")
)

// IDGenerator hands out IDs for entities the pipeline spawns itself.
type IDGenerator interface {
	Generate() string
}

type randomIDs struct{}

func (randomIDs) Generate() string { return uuid.NewString() }

// Pipeline performs mutations against a world and logs them to a capture
// log.
type Pipeline struct {
	world   world.Accessor
	log     *capture.Log
	reg     *Registry
	ids     IDGenerator
	effects []Effect
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRegistry replaces DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(p *Pipeline) { p.reg = r }
}

// WithEntityIDs sets the generator for drop entity IDs. The default is
// random UUIDs.
func WithEntityIDs(g IDGenerator) Option {
	return func(p *Pipeline) { p.ids = g }
}

// WithEffects replaces DefaultEffects.
func WithEffects(effects ...Effect) Option {
	return func(p *Pipeline) { p.effects = effects }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline writing to w and logging to l.
func New(w world.Accessor, l *capture.Log, opts ...Option) *Pipeline {
	p := &Pipeline{
		world:   w,
		log:     l,
		reg:     DefaultRegistry(),
		ids:     randomIDs{},
		effects: DefaultEffects(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// World is the world the pipeline mutates.
func (p *Pipeline) World() world.Accessor { return p.world }

// Log is the capture log the pipeline records to.
func (p *Pipeline) Log() *capture.Log { return p.log }

// Registry is the pipeline's registry.
func (p *Pipeline) Registry() *Registry { return p.reg }

// SetBlock changes the block at pos and runs the change's side effects.
// Setting the state already there does nothing and returns false.
func (p *Pipeline) SetBlock(w ir.WorldKey, pos ir.BlockPos, state ir.BlockState, flags capture.ChangeFlags) (bool, error) {
	return p.setBlock(Change{Original: ir.BlockSnapshot{World: w, Pos: pos}, New: state, Flags: flags})
}

// setBlock performs c. Only c.Original's world and position are read; the
// rest of the snapshot is taken from the world.
func (p *Pipeline) setBlock(c Change) (bool, error) {
	w, pos, state, flags := c.Original.World, c.Original.Pos, c.New, c.Flags
	if state == "" {
		state = ir.Air
	}
	original, err := p.world.Snapshot(w, pos)
	if err != nil {
		return false, fmt.Errorf("set block %s %s: %w", w, pos, err)
	}
	if original.State == state {
		return false, nil
	}

	p.log.LogBlockChange(original, state, flags)
	if err := p.world.SetBlock(w, pos, state); err != nil {
		return true, fmt.Errorf("set block %s %s: %w", w, pos, err)
	}
	p.logger.Debug("block changed", "world", w, "pos", pos, "from", original.State, "to", state)

	c.Original, c.New = original, state
	for _, e := range p.effects {
		if !e.Applies(p, c) {
			continue
		}
		var applyErr error
		p.log.WithEffect(e.Kind(), func() { applyErr = e.Apply(p, c) })
		if applyErr != nil {
			return true, fmt.Errorf("%s at %s %s: %w", e.Kind(), w, pos, applyErr)
		}
	}
	return true, nil
}

// BreakBlock sets pos to air. With drops, the block's drops are spawned as
// side effects of the break, under a drops node. Breaking air does nothing.
func (p *Pipeline) BreakBlock(w ir.WorldKey, pos ir.BlockPos, drops bool) error {
	_, err := p.setBlock(Change{
		Original: ir.BlockSnapshot{World: w, Pos: pos},
		New:      ir.Air,
		Flags:    capture.DefaultFlags,
		Drops:    drops,
	})
	if err != nil {
		return fmt.Errorf("break block: %w", err)
	}
	return nil
}

// Explode breaks every non-air block within radius of center, with drops,
// in Y, Z, X order.
func (p *Pipeline) Explode(w ir.WorldKey, center ir.BlockPos, radius int) error {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy+dz*dz > r2 {
					continue
				}
				pos := ir.Pos(center.X+dx, center.Y+dy, center.Z+dz)
				if err := p.BreakBlock(w, pos, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetTileData replaces the data of the tile entity at pos.
func (p *Pipeline) SetTileData(w ir.WorldKey, pos ir.BlockPos, data ir.Compound) error {
	snap, err := p.world.Snapshot(w, pos)
	if err != nil {
		return fmt.Errorf("set tile data %s %s: %w", w, pos, err)
	}
	if snap.Tile == nil {
		return fmt.Errorf("set tile data %s %s: %w", w, pos, ErrNoTileEntity)
	}
	proposed := snap.Tile.Clone()
	proposed.Data = data.Clone()
	p.log.LogTileReplacement(w, pos, snap.State, snap.Tile, proposed)
	return p.world.SetTileEntity(w, *proposed)
}

// SpawnEntity adds e to its world.
func (p *Pipeline) SpawnEntity(e ir.Entity, spawnType string) error {
	if _, err := p.world.Snapshot(e.World, e.Pos); err != nil {
		return fmt.Errorf("spawn %s: %w", e, err)
	}
	if _, exists := p.world.Entity(e.ID); exists {
		return fmt.Errorf("spawn %s: %w", e, world.ErrEntityExists)
	}
	p.log.LogEntitySpawn(e, spawnType)
	return p.world.SpawnEntity(e)
}

// KillEntity removes the entity and spawns its loot as its death drops.
func (p *Pipeline) KillEntity(id, damageSource string) error {
	e, ok := p.world.Entity(id)
	if !ok {
		return fmt.Errorf("kill %s: %w", id, world.ErrNoEntity)
	}
	if _, err := p.world.RemoveEntity(id); err != nil {
		return fmt.Errorf("kill %s: %w", id, err)
	}
	scope := p.log.EnsureEntityDropsEffect(e, damageSource)
	defer scope.Close()
	return p.spawnDrops(e.World, e.Pos, p.reg.Loot(e.Type))
}

// QueueBlockEvent records a block event at pos and performs it. Whatever
// the handler changes is logged under the event.
func (p *Pipeline) QueueBlockEvent(w ir.WorldKey, pos ir.BlockPos, action string, param int) error {
	h, ok := p.reg.BlockEvent(action)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlockEvent, action)
	}
	snap, err := p.world.Snapshot(w, pos)
	if err != nil {
		return fmt.Errorf("block event %s %s: %w", w, pos, err)
	}
	p.log.LogBlockEvent(snap, action, param)

	var herr error
	p.log.WithEffect(capture.EffectPerformBlockEvent, func() { herr = h(p, snap, param) })
	if herr != nil {
		return fmt.Errorf("block event %s at %s %s: %w", action, w, pos, herr)
	}
	return nil
}

func (p *Pipeline) spawnDrops(w ir.WorldKey, pos ir.BlockPos, items []string) error {
	for _, item := range items {
		e := ir.Entity{
			ID:    p.ids.Generate(),
			Type:  ItemEntityType,
			World: w,
			Pos:   pos,
			Data:  ir.Compound{"item": ir.Str(item), "count": ir.Int(1)},
		}
		if err := p.SpawnEntity(e, SpawnTypeDrops); err != nil {
			return err
		}
	}
	return nil
}
