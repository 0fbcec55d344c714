package pipeline

import (
	"fmt"

	"github.com/SpongePowered/Common-sub001/internal/capture"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// Change is a block change whose new state has already been written.
type Change struct {
	Original ir.BlockSnapshot
	New      ir.BlockState
	Flags    capture.ChangeFlags

	// Drops is set when the change destroys the original block and its
	// drops are to be spawned.
	Drops bool
}

// Effect is one processing side effect of a block change. Apply runs inside
// a scope of Kind, so everything it logs becomes a side effect of the
// change.
type Effect interface {
	Kind() capture.EffectKind
	Applies(p *Pipeline, c Change) bool
	Apply(p *Pipeline, c Change) error
}

// DefaultEffects is the effect chain of a block change.
func DefaultEffects() []Effect {
	return []Effect{oldBlockOnReplace{}, tileEntitySetup{}, destructDrops{}, notifyNeighbors{}}
}

type oldBlockOnReplace struct{}

func (oldBlockOnReplace) Kind() capture.EffectKind { return capture.EffectOldBlockOnReplace }

func (oldBlockOnReplace) Applies(_ *Pipeline, c Change) bool {
	return c.Original.Tile != nil && c.Original.State.BlockType() != c.New.BlockType()
}

func (oldBlockOnReplace) Apply(p *Pipeline, c Change) error {
	p.log.LogTileRemoval(c.Original.World, c.Original.State, c.Original.Tile)
	if _, err := p.world.RemoveTileEntity(c.Original.World, c.Original.Pos); err != nil {
		return fmt.Errorf("remove tile entity: %w", err)
	}
	return nil
}

type tileEntitySetup struct{}

func (tileEntitySetup) Kind() capture.EffectKind { return capture.EffectTileEntitySetup }

func (tileEntitySetup) Applies(p *Pipeline, c Change) bool {
	return p.reg.Block(c.New.BlockType()).TileEntity != "" && c.Original.State.BlockType() != c.New.BlockType()
}

func (tileEntitySetup) Apply(p *Pipeline, c Change) error {
	current, err := p.world.Snapshot(c.Original.World, c.Original.Pos)
	if err != nil {
		return err
	}
	tile := ir.TileEntity{
		Type: p.reg.Block(c.New.BlockType()).TileEntity,
		Pos:  c.Original.Pos,
		Data: ir.Compound{},
	}
	p.log.LogTileAddition(c.Original.World, c.New, tile, current.Tile)
	if err := p.world.SetTileEntity(c.Original.World, tile); err != nil {
		return fmt.Errorf("set tile entity: %w", err)
	}
	return nil
}

// destructDrops spawns the drops of a destroyed block under a
// PrepareBlockDrops node, so vetoing the break also vetoes its drops.
type destructDrops struct{}

func (destructDrops) Kind() capture.EffectKind { return capture.EffectDestructDrops }

func (destructDrops) Applies(_ *Pipeline, c Change) bool {
	return c.Drops && !c.Original.State.IsAir()
}

func (destructDrops) Apply(p *Pipeline, c Change) error {
	scope := p.log.LogBlockDrops(c.Original)
	defer p.log.CompleteBlockDrops(scope)
	return p.spawnDrops(c.Original.World, c.Original.Pos, p.reg.dropsOf(c.Original.State))
}

type notifyNeighbors struct{}

func (notifyNeighbors) Kind() capture.EffectKind { return capture.EffectNotifyNeighbors }

func (notifyNeighbors) Applies(_ *Pipeline, c Change) bool {
	return c.Flags.NotifyNeighbors
}

func (notifyNeighbors) Apply(p *Pipeline, c Change) error {
	for _, n := range c.Original.Pos.Neighbors() {
		target, err := p.world.Snapshot(c.Original.World, n)
		if err != nil {
			return err
		}
		p.log.LogNeighborNotification(c.Original.Pos, c.New.BlockType(), target)
	}
	return nil
}
