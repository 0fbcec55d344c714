package pipeline

import (
	"github.com/SpongePowered/Common-sub001/internal/capture"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// ItemEntityType is the entity type drops are spawned as.
const ItemEntityType = "minecraft:item"

// BlockBehavior is what the pipeline knows about a block type.
type BlockBehavior struct {
	// TileEntity is the tile entity type installed when the block is
	// placed. Empty means none.
	TileEntity string

	// Drops are the item types spawned when the block is broken with drops.
	// Nil means the block drops itself; an empty slice means nothing.
	Drops []string
}

// BlockEventHandler performs a queued block event at target. Changes it
// makes through p are logged under the block event.
type BlockEventHandler func(p *Pipeline, target ir.BlockSnapshot, param int) error

// Registry holds block behaviors, entity loot tables and block event
// handlers.
type Registry struct {
	blocks map[string]BlockBehavior
	loot   map[string][]string
	events map[string]BlockEventHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		blocks: make(map[string]BlockBehavior),
		loot:   make(map[string][]string),
		events: make(map[string]BlockEventHandler),
	}
}

// DefaultRegistry knows a handful of vanilla blocks and mobs, and the
// piston and note block events.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterBlock("minecraft:chest", BlockBehavior{TileEntity: "minecraft:chest"})
	r.RegisterBlock("minecraft:furnace", BlockBehavior{TileEntity: "minecraft:furnace"})
	r.RegisterBlock("minecraft:sign", BlockBehavior{TileEntity: "minecraft:sign", Drops: []string{"minecraft:oak_sign"}})
	r.RegisterBlock("minecraft:stone", BlockBehavior{Drops: []string{"minecraft:cobblestone"}})
	r.RegisterBlock("minecraft:grass_block", BlockBehavior{Drops: []string{"minecraft:dirt"}})
	r.RegisterBlock("minecraft:glass", BlockBehavior{Drops: []string{}})
	r.RegisterBlock("minecraft:piston_head", BlockBehavior{Drops: []string{}})

	r.RegisterLoot("minecraft:cow", "minecraft:beef", "minecraft:leather")
	r.RegisterLoot("minecraft:zombie", "minecraft:rotten_flesh")
	r.RegisterLoot("minecraft:sheep", "minecraft:mutton", "minecraft:white_wool")

	r.RegisterBlockEvent("extend", extendPiston)
	r.RegisterBlockEvent("retract", retractPiston)
	r.RegisterBlockEvent("play", func(*Pipeline, ir.BlockSnapshot, int) error { return nil })
	return r
}

// RegisterBlock sets the behavior of blockType, e.g. "minecraft:chest".
func (r *Registry) RegisterBlock(blockType string, b BlockBehavior) {
	r.blocks[blockType] = b
}

// Block returns the behavior of blockType.
func (r *Registry) Block(blockType string) BlockBehavior {
	return r.blocks[blockType]
}

// RegisterLoot sets the items entityType drops on death.
func (r *Registry) RegisterLoot(entityType string, items ...string) {
	r.loot[entityType] = items
}

// Loot returns the items entityType drops on death.
func (r *Registry) Loot(entityType string) []string {
	return r.loot[entityType]
}

// RegisterBlockEvent sets the handler for action.
func (r *Registry) RegisterBlockEvent(action string, h BlockEventHandler) {
	r.events[action] = h
}

// BlockEvent returns the handler for action.
func (r *Registry) BlockEvent(action string) (BlockEventHandler, bool) {
	h, ok := r.events[action]
	return h, ok
}

// dropsOf returns the item types state drops when broken.
func (r *Registry) dropsOf(state ir.BlockState) []string {
	if state.IsAir() {
		return nil
	}
	b, ok := r.blocks[state.BlockType()]
	if !ok || b.Drops == nil {
		return []string{state.BlockType()}
	}
	return b.Drops
}

// extendPiston pushes a piston head into the position above target. param
// is unused.
func extendPiston(p *Pipeline, target ir.BlockSnapshot, _ int) error {
	head := ir.Pos(target.Pos.X, target.Pos.Y+1, target.Pos.Z)
	_, err := p.SetBlock(target.World, head, "minecraft:piston_head", capture.DefaultFlags)
	return err
}

func retractPiston(p *Pipeline, target ir.BlockSnapshot, _ int) error {
	head := ir.Pos(target.Pos.X, target.Pos.Y+1, target.Pos.Z)
	_, err := p.SetBlock(target.World, head, ir.Air, capture.DefaultFlags)
	return err
}
