package event

import (
	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// Event names. Subscribers register by name.
const (
	NameChangeBlock    = "change_block"
	NameNotifyNeighbor = "notify_neighbor_block"
	NameSpawnEntity    = "spawn_entity"
	NameHarvestEntity  = "harvest_entity"
	NameBlockEvent     = "schedule_block_event"
	NamePost           = "post"
)

// Event is anything that can be posted to a Bus.
type Event interface {
	Name() string
	Cause() cause.Cause
}

// Cancellable events can be vetoed by a subscriber.
type Cancellable interface {
	Event
	IsCancelled() bool
	SetCancelled(bool)
}

// Base carries the cause every event has. Embed it.
type Base struct {
	cause cause.Cause
}

// NewBase captures c.
func NewBase(c cause.Cause) Base {
	return Base{cause: c}
}

// Cause returns the cause the event was created under.
func (b Base) Cause() cause.Cause {
	return b.cause
}

// Cancel is the cancellation flag. Embed it to make an event Cancellable.
type Cancel struct {
	cancelled bool
}

// IsCancelled reports the flag.
func (c *Cancel) IsCancelled() bool { return c.cancelled }

// SetCancelled sets the flag.
func (c *Cancel) SetCancelled(v bool) { c.cancelled = v }

// IsCancelled reports whether ev is cancellable and cancelled.
func IsCancelled(ev Event) bool {
	c, ok := ev.(Cancellable)
	return ok && c.IsCancelled()
}

// Operation describes what a block transaction does to its position.
type Operation string

// Operations.
const (
	OpPlace  Operation = "place"
	OpBreak  Operation = "break"
	OpModify Operation = "modify"
	OpDrops  Operation = "drops"
)

// OperationFor classifies a state change.
func OperationFor(original, final ir.BlockState) Operation {
	switch {
	case original.IsAir() && !final.IsAir():
		return OpPlace
	case !original.IsAir() && final.IsAir():
		return OpBreak
	default:
		return OpModify
	}
}

// BlockTransaction is one position's change inside a ChangeBlockEvent.
// Subscribers may Invalidate it or replace its final state with SetCustom.
type BlockTransaction struct {
	Original  ir.BlockSnapshot
	Final     ir.BlockSnapshot
	Operation Operation

	invalid bool
	custom  *ir.BlockState
}

// NewBlockTransaction creates a valid transaction.
func NewBlockTransaction(original, final ir.BlockSnapshot, op Operation) *BlockTransaction {
	return &BlockTransaction{Original: original, Final: final, Operation: op}
}

// IsValid reports whether the change is still allowed.
func (t *BlockTransaction) IsValid() bool { return !t.invalid }

// Invalidate rejects this change only. Other transactions in the event are
// unaffected.
func (t *BlockTransaction) Invalidate() { t.invalid = true }

// SetCustom replaces the final state the position ends up with.
func (t *BlockTransaction) SetCustom(state ir.BlockState) {
	t.custom = &state
}

// Custom returns the subscriber-set final state, if any.
func (t *BlockTransaction) Custom() (ir.BlockState, bool) {
	if t.custom == nil {
		return "", false
	}
	return *t.custom, true
}

// ChangeBlockEvent reports a batch of block and tile entity changes in one
// world.
type ChangeBlockEvent struct {
	Base
	Cancel
	World        ir.WorldKey
	Transactions []*BlockTransaction
}

// Name implements Event.
func (*ChangeBlockEvent) Name() string { return NameChangeBlock }

// NeighborTicket is one notification from Source to Target.
type NeighborTicket struct {
	Source      ir.BlockPos
	SourceBlock string
	Target      ir.BlockPos
	TargetState ir.BlockState

	invalid bool
}

// IsValid reports whether the notification is still delivered.
func (n *NeighborTicket) IsValid() bool { return !n.invalid }

// Invalidate suppresses this notification.
func (n *NeighborTicket) Invalidate() { n.invalid = true }

// NotifyNeighborBlockEvent reports neighbor notifications in one world.
type NotifyNeighborBlockEvent struct {
	Base
	Cancel
	World   ir.WorldKey
	Tickets []*NeighborTicket
}

// Name implements Event.
func (*NotifyNeighborBlockEvent) Name() string { return NameNotifyNeighbor }

// SpawnEntityEvent reports entities entering one world. Subscribers may
// remove individual entities with Filter.
type SpawnEntityEvent struct {
	Base
	Cancel
	World    ir.WorldKey
	entities []ir.Entity
}

// NewSpawnEntityEvent creates the event with entities in spawn order.
func NewSpawnEntityEvent(c cause.Cause, world ir.WorldKey, entities []ir.Entity) *SpawnEntityEvent {
	return &SpawnEntityEvent{Base: NewBase(c), World: world, entities: entities}
}

// Name implements Event.
func (*SpawnEntityEvent) Name() string { return NameSpawnEntity }

// Entities returns the entities still allowed to spawn.
func (e *SpawnEntityEvent) Entities() []ir.Entity {
	return e.entities
}

// Filter keeps only the entities for which keep returns true and returns
// how many were removed.
func (e *SpawnEntityEvent) Filter(keep func(ir.Entity) bool) int {
	kept := e.entities[:0]
	for _, ent := range e.entities {
		if keep(ent) {
			kept = append(kept, ent)
		}
	}
	removed := len(e.entities) - len(kept)
	e.entities = kept
	return removed
}

// Contains reports whether the entity with id is still in the event.
func (e *SpawnEntityEvent) Contains(id string) bool {
	for _, ent := range e.entities {
		if ent.ID == id {
			return true
		}
	}
	return false
}

// HarvestEntityEvent announces that an entity is about to produce its death
// drops. Cancelling it brings the entity back and withdraws every drop
// nested under it. Single drops are vetoed through the spawn events.
type HarvestEntityEvent struct {
	Base
	Cancel
	Entity ir.Entity
}

// Name implements Event.
func (*HarvestEntityEvent) Name() string { return NameHarvestEntity }

// ScheduleBlockEventEvent reports queued block events (piston pushes, note
// blocks, chest lids) in one world.
type ScheduleBlockEventEvent struct {
	Base
	Cancel
	World   ir.WorldKey
	Targets []*BlockEventTarget
}

// BlockEventTarget is one queued block event.
type BlockEventTarget struct {
	Snapshot ir.BlockSnapshot
	Action   string
	Param    int

	invalid bool
}

// IsValid reports whether the block event still runs.
func (b *BlockEventTarget) IsValid() bool { return !b.invalid }

// Invalidate drops this block event.
func (b *BlockEventTarget) Invalidate() { b.invalid = true }

// Name implements Event.
func (*ScheduleBlockEventEvent) Name() string { return NameBlockEvent }

// PostEvent aggregates every event of one transaction type dispatched in a
// capture window. It is posted once per type after rollback and is not
// cancellable.
type PostEvent struct {
	Base
	Type   string
	Events []Event
}

// Name implements Event.
func (*PostEvent) Name() string { return NamePost }
