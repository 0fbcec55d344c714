package capture

import (
	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// TransactionType is the kind-class used as a batching boundary. Variants
// with the same type synthesize the same event.
type TransactionType string

// Transaction types.
const (
	TypeBlock                TransactionType = "block"
	TypeNeighborNotification TransactionType = "neighbor_notification"
	TypeSpawnEntity          TransactionType = "spawn_entity"
	TypeEntityDeathDrops     TransactionType = "entity_death_drops"
	TypeBlockEvent           TransactionType = "block_event"
)

// EffectKind names the process that produced a side-effect chain.
type EffectKind string

// Effect kinds.
const (
	EffectBlockDrops        EffectKind = "block_drops"
	EffectDestructDrops     EffectKind = "destruct_drops"
	EffectEntityDrops       EffectKind = "entity_drops"
	EffectOldBlockOnReplace EffectKind = "old_block_on_replace"
	EffectNotifyNeighbors   EffectKind = "notify_neighbors"
	EffectTileEntitySetup   EffectKind = "tile_entity_setup"
	EffectPerformBlockEvent EffectKind = "perform_block_event"
)

// Transaction is one recorded mutation. The set of implementations is
// closed: ChangeBlock, AddTileEntity, RemoveTileEntity, ReplaceTileEntity,
// NeighborNotification, SpawnEntity, EntityPerformingDrops,
// PrepareBlockDrops and AddBlockEvent.
type Transaction interface {
	// Type is the kind-class of the variant.
	Type() TransactionType

	// World is the world the mutation happened in.
	World() ir.WorldKey

	// Unbatchable variants always form a group of their own.
	Unbatchable() bool

	// Variant is the variant name used in traces and the journal.
	Variant() string

	// String is a one-line description for debug output.
	String() string

	// absorb folds next into the receiver and reports whether it did.
	absorb(next Transaction) bool

	// mutateFrame adds the receiver's causes and context to the frame its
	// group is dispatched under. parent is the enclosing group's event.
	mutateFrame(f *cause.Frame, parent event.Event)

	// generateEvent builds the event for a group the receiver decides.
	// Returning false declines: the group is cancelled with no dispatch.
	generateEvent(c cause.Cause, group []Transaction) (event.Event, bool)

	// rejected is the decider's post-check: the indices of group members
	// the subscribers invalidated without cancelling the event.
	rejected(ev event.Event, group []Transaction) []int

	// postProcess copies subscriber adjustments back into the world.
	postProcess(w world.Accessor, ev event.Event) error

	// restore undoes the mutation.
	restore(w world.Accessor) error

	// record is the journal payload. Values must be canonically
	// marshalable.
	record() map[string]any
}

type noFrame struct{}

func (noFrame) mutateFrame(*cause.Frame, event.Event) {}

type batchable struct{}

func (batchable) Unbatchable() bool { return false }

type noAbsorb struct{}

func (noAbsorb) absorb(Transaction) bool { return false }

type noPostProcess struct{}

func (noPostProcess) postProcess(world.Accessor, event.Event) error { return nil }
