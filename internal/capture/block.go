package capture

import (
	"fmt"
	"strings"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// blockBased is implemented by every TypeBlock variant. Each contributes one
// BlockTransaction to the group's ChangeBlockEvent.
type blockBased interface {
	Transaction
	newReceipt() *event.BlockTransaction
	receipt() *event.BlockTransaction
}

type blockReceipt struct {
	rcpt *event.BlockTransaction
}

func (b *blockReceipt) receipt() *event.BlockTransaction { return b.rcpt }

func (b *blockReceipt) issue(original, final ir.BlockSnapshot, op event.Operation) *event.BlockTransaction {
	b.rcpt = event.NewBlockTransaction(original.Clone(), final.Clone(), op)
	return b.rcpt
}

func generateBlockEvent(c cause.Cause, w ir.WorldKey, group []Transaction) (event.Event, bool) {
	members, ok := membersOf[blockBased](group)
	if !ok {
		return nil, false
	}
	ev := &event.ChangeBlockEvent{Base: event.NewBase(c), World: w}
	for _, m := range members {
		ev.Transactions = append(ev.Transactions, m.newReceipt())
	}
	return ev, true
}

func blockRejected(group []Transaction) []int {
	var out []int
	for i, tx := range group {
		bb, ok := tx.(blockBased)
		if !ok {
			continue
		}
		if r := bb.receipt(); r != nil && !r.IsValid() {
			out = append(out, i)
		}
	}
	return out
}

// membersOf converts a group to one concrete member type, failing if any
// member has a different type.
func membersOf[T Transaction](group []Transaction) ([]T, bool) {
	out := make([]T, 0, len(group))
	for _, tx := range group {
		m, ok := tx.(T)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// ChangeFlags control which processing side effects a block change runs.
type ChangeFlags struct {
	NotifyNeighbors bool
	Physics         bool
}

// DefaultFlags notify neighbors and run physics.
var DefaultFlags = ChangeFlags{NotifyNeighbors: true, Physics: true}

func (f ChangeFlags) names() []string {
	out := []string{}
	if f.NotifyNeighbors {
		out = append(out, "notify_neighbors")
	}
	if f.Physics {
		out = append(out, "physics")
	}
	return out
}

// ChangeBlock records a block state change at one position.
type ChangeBlock struct {
	batchable
	noAbsorb
	blockReceipt

	Original ir.BlockSnapshot
	New      ir.BlockState
	Flags    ChangeFlags
}

func (*ChangeBlock) Type() TransactionType { return TypeBlock }
func (c *ChangeBlock) World() ir.WorldKey { return c.Original.World }
func (*ChangeBlock) Variant() string { return "change_block" }

func (c *ChangeBlock) String() string {
	return fmt.Sprintf("ChangeBlock %s %s %s -> %s", c.Original.World, c.Original.Pos, c.Original.State, c.New)
}

func (c *ChangeBlock) mutateFrame(f *cause.Frame, _ event.Event) {
	f.AddContext(cause.KeyWorld, string(c.Original.World))
}

func (c *ChangeBlock) newReceipt() *event.BlockTransaction {
	return c.issue(c.Original, c.Original.WithState(c.New), event.OperationFor(c.Original.State, c.New))
}

func (c *ChangeBlock) generateEvent(cs cause.Cause, group []Transaction) (event.Event, bool) {
	return generateBlockEvent(cs, c.World(), group)
}

func (*ChangeBlock) rejected(_ event.Event, group []Transaction) []int {
	return blockRejected(group)
}

// postProcess applies a subscriber's custom final state.
func (c *ChangeBlock) postProcess(w world.Accessor, _ event.Event) error {
	if c.rcpt == nil {
		return nil
	}
	custom, ok := c.rcpt.Custom()
	if !ok || custom == c.New {
		return nil
	}
	return w.SetBlock(c.Original.World, c.Original.Pos, custom)
}

func (c *ChangeBlock) restore(w world.Accessor) error {
	return w.Restore(c.Original)
}

func (c *ChangeBlock) record() map[string]any {
	return map[string]any{
		"original": c.Original,
		"new":      c.New,
		"flags":    c.Flags.names(),
	}
}

// PrepareBlockDrops records that a block is about to produce drops. The
// drops themselves are logged in its EffectBlockDrops chain.
type PrepareBlockDrops struct {
	batchable
	noAbsorb
	noFrame
	noPostProcess
	blockReceipt

	Original ir.BlockSnapshot
}

func (*PrepareBlockDrops) Type() TransactionType { return TypeBlock }
func (p *PrepareBlockDrops) World() ir.WorldKey { return p.Original.World }
func (*PrepareBlockDrops) Variant() string { return "prepare_block_drops" }

func (p *PrepareBlockDrops) String() string {
	return fmt.Sprintf("PrepareBlockDrops %s %s %s", p.Original.World, p.Original.Pos, p.Original.State)
}

func (p *PrepareBlockDrops) newReceipt() *event.BlockTransaction {
	return p.issue(p.Original, p.Original, event.OpDrops)
}

func (p *PrepareBlockDrops) generateEvent(cs cause.Cause, group []Transaction) (event.Event, bool) {
	return generateBlockEvent(cs, p.World(), group)
}

func (*PrepareBlockDrops) rejected(_ event.Event, group []Transaction) []int {
	return blockRejected(group)
}

// restore is a no-op. Rejecting the drops rejects the spawns nested under
// this node; the block itself belongs to the change that destroyed it.
func (*PrepareBlockDrops) restore(world.Accessor) error {
	return nil
}

func (p *PrepareBlockDrops) record() map[string]any {
	return map[string]any{"original": p.Original}
}

func describeTile(t *ir.TileEntity) string {
	if t == nil {
		return "none"
	}
	if len(t.Data) == 0 {
		return t.Type
	}
	return t.Type + "{" + strings.Join(t.Data.SortedKeys(), ",") + "}"
}
