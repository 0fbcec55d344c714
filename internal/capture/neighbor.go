package capture

import (
	"fmt"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// NeighborNotification records a block notifying a neighbor that it
// changed. It has no effect of its own on the world; reactions of the
// neighbor are logged separately.
type NeighborNotification struct {
	batchable
	noAbsorb
	noPostProcess

	Source      ir.BlockPos
	SourceBlock string
	Target      ir.BlockSnapshot

	ticket *event.NeighborTicket
}

func (*NeighborNotification) Type() TransactionType { return TypeNeighborNotification }
func (n *NeighborNotification) World() ir.WorldKey { return n.Target.World }
func (*NeighborNotification) Variant() string { return "neighbor_notification" }

func (n *NeighborNotification) String() string {
	return fmt.Sprintf("NeighborNotification %s %s %s -> %s %s",
		n.Target.World, n.Source, n.SourceBlock, n.Target.Pos, n.Target.State)
}

func (n *NeighborNotification) mutateFrame(f *cause.Frame, _ event.Event) {
	f.AddContext(cause.KeyNotifier, n.SourceBlock)
}

func (n *NeighborNotification) generateEvent(c cause.Cause, group []Transaction) (event.Event, bool) {
	members, ok := membersOf[*NeighborNotification](group)
	if !ok {
		return nil, false
	}
	ev := &event.NotifyNeighborBlockEvent{Base: event.NewBase(c), World: n.World()}
	for _, m := range members {
		m.ticket = &event.NeighborTicket{
			Source:      m.Source,
			SourceBlock: m.SourceBlock,
			Target:      m.Target.Pos,
			TargetState: m.Target.State,
		}
		ev.Tickets = append(ev.Tickets, m.ticket)
	}
	return ev, true
}

func (*NeighborNotification) rejected(_ event.Event, group []Transaction) []int {
	var out []int
	for i, tx := range group {
		if m, ok := tx.(*NeighborNotification); ok && m.ticket != nil && !m.ticket.IsValid() {
			out = append(out, i)
		}
	}
	return out
}

func (*NeighborNotification) restore(world.Accessor) error {
	return nil
}

func (n *NeighborNotification) record() map[string]any {
	return map[string]any{
		"source":       n.Source,
		"source_block": n.SourceBlock,
		"target":       n.Target,
	}
}
