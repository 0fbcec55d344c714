package capture

import (
	"fmt"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// AddBlockEvent records a queued block event. Whatever performing the event
// changes is logged in its EffectPerformBlockEvent chain; restoring puts
// the position back to Original.
type AddBlockEvent struct {
	batchable
	noAbsorb
	noPostProcess

	Original ir.BlockSnapshot
	Action   string
	Param    int

	target *event.BlockEventTarget
}

func (*AddBlockEvent) Type() TransactionType { return TypeBlockEvent }
func (a *AddBlockEvent) World() ir.WorldKey { return a.Original.World }
func (*AddBlockEvent) Variant() string { return "add_block_event" }

func (a *AddBlockEvent) String() string {
	return fmt.Sprintf("AddBlockEvent %s %s %s %s(%d)", a.Original.World, a.Original.Pos, a.Original.State, a.Action, a.Param)
}

func (a *AddBlockEvent) mutateFrame(f *cause.Frame, _ event.Event) {
	f.AddContext(cause.KeyBlockEventTarget, a.Original.State.BlockType())
}

func (a *AddBlockEvent) generateEvent(c cause.Cause, group []Transaction) (event.Event, bool) {
	members, ok := membersOf[*AddBlockEvent](group)
	if !ok {
		return nil, false
	}
	ev := &event.ScheduleBlockEventEvent{Base: event.NewBase(c), World: a.World()}
	for _, m := range members {
		m.target = &event.BlockEventTarget{Snapshot: m.Original.Clone(), Action: m.Action, Param: m.Param}
		ev.Targets = append(ev.Targets, m.target)
	}
	return ev, true
}

func (*AddBlockEvent) rejected(_ event.Event, group []Transaction) []int {
	var out []int
	for i, tx := range group {
		if m, ok := tx.(*AddBlockEvent); ok && m.target != nil && !m.target.IsValid() {
			out = append(out, i)
		}
	}
	return out
}

func (a *AddBlockEvent) restore(w world.Accessor) error {
	return w.Restore(a.Original)
}

func (a *AddBlockEvent) record() map[string]any {
	return map[string]any{"original": a.Original, "action": a.Action, "param": a.Param}
}
