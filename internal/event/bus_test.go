package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

func TestBusOrdering(t *testing.T) {
	b := NewBus()
	var calls []string

	b.Subscribe(NameChangeBlock, OrderLate, func(Event) { calls = append(calls, "late") })
	b.Subscribe(NameChangeBlock, OrderDefault, func(Event) { calls = append(calls, "default-1") })
	b.Subscribe("", OrderEarly, func(Event) { calls = append(calls, "early-any") })
	b.Subscribe(NameChangeBlock, OrderDefault, func(Event) { calls = append(calls, "default-2") })
	b.Subscribe(NameSpawnEntity, OrderFirst, func(Event) { calls = append(calls, "spawn") })

	b.Post(&ChangeBlockEvent{})

	assert.Equal(t, []string{"early-any", "default-1", "default-2", "late"}, calls)
	assert.Equal(t, 1, b.Posted())
}

func TestBusPostReportsCancellation(t *testing.T) {
	b := NewBus()
	On(b, NameChangeBlock, OrderDefault, func(ev *ChangeBlockEvent) {
		ev.SetCancelled(true)
	})

	assert.True(t, b.Post(&ChangeBlockEvent{}))
	assert.False(t, b.Post(&NotifyNeighborBlockEvent{}))
	assert.False(t, b.Post(&PostEvent{}), "non-cancellable events never report cancelled")
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	n := 0
	unsub := b.Subscribe("", OrderDefault, func(Event) { n++ })
	b.Post(&PostEvent{})
	unsub()
	b.Post(&PostEvent{})

	assert.Equal(t, 1, n)
	assert.Equal(t, 0, b.Len())
}

func TestBusListenerMaySubscribeDuringPost(t *testing.T) {
	b := NewBus()
	n := 0
	b.Subscribe("", OrderDefault, func(Event) {
		b.Subscribe("", OrderDefault, func(Event) { n++ })
	})

	b.Post(&PostEvent{})
	assert.Equal(t, 0, n, "listeners added during a post see the next post")
	b.Post(&PostEvent{})
	assert.Equal(t, 1, n)
}

func TestOnSkipsOtherTypes(t *testing.T) {
	b := NewBus()
	n := 0
	On(b, "", OrderDefault, func(*SpawnEntityEvent) { n++ })

	b.Post(&ChangeBlockEvent{})
	b.Post(NewSpawnEntityEvent(cause.Cause{}, "minecraft:overworld", nil))
	assert.Equal(t, 1, n)
}

func TestBlockTransactionAdjustments(t *testing.T) {
	tx := NewBlockTransaction(
		ir.BlockSnapshot{State: ir.Air},
		ir.BlockSnapshot{State: "minecraft:stone"},
		OpPlace,
	)
	require.True(t, tx.IsValid())
	_, ok := tx.Custom()
	assert.False(t, ok)

	tx.SetCustom("minecraft:cobblestone")
	custom, ok := tx.Custom()
	require.True(t, ok)
	assert.Equal(t, ir.BlockState("minecraft:cobblestone"), custom)

	tx.Invalidate()
	assert.False(t, tx.IsValid())
}

func TestOperationFor(t *testing.T) {
	assert.Equal(t, OpPlace, OperationFor(ir.Air, "minecraft:stone"))
	assert.Equal(t, OpBreak, OperationFor("minecraft:stone", ir.Air))
	assert.Equal(t, OpModify, OperationFor("minecraft:stone", "minecraft:granite"))
	assert.Equal(t, OpModify, OperationFor(ir.Air, ""))
}

func TestSpawnEntityEventFilter(t *testing.T) {
	ev := NewSpawnEntityEvent(cause.Cause{}, "minecraft:overworld", []ir.Entity{
		{ID: "a", Type: "minecraft:item"},
		{ID: "b", Type: "minecraft:zombie"},
		{ID: "c", Type: "minecraft:item"},
	})

	removed := ev.Filter(func(e ir.Entity) bool { return e.Type != "minecraft:item" })
	assert.Equal(t, 2, removed)
	require.Len(t, ev.Entities(), 1)
	assert.True(t, ev.Contains("b"))
	assert.False(t, ev.Contains("a"))
}

func TestEventCause(t *testing.T) {
	s := cause.NewStack()
	f := s.PushFrame()
	f.PushCause("alex")
	ev := &ChangeBlockEvent{Base: NewBase(s.Current())}
	f.Close()

	assert.Equal(t, "alex", ev.Cause().Root())
}

func TestBusDispatchRecoversListenerPanics(t *testing.T) {
	b := NewBus()
	var after bool
	b.Subscribe(NameChangeBlock, OrderEarly, func(Event) { panic("boom") })
	On(b, NameChangeBlock, OrderLate, func(ev *ChangeBlockEvent) {
		after = true
		ev.SetCancelled(true)
	})

	cancelled, err := b.Dispatch(&ChangeBlockEvent{})
	require.Error(t, err)
	assert.True(t, cancelled)
	assert.True(t, after, "later listeners still run")

	var lerr *ListenerError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, NameChangeBlock, lerr.Listener)
	assert.Equal(t, "boom", lerr.Value)
	assert.Contains(t, err.Error(), "listener change_block panicked on change_block: boom")

	assert.True(t, b.Post(&ChangeBlockEvent{}), "Post swallows the panic")
	assert.Equal(t, 2, b.Posted())
}

func TestBusDispatchWithoutPanics(t *testing.T) {
	b := NewBus()
	b.Subscribe("", OrderDefault, func(Event) {})
	cancelled, err := b.Dispatch(&NotifyNeighborBlockEvent{})
	assert.NoError(t, err)
	assert.False(t, cancelled)
}
