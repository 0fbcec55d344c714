package capture

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/testutil"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

func TestProcessEmptyLog(t *testing.T) {
	f := newFixture(t)
	res := f.process()
	assert.Empty(t, res.Groups)
	assert.True(t, res.Committed())
	assert.Equal(t, 0, f.bus.Posted())
}

func TestProcessNoCancellation(t *testing.T) {
	f := newFixture(t)
	for x := 0; x < 3; x++ {
		f.setBlock(overworld, ir.Pos(x, 64, 0), stone)
	}

	var seen *event.ChangeBlockEvent
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) { seen = ev })

	res := f.process()
	require.NotNil(t, seen)
	assert.Len(t, seen.Transactions, 3)
	assert.Equal(t, event.OpPlace, seen.Transactions[0].Operation)
	assert.Equal(t, overworld, seen.World)

	assert.True(t, res.Committed())
	assert.Equal(t, []Outcome{OutcomeCommitted}, outcomes(res))
	assert.Empty(t, res.Restored)
	assert.Empty(t, f.rec.Calls, "no restore, no post-process writes")
	for x := 0; x < 3; x++ {
		assert.Equal(t, stone, f.mem.Block(overworld, ir.Pos(x, 64, 0)))
	}

	require.Len(t, res.PostEvents, 1)
	assert.Equal(t, string(TypeBlock), res.PostEvents[0].Type)
	assert.Equal(t, []event.Event{seen}, res.PostEvents[0].Events)
	assert.Equal(t, 0, f.causes.Depth())
}

func TestProcessPlaceThenReject(t *testing.T) {
	f := newFixture(t)
	pos := ir.Pos(0, 64, 0)
	f.setBlock(overworld, pos, chest)
	f.log.WithEffect(EffectTileEntitySetup, func() {
		tile := chestTile(pos, 0)
		f.log.LogTileAddition(overworld, chest, tile, nil)
		require.NoError(t, f.mem.SetTileEntity(overworld, tile))
	})
	cancelAll(f.bus, event.NameChangeBlock)

	res := f.process()
	assert.Equal(t, []Outcome{OutcomeCancelled, OutcomeParentCancelled}, outcomes(res))
	assert.Nil(t, res.Groups[1].Event, "nested group is not dispatched")
	assert.Equal(t, 1, f.bus.Posted()-len(res.PostEvents))

	assert.Equal(t, []NodeID{1, 0}, res.Restored, "tile entity restored before the block")
	assert.Equal(t, []string{
		"remove_tile minecraft:overworld (0, 64, 0)",
		"restore minecraft:overworld (0, 64, 0) minecraft:air -",
	}, f.rec.Calls)

	assert.Equal(t, ir.Air, f.mem.Block(overworld, pos))
	_, hasTile := f.mem.TileEntity(overworld, pos)
	assert.False(t, hasTile)
	assert.False(t, res.Committed())
}

func TestProcessPartialInvalidation(t *testing.T) {
	f := newFixture(t)
	for x := 0; x < 3; x++ {
		f.setBlock(overworld, ir.Pos(x, 64, 0), stone)
	}
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		ev.Transactions[1].Invalidate()
	})

	res := f.process()
	assert.Equal(t, []Outcome{OutcomePartial}, outcomes(res))
	assert.Equal(t, []NodeID{1}, res.Restored)
	assert.Equal(t, stone, f.mem.Block(overworld, ir.Pos(0, 64, 0)))
	assert.Equal(t, ir.Air, f.mem.Block(overworld, ir.Pos(1, 64, 0)))
	assert.Equal(t, stone, f.mem.Block(overworld, ir.Pos(2, 64, 0)))

	assert.False(t, res.Nodes[0].Cancelled)
	assert.True(t, res.Nodes[1].Cancelled)
	assert.True(t, res.Nodes[1].Restored)

	require.Len(t, res.PostEvents, 1, "a partially rejected event still counts")
}

func TestProcessEveryTransactionInvalidated(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.setBlock(overworld, ir.Pos(1, 64, 0), stone)
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		for _, tx := range ev.Transactions {
			tx.Invalidate()
		}
	})

	res := f.process()
	assert.Equal(t, []Outcome{OutcomeCancelled}, outcomes(res))
	assert.Equal(t, []NodeID{1, 0}, res.Restored)
}

func TestProcessCustomFinalState(t *testing.T) {
	f := newFixture(t)
	pos := ir.Pos(0, 64, 0)
	f.setBlock(overworld, pos, stone)
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		ev.Transactions[0].SetCustom(dirt)
	})

	res := f.process()
	assert.Equal(t, []Outcome{OutcomeCommitted}, outcomes(res))
	assert.Equal(t, dirt, f.mem.Block(overworld, pos))
	assert.Equal(t, []string{"set_block minecraft:overworld (0, 64, 0) minecraft:dirt"}, f.rec.Calls)
}

func TestProcessCustomStateEqualToNewIsNoop(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		ev.Transactions[0].SetCustom(stone)
	})

	f.process()
	assert.Empty(t, f.rec.Calls)
}

func TestProcessBlockDropsParentCancelled(t *testing.T) {
	f := newFixture(t)
	pos := ir.Pos(2, 64, 2)
	require.NoError(t, f.mem.SetBlock(overworld, pos, stone))

	drops := f.log.LogBlockDrops(f.snapshot(overworld, pos))
	f.spawn("cobblestone", overworld, pos)
	f.log.CompleteBlockDrops(drops)
	f.setBlock(overworld, pos, ir.Air)

	var spawnPosted bool
	event.On(f.bus, event.NameSpawnEntity, event.OrderDefault, func(*event.SpawnEntityEvent) { spawnPosted = true })
	cancelAll(f.bus, event.NameChangeBlock)

	res := f.process()
	assert.Equal(t, []TransactionType{TypeBlock, TypeSpawnEntity, TypeBlock}, groupTypes(groupsOf(res)))
	assert.Equal(t, []Outcome{OutcomeCancelled, OutcomeParentCancelled, OutcomeCancelled}, outcomes(res))
	assert.False(t, spawnPosted)

	assert.Equal(t, []NodeID{2, 1, 0}, res.Restored)
	assert.Equal(t, stone, f.mem.Block(overworld, pos))
	_, exists := f.mem.Entity("cobblestone")
	assert.False(t, exists)
}

func groupsOf(r *Result) []EventGroup {
	out := make([]EventGroup, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g.EventGroup
	}
	return out
}

func TestProcessSpawnFilter(t *testing.T) {
	f := newFixture(t)
	f.spawn("keep", overworld, ir.Pos(0, 64, 0))
	f.spawn("drop", overworld, ir.Pos(0, 64, 0))
	event.On(f.bus, event.NameSpawnEntity, event.OrderDefault, func(ev *event.SpawnEntityEvent) {
		removed := ev.Filter(func(e ir.Entity) bool { return e.ID != "drop" })
		assert.Equal(t, 1, removed)
	})

	res := f.process()
	assert.Equal(t, []Outcome{OutcomePartial}, outcomes(res))
	assert.Equal(t, []string{"remove_entity drop"}, f.rec.Calls)
	_, kept := f.mem.Entity("keep")
	assert.True(t, kept)
}

func TestProcessNeighborTicketInvalidated(t *testing.T) {
	f := newFixture(t)
	src := ir.Pos(0, 64, 0)
	f.setBlock(overworld, src, "minecraft:redstone_wire")
	f.log.WithEffect(EffectNotifyNeighbors, func() {
		for _, n := range src.Neighbors() {
			f.log.LogNeighborNotification(src, "minecraft:redstone_wire", f.snapshot(overworld, n))
		}
	})

	var notifier any
	event.On(f.bus, event.NameNotifyNeighbor, event.OrderDefault, func(ev *event.NotifyNeighborBlockEvent) {
		require.Len(t, ev.Tickets, 6)
		ev.Tickets[0].Invalidate()
		notifier, _ = ev.Cause().Value(cause.KeyNotifier)
	})

	res := f.process()
	assert.Equal(t, []Outcome{OutcomeCommitted, OutcomePartial}, outcomes(res))
	assert.Equal(t, "minecraft:redstone_wire", notifier)
	assert.Equal(t, []NodeID{1}, res.Restored)
	assert.Empty(t, f.rec.Calls, "notifications have nothing to undo in the world")
}

func TestProcessBlockEventInvalidated(t *testing.T) {
	f := newFixture(t)
	pos := ir.Pos(0, 64, 0)
	require.NoError(t, f.mem.SetBlock(overworld, pos, "minecraft:note_block"))
	f.log.LogBlockEvent(f.snapshot(overworld, pos), "play", 3)

	var target any
	event.On(f.bus, event.NameBlockEvent, event.OrderDefault, func(ev *event.ScheduleBlockEventEvent) {
		require.Len(t, ev.Targets, 1)
		assert.Equal(t, "play", ev.Targets[0].Action)
		assert.Equal(t, 3, ev.Targets[0].Param)
		ev.Targets[0].Invalidate()
		target, _ = ev.Cause().Value(cause.KeyBlockEventTarget)
	})

	res := f.process()
	assert.Equal(t, []Outcome{OutcomeCancelled}, outcomes(res))
	assert.Equal(t, "minecraft:note_block", target)
	assert.Equal(t, []string{"restore minecraft:overworld (0, 64, 0) minecraft:note_block -"}, f.rec.Calls)
}

func TestProcessEntityDrops(t *testing.T) {
	f := newFixture(t)
	cow := ir.Entity{ID: "cow-1", Type: "minecraft:cow", World: overworld, Pos: ir.Pos(0, 64, 0)}
	require.NoError(t, f.mem.SpawnEntity(cow))

	_, err := f.mem.RemoveEntity(cow.ID)
	require.NoError(t, err)
	s := f.log.EnsureEntityDropsEffect(cow, "minecraft:player_attack")
	require.NotNil(t, s)
	f.spawn("beef", overworld, cow.Pos)
	f.spawn("leather", overworld, cow.Pos)
	s.Close()

	var harvest *event.HarvestEntityEvent
	var spawnCause cause.Cause
	event.On(f.bus, event.NameHarvestEntity, event.OrderDefault, func(ev *event.HarvestEntityEvent) { harvest = ev })
	event.On(f.bus, event.NameSpawnEntity, event.OrderDefault, func(ev *event.SpawnEntityEvent) {
		spawnCause = ev.Cause()
		ev.SetCancelled(true)
	})

	res := f.process()
	require.NotNil(t, harvest)
	assert.Equal(t, cow.ID, harvest.Entity.ID)
	assert.Equal(t, cow, harvest.Cause().Root())
	dmg, ok := harvest.Cause().Value(cause.KeyLastDamageSource)
	require.True(t, ok)
	assert.Equal(t, "minecraft:player_attack", dmg)

	assert.Same(t, harvest, spawnCause.Root(), "nested events are caused by the enclosing event")
	st, _ := spawnCause.Value(cause.KeySpawnType)
	assert.Equal(t, "drops", st)
	_, leaked := spawnCause.Value(cause.KeyLastDamageSource)
	assert.False(t, leaked, "the decider's frame is closed before the next group")

	assert.Equal(t, []Outcome{OutcomeCommitted, OutcomeCancelled}, outcomes(res))
	assert.Equal(t, []NodeID{2, 1}, res.Restored)
	assert.Empty(t, f.mem.Entities(overworld), "drops removed, the cow stays dead")
}

func TestProcessPostEventsPerTypeInFirstSeenOrder(t *testing.T) {
	f := newFixture(t)
	f.spawn("a", overworld, ir.Pos(0, 64, 0))
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.spawn("b", overworld, ir.Pos(0, 64, 0))
	s := f.log.EnsureEntityDropsEffect(ir.Entity{ID: "pig", World: overworld}, "")
	s.Close()
	cancelAll(f.bus, event.NameChangeBlock)

	var atPost ir.BlockState
	var posted []string
	event.On(f.bus, event.NamePost, event.OrderDefault, func(ev *event.PostEvent) {
		posted = append(posted, ev.Type)
		atPost = f.mem.Block(overworld, ir.Pos(0, 64, 0))
	})

	res := f.process()
	assert.Equal(t, []string{"spawn_entity", "block", "entity_death_drops"}, posted)
	assert.Len(t, res.PostEvents[0].Events, 2)
	assert.Len(t, res.PostEvents[1].Events, 1, "cancelled events are still aggregated")
	assert.Equal(t, ir.Air, atPost, "post events run after rollback")
}

func TestProcessDeclinedGroup(t *testing.T) {
	f := newFixture(t)
	var undone []string
	f.log.Log(&declining{world: overworld, name: "a", undone: &undone})
	f.log.Log(&declining{world: overworld, name: "b", undone: &undone})
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)

	res := f.process()
	assert.Equal(t, []Outcome{OutcomeDeclined, OutcomeCommitted}, outcomes(res))
	assert.Nil(t, res.Groups[0].Event)
	assert.Equal(t, []string{"b", "a"}, undone)
	assert.Equal(t, []NodeID{1, 0}, res.Restored)
	assert.Equal(t, 1, f.bus.Posted()-len(res.PostEvents))
	require.Len(t, res.PostEvents, 1)
	assert.Equal(t, "block", res.PostEvents[0].Type)
}

// declining is a variant whose decider never produces an event.
type declining struct {
	batchable
	noAbsorb
	noFrame
	noPostProcess

	world  ir.WorldKey
	name   string
	undone *[]string
}

func (*declining) Type() TransactionType { return "declining" }
func (d *declining) World() ir.WorldKey { return d.world }
func (*declining) Variant() string { return "declining" }
func (d *declining) String() string { return "declining " + d.name }

func (*declining) generateEvent(cause.Cause, []Transaction) (event.Event, bool) {
	return nil, false
}

func (*declining) rejected(event.Event, []Transaction) []int { return nil }

func (d *declining) restore(world.Accessor) error {
	*d.undone = append(*d.undone, d.name)
	return nil
}

func (d *declining) record() map[string]any { return map[string]any{"name": d.name} }

func TestProcessRestoreFailureIsInconsistency(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.setBlock(overworld, ir.Pos(1, 64, 0), stone)
	cancelAll(f.bus, event.NameChangeBlock)
	f.rec.FailOn["restore"] = true

	res, err := f.log.Process(f.env())
	require.Error(t, err)
	assert.True(t, IsInconsistency(err))
	assert.ErrorIs(t, err, testutil.ErrInjected)

	var ie *InconsistencyError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, NodeID(1), ie.Node, "rollback starts at the last node")
	assert.Equal(t, PhaseRestore, ie.Phase)
	assert.Equal(t, "change_block", ie.Transaction)

	require.NotNil(t, res)
	assert.Empty(t, res.Restored)
	assert.Empty(t, res.PostEvents)
	assert.Len(t, res.Nodes, 2)
}

func TestProcessPostProcessFailure(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.setBlock(nether, ir.Pos(0, 64, 0), "minecraft:netherrack")
	f.setBlock(overworld, ir.Pos(1, 64, 0), stone)
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		switch {
		case ev.World == nether:
			ev.Transactions[0].SetCustom(dirt)
		case ev.Transactions[0].Original.Pos == ir.Pos(0, 64, 0):
			ev.SetCancelled(true)
		}
	})
	f.rec.FailOn["set_block"] = true

	res, err := f.log.Process(f.env())
	var ie *InconsistencyError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, PhasePostProcess, ie.Phase)
	assert.Contains(t, ie.Error(), "inconsistent node 1 (change_block) during post_process")

	assert.Equal(t, []Outcome{OutcomeCancelled, OutcomeFailed, OutcomeAborted}, outcomes(res))
	assert.Equal(t, []NodeID{2, 1, 0}, res.Restored, "earlier cancelled groups are still rolled back")
	assert.Empty(t, res.PostEvents)
	for _, pos := range []ir.BlockPos{ir.Pos(0, 64, 0), ir.Pos(1, 64, 0)} {
		assert.Equal(t, ir.Air, f.mem.Block(overworld, pos))
	}
	assert.Equal(t, ir.Air, f.mem.Block(nether, ir.Pos(0, 64, 0)))
	assert.Len(t, res.Nodes, 3)
	assert.True(t, res.Nodes[2].Restored)
}

func TestProcessRollbackFailureAfterPostProcessFailure(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		ev.Transactions[0].SetCustom(dirt)
	})
	f.rec.FailOn["set_block"] = true
	f.rec.FailOn["restore"] = true

	_, err := f.log.Process(f.env())
	var ie *InconsistencyError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, PhaseRestore, ie.Phase, "the restore failure is reported first")
	assert.Contains(t, err.Error(), "during post_process")
}

func TestProcessListenerPanicCancelsGroup(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.setBlock(nether, ir.Pos(0, 64, 0), "minecraft:netherrack")
	f.setBlock(overworld, ir.Pos(1, 64, 0), stone)

	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) {
		switch {
		case ev.World == nether:
			panic("listener bug")
		case ev.Transactions[0].Original.Pos == ir.Pos(0, 64, 0):
			ev.SetCancelled(true)
		}
	})
	var later int
	f.bus.Subscribe(event.NameChangeBlock, event.OrderLate, func(event.Event) { later++ })

	res, err := f.log.Process(f.env())
	require.NoError(t, err)
	assert.Equal(t, 3, later, "a panicking listener does not stop later listeners")
	assert.Equal(t, 0, f.causes.Depth())

	assert.Equal(t, []Outcome{OutcomeCancelled, OutcomeCancelled, OutcomeCommitted}, outcomes(res))
	assert.NoError(t, res.Groups[0].ListenerErr)
	var lerr *event.ListenerError
	require.ErrorAs(t, res.Groups[1].ListenerErr, &lerr)
	assert.Equal(t, "listener bug", lerr.Value)

	assert.Equal(t, []NodeID{1, 0}, res.Restored)
	assert.Equal(t, ir.Air, f.mem.Block(overworld, ir.Pos(0, 64, 0)), "the cancelled placement is rolled back")
	assert.Equal(t, ir.Air, f.mem.Block(nether, ir.Pos(0, 64, 0)))
	assert.Equal(t, stone, f.mem.Block(overworld, ir.Pos(1, 64, 0)))
	require.Len(t, res.PostEvents, 1)
}

func TestProcessPostEventListenerPanic(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.bus.Subscribe(event.NamePost, event.OrderDefault, func(event.Event) { panic("post listener bug") })

	res := f.process()
	assert.True(t, res.Committed())
	assert.Len(t, res.PostEvents, 1)
	assert.Equal(t, stone, f.mem.Block(overworld, ir.Pos(0, 64, 0)))
}

func TestProcessWorldContext(t *testing.T) {
	f := newFixture(t)
	f.setBlock(nether, ir.Pos(0, 64, 0), "minecraft:netherrack")

	outer := f.causes.PushFrame()
	outer.PushCause("player:alex")
	defer outer.Close()

	var c cause.Cause
	event.On(f.bus, event.NameChangeBlock, event.OrderDefault, func(ev *event.ChangeBlockEvent) { c = ev.Cause() })

	f.process()
	assert.Equal(t, "player:alex", c.Root())
	w, _ := c.Value(cause.KeyWorld)
	assert.Equal(t, string(nether), w)
	assert.Equal(t, 1, f.causes.Depth())
}

func TestAbort(t *testing.T) {
	f := newFixture(t)
	f.setBlock(overworld, ir.Pos(0, 64, 0), stone)
	f.spawn("item", overworld, ir.Pos(0, 65, 0))
	open := f.log.PushEffect(EffectNotifyNeighbors)
	f.log.LogNeighborNotification(ir.Pos(0, 65, 0), "minecraft:item", f.snapshot(overworld, ir.Pos(0, 64, 0)))

	res, err := f.log.Abort(f.env())
	require.NoError(t, err)
	assert.Equal(t, []Outcome{OutcomeAborted, OutcomeAborted, OutcomeAborted}, outcomes(res))
	assert.Equal(t, []NodeID{2, 1, 0}, res.Restored)
	assert.Equal(t, 0, f.bus.Posted())
	assert.Empty(t, res.PostEvents)
	assert.Equal(t, ir.Air, f.mem.Block(overworld, ir.Pos(0, 64, 0)))
	assert.Empty(t, f.mem.Entities(overworld))

	open.Close()
	assert.Equal(t, 0, f.log.Depth())
	requireInvariantPanic(t, "Abort", func() { _, _ = f.log.Abort(f.env()) })
}

func TestNodeRecords(t *testing.T) {
	f := newFixture(t)
	pos := ir.Pos(0, 64, 0)
	f.setBlock(overworld, pos, chest)
	f.log.WithEffect(EffectTileEntitySetup, func() {
		f.log.LogTileAddition(overworld, chest, chestTile(pos, 1), nil)
	})

	res := f.process()
	require.Len(t, res.Nodes, 2)

	root := res.Nodes[0]
	assert.Equal(t, TopLevel, root.Chain)
	assert.Equal(t, NoNode, root.Parent)
	assert.Equal(t, EffectKind(""), root.Effect)
	assert.Equal(t, 0, root.Group)
	assert.Equal(t, "change_block", root.Variant)
	assert.Equal(t, []string{"notify_neighbors", "physics"}, root.Detail["flags"])

	child := res.Nodes[1]
	assert.Equal(t, NodeID(0), child.Parent)
	assert.Equal(t, EffectTileEntitySetup, child.Effect)
	assert.Equal(t, 1, child.Group)
	assert.Equal(t, "add_tile_entity", child.Variant)
	assert.Equal(t, "AddTileEntity minecraft:overworld (0, 64, 0) minecraft:chest{items}", child.Description)

	for _, n := range res.Nodes {
		_, err := ir.MarshalCanonical(n.Detail)
		assert.NoError(t, err, "node %d detail must be canonical", n.ID)
	}
}

func TestProcessRandomCancellationProperties(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			f := newFixture(t)
			r := rand.New(rand.NewPCG(seed, 7))
			randomLog(f, r, 40)

			f.bus.Subscribe("", event.OrderDefault, func(ev event.Event) {
				switch e := ev.(type) {
				case *event.ChangeBlockEvent:
					for _, tx := range e.Transactions {
						if r.IntN(4) == 0 {
							tx.Invalidate()
						}
					}
				case event.Cancellable:
					if r.IntN(3) == 0 {
						e.SetCancelled(true)
					}
				}
			})

			res := f.process()
			for _, n := range res.Nodes {
				if n.Parent != NoNode && res.Nodes[n.Parent].Cancelled {
					assert.True(t, n.Cancelled, "node %d under cancelled node %d", n.ID, n.Parent)
				}
				assert.Equal(t, n.Cancelled, n.Restored, "node %d", n.ID)
			}
			for _, g := range res.Groups {
				if g.Outcome == OutcomeCancelled || g.Outcome == OutcomeParentCancelled || g.Outcome == OutcomeDeclined {
					for _, id := range g.Nodes {
						assert.True(t, res.Nodes[id].Cancelled)
					}
				}
			}

			var reversed []NodeID
			for i := len(res.Groups) - 1; i >= 0; i-- {
				nodes := slices.Clone(res.Groups[i].Nodes)
				slices.Reverse(nodes)
				reversed = append(reversed, nodes...)
			}
			last := -1
			for _, id := range res.Restored {
				at := slices.Index(reversed, id)
				require.Greater(t, at, last, "restore order follows reverse batch order")
				last = at
			}
			assert.Equal(t, res.CancelledAny, len(res.Restored) > 0)
		})
	}
}

func TestAbortRestoresEverythingInReverse(t *testing.T) {
	f := newFixture(t)
	randomLog(f, rand.New(rand.NewPCG(99, 1)), 30)
	groups := f.log.Batch()

	res, err := f.log.Abort(f.env())
	require.NoError(t, err)

	var want []NodeID
	for i := len(groups) - 1; i >= 0; i-- {
		for j := len(groups[i].Nodes) - 1; j >= 0; j-- {
			want = append(want, groups[i].Nodes[j])
		}
	}
	assert.Equal(t, want, res.Restored)
}
