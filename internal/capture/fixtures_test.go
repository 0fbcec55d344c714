package capture

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/testutil"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

const (
	overworld ir.WorldKey = "minecraft:overworld"
	nether    ir.WorldKey = "minecraft:the_nether"

	stone ir.BlockState = "minecraft:stone"
	dirt  ir.BlockState = "minecraft:dirt"
	chest ir.BlockState = "minecraft:chest[facing=north]"
)

type fixture struct {
	t      *testing.T
	mem    *world.Memory
	rec    *testutil.RecordingWorld
	bus    *event.Bus
	causes *cause.Stack
	log    *Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := world.NewMemory(overworld, nether)
	return &fixture{
		t:      t,
		mem:    mem,
		rec:    testutil.NewRecordingWorld(mem),
		bus:    event.NewBus(),
		causes: cause.NewStack(),
		log:    NewLog(),
	}
}

func (f *fixture) env() Env {
	return Env{
		World:  f.rec,
		Bus:    f.bus,
		Causes: f.causes,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (f *fixture) process() *Result {
	f.t.Helper()
	res, err := f.log.Process(f.env())
	require.NoError(f.t, err)
	return res
}

func (f *fixture) snapshot(w ir.WorldKey, pos ir.BlockPos) ir.BlockSnapshot {
	f.t.Helper()
	s, err := f.mem.Snapshot(w, pos)
	require.NoError(f.t, err)
	return s
}

// setBlock performs and logs a block change the way a producer does:
// snapshot, log, then write.
func (f *fixture) setBlock(w ir.WorldKey, pos ir.BlockPos, state ir.BlockState) *ChangeBlock {
	f.t.Helper()
	original := f.snapshot(w, pos)
	tx := f.log.LogBlockChange(original, state, DefaultFlags)
	require.NoError(f.t, f.mem.SetBlock(w, pos, state))
	return tx
}

func (f *fixture) spawn(id string, w ir.WorldKey, pos ir.BlockPos) ir.Entity {
	f.t.Helper()
	e := ir.Entity{ID: id, Type: "minecraft:item", World: w, Pos: pos}
	f.log.LogEntitySpawn(e, "drops")
	require.NoError(f.t, f.mem.SpawnEntity(e))
	return e
}

func chestTile(pos ir.BlockPos, items int64) ir.TileEntity {
	return ir.TileEntity{Type: "minecraft:chest", Pos: pos, Data: ir.Compound{"items": ir.Int(items)}}
}

func cancelAll(b *event.Bus, name string) {
	b.Subscribe(name, event.OrderDefault, func(ev event.Event) {
		if c, ok := ev.(event.Cancellable); ok {
			c.SetCancelled(true)
		}
	})
}

func groupTypes(groups []EventGroup) []TransactionType {
	out := make([]TransactionType, len(groups))
	for i, g := range groups {
		out[i] = g.Type
	}
	return out
}

func outcomes(r *Result) []Outcome {
	out := make([]Outcome, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = g.Outcome
	}
	return out
}

func requireInvariantPanic(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic from %s", op)
		ie, ok := AsInvariant(r)
		require.True(t, ok, "panic value %T is not an *InvariantError", r)
		require.Equal(t, op, ie.Op)
	}()
	fn()
}
