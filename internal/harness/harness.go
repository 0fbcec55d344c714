package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/SpongePowered/Common-sub001/internal/capture"
	"github.com/SpongePowered/Common-sub001/internal/engine"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/pipeline"
	"github.com/SpongePowered/Common-sub001/internal/policy"
	"github.com/SpongePowered/Common-sub001/internal/store"
	"github.com/SpongePowered/Common-sub001/internal/testutil"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// DefaultWorld is the world scenarios get when they list none.
const DefaultWorld = "minecraft:overworld"

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock, window IDs and entity IDs.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	world    *world.Memory
	policy   *policy.Policy
	worlds   []ir.WorldKey
	events   map[string]int
	logger   *slog.Logger
	scenario *Scenario
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh world and a fresh in-memory journal.
//
// Execution flow:
// 1. Create the world and the in-memory journal
// 2. Compile the scenario's policies
// 3. Apply setup steps directly to the world
// 4. Run each flow step in its own capture window, checking expect clauses
// 5. Check every window was journaled with the digest it reported
// 6. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	return RunWithOptions(ctx, scenario, Options{})
}

// Options configures RunWithOptions.
type Options struct {
	// Store journals the scenario's windows. The caller owns it. When set,
	// window IDs are UUIDv7 and seq continues from the last journaled
	// window, so one store can hold many runs. Nil uses a private
	// in-memory journal with deterministic IDs.
	Store *store.Store

	// Logger receives engine logs. Nil discards them.
	Logger *slog.Logger
}

// RunWithOptions is RunContext with an explicit journal and logger.
func RunWithOptions(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	h, err := newHarness(ctx, scenario, opts)
	if err != nil {
		return nil, err
	}
	if opts.Store == nil {
		defer h.store.Close()
	}

	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	if err := h.verifyJournal(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to verify journal: %w", err)
	}

	h.collect(result)

	actx := &AssertionContext{
		World:        h.world,
		DefaultWorld: h.worlds[0],
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario, opts Options) (*Harness, error) {
	names := scenario.Worlds
	if len(names) == 0 {
		names = []string{DefaultWorld}
	}
	worlds := make([]ir.WorldKey, len(names))
	for i, n := range names {
		k, err := ir.ParseWorldKey(n)
		if err != nil {
			return nil, fmt.Errorf("worlds[%d]: %w", i, err)
		}
		worlds[i] = k
	}

	pol, err := loadPolicy(scenario)
	if err != nil {
		return nil, err
	}

	st := opts.Store
	if st == nil {
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	}

	h := &Harness{
		store:    st,
		world:    world.NewMemory(worlds...),
		policy:   pol,
		worlds:   worlds,
		events:   make(map[string]int),
		logger:   logger,
		scenario: scenario,
	}

	bus := event.NewBus()
	bus.Subscribe("", event.OrderLast, func(ev event.Event) {
		h.events[ev.Name()]++
	})

	engineOpts := []engine.EngineOption{
		engine.WithStore(st),
		engine.WithBus(bus),
		engine.WithLogger(h.logger),
	}
	if opts.Store == nil {
		engineOpts = append(engineOpts,
			engine.WithClock(testutil.NewDeterministicClock()),
			engine.WithWindowIDs(testutil.NewSequentialWindowIDs("window")),
			engine.WithPipelineOptions(pipeline.WithEntityIDs(testutil.NewSequentialWindowIDs("entity"))),
		)
	}
	if scenario.MaxNodes > 0 {
		engineOpts = append(engineOpts, engine.WithMaxNodes(scenario.MaxNodes))
	}
	if pol != nil {
		engineOpts = append(engineOpts, engine.WithPolicy(pol))
	}
	h.engine = engine.New(h.world, engineOpts...)

	if opts.Store != nil {
		if err := h.engine.Resume(ctx); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// loadPolicy compiles the scenario's policy files and inline policy into
// one policy. Returns nil if the scenario has none.
func loadPolicy(scenario *Scenario) (*policy.Policy, error) {
	var rules []policy.Rule
	for _, path := range scenario.Policies {
		p, err := policy.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("policy %s: %w", path, err)
		}
		rules = append(rules, p.Rules...)
	}
	if scenario.Policy != "" {
		p, err := policy.Compile([]byte(scenario.Policy), scenario.Name+".cue")
		if err != nil {
			return nil, fmt.Errorf("inline policy: %w", err)
		}
		rules = append(rules, p.Rules...)
	}
	if len(rules) == 0 {
		return nil, nil
	}
	p, err := policy.New(rules...)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return p, nil
}

// executeSetup writes setup blocks and entities straight into the world.
func (h *Harness) executeSetup(setup []SetupStep) error {
	for i, step := range setup {
		if step.Entity != nil {
			e, err := h.entity(step.Entity)
			if err != nil {
				return fmt.Errorf("setup step %d: %w", i, err)
			}
			if err := h.world.SpawnEntity(e); err != nil {
				return fmt.Errorf("setup step %d: %w", i, err)
			}
			continue
		}

		w, pos, err := h.location(step.World, step.Pos)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		state, err := ir.ParseBlockState(step.State)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if err := h.world.SetBlock(w, pos, state); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if step.Tile != nil {
			data, err := ir.ToCompound(step.Tile.Data)
			if err != nil {
				return fmt.Errorf("setup step %d: tile data: %w", i, err)
			}
			if err := h.world.SetTileEntity(w, ir.TileEntity{Type: step.Tile.Type, Pos: pos, Data: data}); err != nil {
				return fmt.Errorf("setup step %d: %w", i, err)
			}
		}
	}
	return nil
}

// executeFlow runs each flow step in its own window and validates expect
// clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		op := engine.Operation{Name: step.Window, Run: h.operation(step.Ops)}
		if step.Cause != "" {
			op.Cause = step.Cause
		}

		rep, err := h.engine.Step(ctx, op)
		if rep == nil || (err != nil && rep.Err == nil) {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Window, err)
		}

		wt := windowTrace(rep)
		result.AddWindow(wt)

		if step.Expect != nil {
			for _, msg := range checkExpect(step, wt) {
				result.AddError(msg)
			}
		}

		h.logger.Info("flow step completed",
			"step", i,
			"window", step.Window,
			"window_id", rep.WindowID,
			"outcome", string(rep.Outcome),
		)
	}
	return nil
}

// operation turns op steps into an engine operation body.
func (h *Harness) operation(ops []OpStep) func(*pipeline.Pipeline) error {
	return func(p *pipeline.Pipeline) error {
		for j, op := range ops {
			if err := h.apply(p, op); err != nil {
				return fmt.Errorf("ops[%d] %s: %w", j, op.Op, err)
			}
		}
		return nil
	}
}

func (h *Harness) apply(p *pipeline.Pipeline, op OpStep) error {
	switch op.Op {
	case OpSpawn:
		e, err := h.entity(op.Entity)
		if err != nil {
			return err
		}
		spawnType := op.SpawnType
		if spawnType == "" {
			spawnType = pipeline.SpawnTypeCustom
		}
		return p.SpawnEntity(e, spawnType)
	case OpKill:
		return p.KillEntity(op.ID, op.DamageSource)
	}

	w, pos, err := h.location(op.World, op.Pos)
	if err != nil {
		return err
	}

	switch op.Op {
	case OpSetBlock:
		state, err := ir.ParseBlockState(op.State)
		if err != nil {
			return err
		}
		flags := capture.DefaultFlags
		if op.Notify != nil && !*op.Notify {
			flags.NotifyNeighbors = false
		}
		_, err = p.SetBlock(w, pos, state, flags)
		return err
	case OpBreakBlock:
		return p.BreakBlock(w, pos, op.Drops)
	case OpExplode:
		return p.Explode(w, pos, op.Radius)
	case OpSetTileData:
		data, err := ir.ToCompound(op.Data)
		if err != nil {
			return err
		}
		if data == nil {
			data = ir.Compound{}
		}
		return p.SetTileData(w, pos, data)
	case OpBlockEvent:
		return p.QueueBlockEvent(w, pos, op.Action, op.Param)
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

// location resolves an optional world name and a coordinate triple.
func (h *Harness) location(name string, coords []int) (ir.WorldKey, ir.BlockPos, error) {
	w := h.worlds[0]
	if name != "" {
		k, err := ir.ParseWorldKey(name)
		if err != nil {
			return "", ir.BlockPos{}, err
		}
		w = k
	}
	if len(coords) != 3 {
		return "", ir.BlockPos{}, fmt.Errorf("pos must have 3 coordinates, got %d", len(coords))
	}
	return w, ir.Pos(coords[0], coords[1], coords[2]), nil
}

func (h *Harness) entity(spec *EntitySpec) (ir.Entity, error) {
	w, pos, err := h.location(spec.World, spec.Pos)
	if err != nil {
		return ir.Entity{}, err
	}
	data, err := ir.ToCompound(spec.Data)
	if err != nil {
		return ir.Entity{}, fmt.Errorf("entity %s data: %w", spec.ID, err)
	}
	return ir.Entity{ID: spec.ID, Type: spec.Type, World: w, Pos: pos, Data: data}, nil
}

// verifyJournal reads every window back from the journal and checks it
// matches what the engine reported.
func (h *Harness) verifyJournal(ctx context.Context, result *Result) error {
	for _, wt := range result.Trace {
		w, err := h.store.ReadWindow(ctx, wt.WindowID)
		if err != nil {
			return fmt.Errorf("window %s: %w", wt.WindowID, err)
		}
		if w.Digest != wt.Digest {
			result.AddError(fmt.Sprintf("window %s: journaled digest %s, engine reported %s", wt.Window, w.Digest, wt.Digest))
		}
		if w.Outcome != wt.Outcome {
			result.AddError(fmt.Sprintf("window %s: journaled outcome %s, engine reported %s", wt.Window, w.Outcome, wt.Outcome))
		}
		if !slices.Equal(w.Restored, wt.Restored) {
			result.AddError(fmt.Sprintf("window %s: journaled restore order %v, engine reported %v", wt.Window, w.Restored, wt.Restored))
		}
	}
	return nil
}

// collect fills in the final world, rule hits and event counts.
func (h *Harness) collect(result *Result) {
	for _, w := range h.worlds {
		for _, b := range h.world.Blocks(w) {
			bt := BlockTrace{World: string(w), X: b.Pos.X, Y: b.Pos.Y, Z: b.Pos.Z, State: string(b.State)}
			if b.Tile != nil {
				bt.Tile = b.Tile.Type
			}
			result.Blocks = append(result.Blocks, bt)
		}
	}
	if h.policy != nil {
		for _, r := range h.policy.Rules {
			result.RuleHits[r.Name] = h.policy.Hits(r.Name)
		}
	}
	for name, n := range h.events {
		result.Events[name] = n
	}
}

func windowTrace(rep *engine.Report) WindowTrace {
	wt := WindowTrace{
		Seq:      rep.Seq,
		WindowID: rep.WindowID,
		Window:   rep.Operation,
		Outcome:  string(rep.Outcome),
		Groups:   []GroupTrace{},
		Restored: rep.Restored(),
		Digest:   rep.Digest,
	}
	var rtErr *engine.RuntimeError
	if errors.As(rep.Err, &rtErr) {
		wt.Error = string(rtErr.Code)
	}
	if rep.Result == nil {
		return wt
	}
	for _, g := range rep.Result.Groups {
		gt := GroupTrace{
			Type:    string(g.Type),
			World:   string(g.World),
			Outcome: string(g.Outcome),
			Parent:  g.Parent,
			Nodes:   make([]int, len(g.Nodes)),
		}
		if g.Event != nil {
			gt.Event = g.Event.Name()
		}
		for i, id := range g.Nodes {
			gt.Nodes[i] = int(id)
		}
		wt.Groups = append(wt.Groups, gt)
	}
	return wt
}

func checkExpect(step FlowStep, wt WindowTrace) []string {
	var errs []string
	exp := step.Expect
	if wt.Outcome != exp.Outcome {
		errs = append(errs, fmt.Sprintf("window %s: expected outcome %s, got %s", step.Window, exp.Outcome, wt.Outcome))
	}
	if exp.Groups != nil && len(wt.Groups) != *exp.Groups {
		errs = append(errs, fmt.Sprintf("window %s: expected %d groups, got %d", step.Window, *exp.Groups, len(wt.Groups)))
	}
	if exp.Restored != nil && !slices.Equal(wt.Restored, *exp.Restored) {
		errs = append(errs, fmt.Sprintf("window %s: expected restore order %v, got %v", step.Window, *exp.Restored, wt.Restored))
	}
	if exp.Error != "" && wt.Error != exp.Error {
		errs = append(errs, fmt.Sprintf("window %s: expected error %s, got %q", step.Window, exp.Error, wt.Error))
	}
	return errs
}
