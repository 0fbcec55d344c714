package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SpongePowered/Common-sub001/internal/capture"
	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/pipeline"
	"github.com/SpongePowered/Common-sub001/internal/policy"
	"github.com/SpongePowered/Common-sub001/internal/store"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// DefaultMaxNodes is the default maximum number of nodes per window.
// This prevents runaway operations from building an unbounded log.
const DefaultMaxNodes = 4096

// Engine is the single-writer world transaction loop.
//
// The engine runs operations in FIFO order, one capture window each, and
// reports what every window decided.
//
// CRITICAL: All world mutations happen in the goroutine that calls Run (or
// Step). External callers use Enqueue() to submit operations.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(), Step(), Resume(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine
type Engine struct {
	world     world.Accessor
	bus       *event.Bus
	causes    *cause.Stack
	store     *store.Store
	clock     Sequencer
	windowIDs WindowIDGenerator
	queue     *opQueue
	policy    *policy.Policy
	logger    *slog.Logger

	maxNodes     int
	quota        *QuotaEnforcer
	pipelineOpts []pipeline.Option
	onWindow     func(*Report)
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxNodes sets the node quota per window.
//
// Default: 4096 nodes (DefaultMaxNodes). 0 disables the quota.
func WithMaxNodes(maxNodes int) EngineOption {
	return func(e *Engine) {
		e.maxNodes = maxNodes
	}
}

// WithStore journals every window to s.
func WithStore(s *store.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithWindowIDs sets the window ID generator. Default: UUIDv7Generator.
func WithWindowIDs(g WindowIDGenerator) EngineOption {
	return func(e *Engine) {
		e.windowIDs = g
	}
}

// WithLogger sets the logger for the engine and the pipelines it creates.
// Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the sequencer windows are stamped from.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithBus sets the bus events are dispatched on. Default: a new bus.
func WithBus(b *event.Bus) EngineOption {
	return func(e *Engine) {
		e.bus = b
	}
}

// WithCauses sets the cause stack. Default: a new stack.
func WithCauses(s *cause.Stack) EngineOption {
	return func(e *Engine) {
		e.causes = s
	}
}

// WithPolicy installs p on the engine's bus.
func WithPolicy(p *policy.Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithPipelineOptions configures the pipeline each window gets.
func WithPipelineOptions(opts ...pipeline.Option) EngineOption {
	return func(e *Engine) {
		e.pipelineOpts = append(e.pipelineOpts, opts...)
	}
}

// WithReportHook calls fn with every window report, from the goroutine
// that ran the window.
func WithReportHook(fn func(*Report)) EngineOption {
	return func(e *Engine) {
		e.onWindow = fn
	}
}

// New creates an Engine mutating w.
//
// Options can be passed to configure the engine (e.g., WithMaxNodes).
func New(w world.Accessor, opts ...EngineOption) *Engine {
	e := &Engine{
		world:     w,
		clock:     NewClock(),
		windowIDs: UUIDv7Generator{},
		queue:     newOpQueue(),
		maxNodes:  DefaultMaxNodes,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.bus == nil {
		e.bus = event.NewBus()
	}
	if e.causes == nil {
		e.causes = cause.NewStack()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.quota = NewQuotaEnforcer(e.maxNodes)
	if e.policy != nil {
		e.policy.SetLogger(e.logger)
		e.policy.Install(e.bus)
	}

	return e
}

// Resume moves the clock past the last journaled window so new windows
// never reuse a seq. Without a store it does nothing.
func (e *Engine) Resume(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	last, err := e.store.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	e.clock = NewClockAt(last)
	e.logger.Info("engine resumed", "seq", last)
	return nil
}

// Enqueue submits an operation for the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(op Operation) bool {
	return e.queue.Enqueue(op)
}

// Run starts the single-writer loop.
// Blocks until context is cancelled or Stop() is called; operations
// already queued when Stop is called still run.
//
// ERROR HANDLING: A window that fails or aborts is logged and reported,
// and the loop moves on to the next operation. Only journal errors stop
// the loop, because a window the journal did not record cannot be
// audited afterwards.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		op, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.Step(ctx, op); err != nil && isJournalError(err) {
				e.logger.Error("engine stopping: journal write failed", "error", err)
				e.queue.Close()
				return err
			}
			continue
		}

		// No operation ready - wait for signal or context cancellation
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed, which
			// makes this case fire immediately.
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the queue, which will cause Run() to return once it drains.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Step runs op in a new capture window synchronously and returns the
// window's report. The returned error is the report's Err (a
// *RuntimeError) joined with any journal error.
func (e *Engine) Step(ctx context.Context, op Operation) (*Report, error) {
	rep := &Report{
		WindowID:  e.windowIDs.Generate(),
		Seq:       e.clock.Next(),
		Operation: op.Name,
	}

	rep.Err = e.runWindow(op, rep)

	digest, err := rep.digest()
	if err != nil {
		return rep, fmt.Errorf("window %s: %w", rep.WindowID, err)
	}
	rep.Digest = digest

	e.logWindow(rep)

	var journalErr error
	if e.store != nil {
		journalErr = e.journal(ctx, rep)
	}
	if e.onWindow != nil {
		e.onWindow(rep)
	}

	if rep.Err != nil || journalErr != nil {
		return rep, errors.Join(rep.Err, journalErr)
	}
	return rep, nil
}

// runWindow performs op against a fresh log and settles the log. It sets
// rep.Outcome and rep.Result and returns the window's runtime error.
func (e *Engine) runWindow(op Operation, rep *Report) error {
	log := capture.NewLog()
	env := capture.Env{World: e.world, Bus: e.bus, Causes: e.causes, Logger: e.logger}

	frame := e.causes.PushFrame()
	defer frame.Close()
	if op.Cause != nil {
		frame.PushCause(op.Cause)
	}

	opts := append([]pipeline.Option{pipeline.WithLogger(e.logger)}, e.pipelineOpts...)
	p := pipeline.New(e.world, log, opts...)

	if err := runOperation(op, p); err != nil {
		return e.abort(log, env, rep, OutcomeFailed, NewOperationError(rep.WindowID, op.Name, err))
	}

	if err := e.quota.Check(rep.WindowID, log.Len()); err != nil {
		var exceeded *NodesExceededError
		errors.As(err, &exceeded)
		return e.abort(log, env, rep, OutcomeAborted, NewQuotaError(rep.WindowID, op.Name, exceeded))
	}

	res, err := processLog(log, env)
	rep.Result = res
	if err != nil {
		rep.Outcome = OutcomeFailed
		var inconsistent *capture.InconsistencyError
		if errors.As(err, &inconsistent) && inconsistent.Phase == capture.PhaseRestore {
			return NewRestoreError(rep.WindowID, op.Name, err)
		}
		return NewOperationError(rep.WindowID, op.Name, err)
	}

	if res.Committed() {
		rep.Outcome = OutcomeCommitted
	} else {
		rep.Outcome = OutcomeRolledBack
	}
	return nil
}

// abort undoes every node of the window. A failed restore turns any
// outcome into failed.
func (e *Engine) abort(log *capture.Log, env capture.Env, rep *Report, outcome Outcome, cause *RuntimeError) error {
	res, err := log.Abort(env)
	rep.Result = res
	rep.Outcome = outcome
	if err != nil {
		rep.Outcome = OutcomeFailed
		return NewRestoreError(rep.WindowID, rep.Operation, fmt.Errorf("%s: %w", cause.Message, err))
	}
	return cause
}

// runOperation calls op.Run and turns a panic into an error.
func runOperation(op Operation, p *pipeline.Pipeline) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	if op.Run == nil {
		return nil
	}
	return op.Run(p)
}

// processLog is Log.Process with a panic that escapes it, such as an
// invariant violation, turned into an error. Listener panics never get
// here: the log cancels the group and rolls it back.
func processLog(log *capture.Log, env capture.Env) (res *capture.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = &capture.Result{CancelledAny: true}
			err = fmt.Errorf("processing panicked: %v", r)
		}
	}()
	return log.Process(env)
}

func (e *Engine) logWindow(rep *Report) {
	attrs := []any{
		"window_id", rep.WindowID,
		"seq", rep.Seq,
		"operation", rep.Operation,
		"outcome", string(rep.Outcome),
	}
	if rep.Result != nil {
		attrs = append(attrs, "nodes", len(rep.Result.Nodes), "groups", len(rep.Result.Groups), "restored", len(rep.Result.Restored))
	}

	switch rep.Outcome {
	case OutcomeCommitted, OutcomeRolledBack:
		e.logger.Info("window processed", attrs...)
	case OutcomeAborted:
		e.logger.Warn("window aborted", append(attrs, "error", rep.Err)...)
	default:
		e.logger.Error("window failed", append(attrs, "error", rep.Err)...)
	}
}

// journalError marks store failures so Run can tell them from window
// failures.
type journalError struct {
	err error
}

func (e *journalError) Error() string { return e.err.Error() }
func (e *journalError) Unwrap() error { return e.err }

func isJournalError(err error) bool {
	var je *journalError
	return errors.As(err, &je)
}

func (e *Engine) journal(ctx context.Context, rep *Report) error {
	w, err := rep.StoreWindow()
	if err != nil {
		return &journalError{fmt.Errorf("journal window %s: %w", rep.WindowID, err)}
	}
	inserted, err := e.store.WriteWindow(ctx, w)
	if err != nil {
		return &journalError{fmt.Errorf("journal window %s: %w", rep.WindowID, err)}
	}
	if !inserted {
		e.logger.Debug("window already journaled, skipping (idempotent)", "window_id", rep.WindowID)
	}
	return nil
}

// World returns the world the engine mutates.
func (e *Engine) World() world.Accessor {
	return e.world
}

// Bus returns the bus events are dispatched on. Subscribe before Run.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Clock returns the engine's sequencer.
func (e *Engine) Clock() Sequencer {
	return e.clock
}

// MaxNodes returns the configured node quota.
func (e *Engine) MaxNodes() int {
	return e.maxNodes
}

// QueueLen returns the current number of pending operations.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}
