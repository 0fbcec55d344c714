package capture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/SpongePowered/Common-sub001/internal/cause"
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/world"
)

// Env holds the collaborators one processing pass talks to.
type Env struct {
	World  world.Accessor
	Bus    *event.Bus
	Causes *cause.Stack

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (e Env) withDefaults() Env {
	if e.Bus == nil {
		e.Bus = event.NewBus()
	}
	if e.Causes == nil {
		e.Causes = cause.NewStack()
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	return e
}

// Outcome is what happened to a group.
type Outcome string

// Group outcomes.
const (
	// OutcomeCommitted: the event was dispatched and nothing was rejected.
	OutcomeCommitted Outcome = "committed"

	// OutcomePartial: the event stood but the decider's post-check
	// rejected some of the group's nodes.
	OutcomePartial Outcome = "partial"

	// OutcomeCancelled: a subscriber cancelled the event, or the post-check
	// rejected every node.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeDeclined: the decider could not build an event. Nothing was
	// dispatched.
	OutcomeDeclined Outcome = "declined"

	// OutcomeParentCancelled: the node this group's chain hangs from was
	// cancelled. Nothing was dispatched.
	OutcomeParentCancelled Outcome = "parent_cancelled"

	// OutcomeAborted: the window was aborted before dispatch, or
	// processing failed before this group was reached.
	OutcomeAborted Outcome = "aborted"

	// OutcomeFailed: applying the group's event failed after dispatch.
	// Its nodes are rolled back.
	OutcomeFailed Outcome = "failed"
)

// GroupResult is a group plus what happened to it.
type GroupResult struct {
	EventGroup

	// Event is nil when nothing was dispatched.
	Event   event.Event
	Outcome Outcome

	// ListenerErr holds the panics of listeners that failed on Event. A
	// group with a failed listener is cancelled.
	ListenerErr error
}

// NodeRecord describes one node after processing. Records are ordered by
// NodeID, which is append order.
type NodeRecord struct {
	ID          NodeID
	Chain       ChainID
	Parent      NodeID
	Effect      EffectKind
	Group       int
	Type        TransactionType
	Variant     string
	World       ir.WorldKey
	Description string
	Cancelled   bool
	Restored    bool
	Detail      map[string]any
}

// Result is everything a processing pass decided.
type Result struct {
	Groups []GroupResult
	Nodes  []NodeRecord

	// Restored lists restored nodes in the order restore ran.
	Restored []NodeID

	CancelledAny bool
	PostEvents   []*event.PostEvent
}

// Committed reports whether nothing was cancelled.
func (r *Result) Committed() bool {
	return !r.CancelledAny
}

// Process batches the log, dispatches one event per group, rolls back
// cancelled nodes and posts the per-type aggregate events. It runs once;
// afterwards the log refuses new nodes until Clear.
//
// A listener that panics cancels its group; the remaining groups are still
// dispatched. A non-nil error means a node failed to post-process or
// restore, and is or wraps an *InconsistencyError. On a post-process
// failure the failing group and every group after it are cancelled and
// rolled back with the rest; a restore failure stops rollback where it
// happened. The result describes everything done up to that point.
func (l *Log) Process(env Env) (*Result, error) {
	l.beginProcessing("Process")
	defer func() { l.phase = phaseProcessed }()
	env = env.withDefaults()

	res := &Result{}
	if l.IsEmpty() {
		return res, nil
	}

	groups := l.Batch()
	res.Groups = make([]GroupResult, len(groups))
	for i, g := range groups {
		res.Groups[i].EventGroup = g
	}

	var postOrder []TransactionType
	postEvents := make(map[TransactionType][]event.Event)
	for i := range res.Groups {
		if err := l.dispatchGroup(env, res.Groups, i); err != nil {
			return res, l.fail(env, groups, res, i, err)
		}
		gr := &res.Groups[i]
		if gr.Outcome != OutcomeCommitted {
			res.CancelledAny = true
		}
		if gr.Event != nil {
			if _, seen := postEvents[gr.Type]; !seen {
				postOrder = append(postOrder, gr.Type)
			}
			postEvents[gr.Type] = append(postEvents[gr.Type], gr.Event)
		}
		env.Logger.Debug("group dispatched",
			"group", i,
			"type", gr.Type,
			"world", gr.World,
			"nodes", len(gr.Nodes),
			"decider", l.nodes[gr.Decider].tx.Variant(),
			"parent", gr.Parent,
			"outcome", gr.Outcome,
		)
	}

	if res.CancelledAny {
		if err := l.rollback(env, groups, res); err != nil {
			l.fillRecords(res)
			return res, err
		}
	}

	for _, t := range postOrder {
		pe := &event.PostEvent{Base: event.NewBase(env.Causes.Current()), Type: string(t), Events: postEvents[t]}
		if _, err := env.Bus.Dispatch(pe); err != nil {
			env.Logger.Error("post event listener failed", "type", t, "error", err)
		}
		res.PostEvents = append(res.PostEvents, pe)
	}

	l.fillRecords(res)
	return res, nil
}

// Abort cancels every node without dispatching anything and restores them
// in reverse batch order. Open scopes are discarded. Like Process it runs
// once.
func (l *Log) Abort(env Env) (*Result, error) {
	for _, s := range l.scopes {
		s.closed = true
	}
	l.scopes = nil
	l.beginProcessing("Abort")
	defer func() { l.phase = phaseProcessed }()
	env = env.withDefaults()

	res := &Result{}
	if l.IsEmpty() {
		return res, nil
	}
	groups := l.Batch()
	res.Groups = make([]GroupResult, len(groups))
	for i, g := range groups {
		res.Groups[i] = GroupResult{EventGroup: g, Outcome: OutcomeAborted}
		l.cancelAll(g.Nodes)
	}
	res.CancelledAny = true
	err := l.rollback(env, groups, res)
	l.fillRecords(res)
	return res, err
}

func (l *Log) beginProcessing(op string) {
	if l.phase != phaseCapturing {
		violation(op, "log is %s", l.phase)
	}
	if n := len(l.scopes); n > 0 {
		violation(op, "%d effect scope(s) still open", n)
	}
	l.phase = phaseProcessing
}

// dispatchGroup is dispatch with panics outside listeners, such as in a
// transaction's own hooks, turned into errors.
func (l *Log) dispatchGroup(env Env, results []GroupResult, i int) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("group %d: processing panicked: %v", i, v)
		}
	}()
	return l.dispatch(env, results, i)
}

// fail handles an error raised while dispatching group i: that group and
// the ones not yet dispatched are cancelled, then everything cancelled so
// far is rolled back. A restore error comes first in the returned error.
func (l *Log) fail(env Env, groups []EventGroup, res *Result, i int, err error) error {
	env.Logger.Error("processing failed", "group", i, "error", err)
	res.Groups[i].Outcome = OutcomeFailed
	l.cancelAll(res.Groups[i].Nodes)
	for j := i + 1; j < len(res.Groups); j++ {
		res.Groups[j].Outcome = OutcomeAborted
		l.cancelAll(res.Groups[j].Nodes)
	}
	res.CancelledAny = true
	rbErr := l.rollback(env, groups, res)
	l.fillRecords(res)
	return errors.Join(rbErr, err)
}

func (l *Log) dispatch(env Env, results []GroupResult, i int) error {
	gr := &results[i]
	txs := make([]Transaction, len(gr.Nodes))
	for j, id := range gr.Nodes {
		txs[j] = l.nodes[id].tx
	}

	if parent := l.chains[gr.Chain].parent; parent != NoNode && l.nodes[parent].cancelled {
		l.cancelAll(gr.Nodes)
		gr.Outcome = OutcomeParentCancelled
		return nil
	}

	frame := env.Causes.PushFrame()
	defer frame.Close()

	var parentEvent event.Event
	if gr.Parent >= 0 {
		parentEvent = results[gr.Parent].Event
		if parentEvent != nil {
			frame.PushCause(parentEvent)
		}
	}
	decider := l.nodes[gr.Decider].tx
	decider.mutateFrame(frame, parentEvent)

	ev, ok := decider.generateEvent(env.Causes.Current(), txs)
	if !ok {
		l.cancelAll(gr.Nodes)
		gr.Outcome = OutcomeDeclined
		return nil
	}
	gr.Event = ev

	cancelled, lerr := env.Bus.Dispatch(ev)
	if lerr != nil {
		env.Logger.Error("listener failed; cancelling group", "group", i, "event", ev.Name(), "error", lerr)
		gr.ListenerErr = lerr
		cancelled = true
	}
	if cancelled {
		l.cancelAll(gr.Nodes)
		gr.Outcome = OutcomeCancelled
	} else {
		rejected := decider.rejected(ev, txs)
		for _, j := range rejected {
			l.markCancelled(gr.Nodes[j])
		}
		switch {
		case len(rejected) == 0:
			gr.Outcome = OutcomeCommitted
		case len(rejected) == len(gr.Nodes):
			gr.Outcome = OutcomeCancelled
		default:
			gr.Outcome = OutcomePartial
		}
	}

	for j, id := range gr.Nodes {
		if l.nodes[id].cancelled {
			continue
		}
		if err := txs[j].postProcess(env.World, ev); err != nil {
			return &InconsistencyError{Node: id, Transaction: txs[j].Variant(), Phase: PhasePostProcess, Err: err}
		}
	}
	return nil
}

func (l *Log) cancelAll(ids []NodeID) {
	for _, id := range ids {
		l.markCancelled(id)
	}
}

// rollback restores cancelled nodes walking groups, and nodes within each
// group, in reverse.
func (l *Log) rollback(env Env, groups []EventGroup, res *Result) error {
	for i := len(groups) - 1; i >= 0; i-- {
		nodes := groups[i].Nodes
		for j := len(nodes) - 1; j >= 0; j-- {
			id := nodes[j]
			n := &l.nodes[id]
			if !n.cancelled || n.restored {
				continue
			}
			if err := n.tx.restore(env.World); err != nil {
				env.Logger.Error("restore failed", "node", id, "transaction", n.tx.Variant(), "error", err)
				return &InconsistencyError{Node: id, Transaction: n.tx.Variant(), Phase: PhaseRestore, Err: err}
			}
			n.restored = true
			res.Restored = append(res.Restored, id)
		}
	}
	env.Logger.Debug("rollback complete", "restored", len(res.Restored))
	return nil
}

func (l *Log) fillRecords(res *Result) {
	groupOf := make(map[NodeID]int, len(l.nodes))
	for i, g := range res.Groups {
		for _, id := range g.Nodes {
			groupOf[id] = i
		}
	}
	res.Nodes = make([]NodeRecord, len(l.nodes))
	for i := range l.nodes {
		n := &l.nodes[i]
		id := NodeID(i)
		g, ok := groupOf[id]
		if !ok {
			g = -1
		}
		c := l.chains[n.chain]
		res.Nodes[i] = NodeRecord{
			ID:          id,
			Chain:       n.chain,
			Parent:      c.parent,
			Effect:      c.kind,
			Group:       g,
			Type:        n.tx.Type(),
			Variant:     n.tx.Variant(),
			World:       n.tx.World(),
			Description: n.tx.String(),
			Cancelled:   n.cancelled,
			Restored:    n.restored,
			Detail:      n.tx.record(),
		}
	}
}
