package engine

import (
	"github.com/SpongePowered/Common-sub001/internal/capture"
	"github.com/SpongePowered/Common-sub001/internal/ir"
	"github.com/SpongePowered/Common-sub001/internal/store"
)

// Outcome is how a capture window ended.
type Outcome string

// Window outcomes.
const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeAborted    Outcome = "aborted"
	OutcomeFailed     Outcome = "failed"
)

// Report describes one processed window.
type Report struct {
	WindowID  string
	Seq       int64
	Operation string
	Outcome   Outcome

	// Result is what the capture log decided. It is never nil once the
	// operation has run.
	Result *capture.Result

	// Digest is the content hash of the window's outcome.
	Digest string

	// Err is a *RuntimeError for aborted and failed windows.
	Err error
}

// Restored returns the restored node IDs in restore order.
func (r *Report) Restored() []int {
	if r.Result == nil {
		return []int{}
	}
	return nodeIDs(r.Result.Restored)
}

func nodeIDs(ids []capture.NodeID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

func (r *Report) errorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// digest hashes everything the window decided: per-group outcome, per-node
// cancellation and restore flags, and restore order.
func (r *Report) digest() (string, error) {
	groups := []any{}
	nodes := []any{}
	if r.Result != nil {
		for _, g := range r.Result.Groups {
			event := ""
			if g.Event != nil {
				event = g.Event.Name()
			}
			groups = append(groups, map[string]any{
				"type":    string(g.Type),
				"world":   g.World,
				"parent":  g.Parent,
				"event":   event,
				"outcome": string(g.Outcome),
				"nodes":   toAny(nodeIDs(g.Nodes)),
			})
		}
		for _, n := range r.Result.Nodes {
			nodes = append(nodes, map[string]any{
				"variant":     n.Variant,
				"description": n.Description,
				"cancelled":   n.Cancelled,
				"restored":    n.Restored,
			})
		}
	}
	return ir.WindowDigest(r.WindowID, r.Seq, map[string]any{
		"operation": r.Operation,
		"outcome":   string(r.Outcome),
		"error":     r.errorText(),
		"restored":  toAny(r.Restored()),
		"groups":    groups,
		"nodes":     nodes,
	})
}

func toAny(ids []int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// StoreWindow converts the report to its journal form.
func (r *Report) StoreWindow() (store.Window, error) {
	w := store.Window{
		ID:             r.WindowID,
		Seq:            r.Seq,
		Operation:      r.Operation,
		Outcome:        string(r.Outcome),
		Restored:       r.Restored(),
		Error:          r.errorText(),
		Digest:         r.Digest,
		EngineVersion:  ir.EngineVersion,
		JournalVersion: ir.JournalVersion,
		Groups:         []store.Group{},
		Nodes:          []store.Node{},
	}
	if r.Result == nil {
		return w, nil
	}

	w.NodeCount = len(r.Result.Nodes)
	for i, g := range r.Result.Groups {
		sg := store.Group{
			Index:   i,
			Parent:  g.Parent,
			Chain:   int(g.Chain),
			Type:    string(g.Type),
			World:   string(g.World),
			Decider: int(g.Decider),
			Outcome: string(g.Outcome),
			Nodes:   nodeIDs(g.Nodes),
		}
		if g.Event != nil {
			sg.Event = g.Event.Name()
		}
		w.Groups = append(w.Groups, sg)
	}
	for _, n := range r.Result.Nodes {
		detail, err := store.MarshalDetail(n.Detail)
		if err != nil {
			return store.Window{}, err
		}
		w.Nodes = append(w.Nodes, store.Node{
			ID:          int(n.ID),
			Chain:       int(n.Chain),
			Parent:      int(n.Parent),
			Effect:      string(n.Effect),
			Group:       n.Group,
			Type:        string(n.Type),
			Variant:     n.Variant,
			World:       string(n.World),
			Description: n.Description,
			Cancelled:   n.Cancelled,
			Restored:    n.Restored,
			Detail:      detail,
		})
	}
	return w, nil
}
