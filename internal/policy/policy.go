package policy

import (
	"log/slog"
	"slices"

	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// Policy is a compiled rule set.
type Policy struct {
	Rules []Rule

	hits   map[string]int
	logger *slog.Logger
}

// New builds a policy from already compiled rules. It validates them.
func New(rules ...Rule) (*Policy, error) {
	if errs := Validate(rules); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &Policy{Rules: rules, hits: map[string]int{}}, nil
}

// SetLogger routes rule hit logging. A nil logger disables it.
func (p *Policy) SetLogger(l *slog.Logger) {
	p.logger = l
}

// Install subscribes every rule to bus in declaration order and returns a
// func that unsubscribes them all.
func (p *Policy) Install(bus *event.Bus) func() {
	unsubs := make([]func(), 0, len(p.Rules))
	for i := range p.Rules {
		r := &p.Rules[i]
		unsubs = append(unsubs, bus.Subscribe(r.Event, r.Order, func(ev event.Event) {
			if n := r.apply(ev); n > 0 {
				p.hits[r.Name]++
				if p.logger != nil {
					p.logger.Debug("policy rule applied",
						"rule", r.Name,
						"event", ev.Name(),
						"action", string(r.Action),
						"matched", n,
					)
				}
			}
		}))
	}
	return func() {
		for _, u := range slices.Backward(unsubs) {
			u()
		}
	}
}

// Hits reports how many events the named rule has adjusted.
func (p *Policy) Hits(rule string) int {
	return p.hits[rule]
}

// ResetHits clears the hit counters.
func (p *Policy) ResetHits() {
	clear(p.hits)
}

// apply runs the rule against ev and returns how many elements it matched.
// A cancel rule counts the event once.
func (r *Rule) apply(ev event.Event) int {
	switch e := ev.(type) {
	case *event.ChangeBlockEvent:
		if !r.matchWorld(e.World) {
			return 0
		}
		return r.applyEach(e, len(e.Transactions), func(i int) bool {
			return r.matchTransaction(e.Transactions[i])
		}, func(i int) {
			if r.Action == ActionReplace {
				e.Transactions[i].SetCustom(r.State)
				return
			}
			e.Transactions[i].Invalidate()
		})

	case *event.NotifyNeighborBlockEvent:
		if !r.matchWorld(e.World) {
			return 0
		}
		return r.applyEach(e, len(e.Tickets), func(i int) bool {
			return r.matchBlock(e.Tickets[i].TargetState)
		}, func(i int) {
			e.Tickets[i].Invalidate()
		})

	case *event.ScheduleBlockEventEvent:
		if !r.matchWorld(e.World) {
			return 0
		}
		return r.applyEach(e, len(e.Targets), func(i int) bool {
			return r.matchBlock(e.Targets[i].Snapshot.State)
		}, func(i int) {
			e.Targets[i].Invalidate()
		})

	case *event.SpawnEntityEvent:
		if !r.matchWorld(e.World) {
			return 0
		}
		if r.Action == ActionFilter {
			return e.Filter(func(ent ir.Entity) bool { return !r.matchEntity(ent) })
		}
		return r.applyEach(e, len(e.Entities()), func(i int) bool {
			return r.matchEntity(e.Entities()[i])
		}, func(int) {})

	case *event.HarvestEntityEvent:
		if !r.matchWorld(e.Entity.World) || !r.matchEntity(e.Entity) {
			return 0
		}
		e.SetCancelled(true)
		return 1
	}
	return 0
}

// applyEach cancels c when the rule is a cancel rule and any element
// matches; otherwise it adjusts every matching element.
func (r *Rule) applyEach(c event.Cancellable, n int, match func(int) bool, adjust func(int)) int {
	matched := 0
	for i := 0; i < n; i++ {
		if !match(i) {
			continue
		}
		matched++
		if r.Action != ActionCancel {
			adjust(i)
		}
	}
	if r.Action == ActionCancel && matched > 0 {
		c.SetCancelled(true)
		return 1
	}
	return matched
}

func (r *Rule) matchWorld(w ir.WorldKey) bool {
	return r.World == "" || r.World == w
}

func (r *Rule) matchBlock(s ir.BlockState) bool {
	return r.Block == "" || s.BlockType() == r.Block
}

// matchTransaction tests the final state, or the original one for breaks.
func (r *Rule) matchTransaction(tx *event.BlockTransaction) bool {
	if r.Operation != "" && tx.Operation != r.Operation {
		return false
	}
	state := tx.Final.State
	if tx.Operation == event.OpBreak {
		state = tx.Original.State
	}
	return r.matchBlock(state)
}

func (r *Rule) matchEntity(e ir.Entity) bool {
	return r.Entity == "" || e.Type == r.Entity
}
