package policy

import (
	"github.com/SpongePowered/Common-sub001/internal/event"
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// Action is what a rule does to the elements it matches.
type Action string

// Actions.
const (
	// ActionCancel cancels the whole event when any element matches.
	ActionCancel Action = "cancel"
	// ActionInvalidate rejects matching block transactions, neighbor
	// tickets or block event targets individually.
	ActionInvalidate Action = "invalidate"
	// ActionFilter removes matching entities from a spawn event.
	ActionFilter Action = "filter"
	// ActionReplace sets a custom final state on matching block
	// transactions.
	ActionReplace Action = "replace"
)

// Rule is one compiled policy rule. Empty matcher fields match anything.
type Rule struct {
	Name  string
	Event string

	Action Action

	World     ir.WorldKey
	Block     string
	Operation event.Operation
	Entity    string

	// State is the replacement state for ActionReplace.
	State ir.BlockState

	Order event.Order

	// Line is the source line of the rule, 0 if unknown.
	Line int
}

// orders maps schema order names to bus orders.
var orders = map[string]event.Order{
	"first":   event.OrderFirst,
	"early":   event.OrderEarly,
	"default": event.OrderDefault,
	"late":    event.OrderLate,
	"last":    event.OrderLast,
}

// supportedActions lists the actions each event accepts.
var supportedActions = map[string][]Action{
	event.NameChangeBlock:    {ActionCancel, ActionInvalidate, ActionReplace},
	event.NameNotifyNeighbor: {ActionCancel, ActionInvalidate},
	event.NameSpawnEntity:    {ActionCancel, ActionFilter},
	event.NameHarvestEntity:  {ActionCancel},
	event.NameBlockEvent:     {ActionCancel, ActionInvalidate},
}
