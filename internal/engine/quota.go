package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer caps how many nodes one capture window may record.
//
// A window that outgrows its quota is aborted: every node is restored in
// reverse order and nothing is dispatched. This stops a runaway operation
// (a block update storm, a chain of explosions) from building an
// unbounded log.
type QuotaEnforcer struct {
	maxNodes int
}

// NewQuotaEnforcer creates an enforcer with the given limit. A limit of 0
// or less disables the check.
func NewQuotaEnforcer(maxNodes int) *QuotaEnforcer {
	return &QuotaEnforcer{maxNodes: maxNodes}
}

// Check validates a window's node count against the limit.
//
// Returns NodesExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check(windowID string, nodes int) error {
	if q.maxNodes <= 0 || nodes <= q.maxNodes {
		return nil
	}
	return &NodesExceededError{WindowID: windowID, Nodes: nodes, Limit: q.maxNodes}
}

// MaxNodes returns the limit.
func (q *QuotaEnforcer) MaxNodes() int {
	return q.maxNodes
}

// NodesExceededError is returned when a window records more nodes than the
// quota allows.
type NodesExceededError struct {
	WindowID string
	Nodes    int
	Limit    int
}

// Error implements the error interface.
func (e *NodesExceededError) Error() string {
	return fmt.Sprintf("window %s exceeded node quota: %d nodes > %d limit",
		e.WindowID, e.Nodes, e.Limit)
}

// IsNodesExceededError returns true if the error is a NodesExceededError.
// Uses errors.As to handle wrapped errors.
func IsNodesExceededError(err error) bool {
	var ne *NodesExceededError
	return errors.As(err, &ne)
}
