package capture

import (
	"errors"
	"fmt"
)

// InvariantError is the panic value for producer contract violations.
type InvariantError struct {
	// Op is the Log operation that detected the violation.
	Op string

	// Reason describes what was wrong.
	Reason string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("capture invariant violated in %s: %s", e.Op, e.Reason)
}

func violation(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// InconsistencyError reports that a node could not be restored or
// post-processed. The world is left in an unknown state; there is no
// retry.
type InconsistencyError struct {
	Node        NodeID
	Transaction string
	Phase       string
	Err         error
}

// Phases reported by InconsistencyError.
const (
	PhaseRestore     = "restore"
	PhasePostProcess = "post_process"
)

// Error implements the error interface.
func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent node %d (%s) during %s: %v", e.Node, e.Transaction, e.Phase, e.Err)
}

// Unwrap returns the world error.
func (e *InconsistencyError) Unwrap() error {
	return e.Err
}

// IsInconsistency reports whether err is, or wraps, an InconsistencyError.
func IsInconsistency(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}

// AsInvariant extracts an InvariantError from a recovered panic value.
func AsInvariant(recovered any) (*InvariantError, bool) {
	ie, ok := recovered.(*InvariantError)
	return ie, ok
}
