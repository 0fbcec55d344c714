package testutil

import (
	"fmt"
	"sync"
)

// SequentialWindowIDs hands out window IDs "<prefix>-0001", "<prefix>-0002"
// and so on, so traces and journals from the same scenario are identical
// across runs.
//
// Thread-safety: safe for concurrent use.
type SequentialWindowIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialWindowIDs creates a generator. An empty prefix becomes
// "window".
func NewSequentialWindowIDs(prefix string) *SequentialWindowIDs {
	if prefix == "" {
		prefix = "window"
	}
	return &SequentialWindowIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialWindowIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
