// Package cause tracks the ambient "who and why" of the mutation being
// processed. Callers push a Frame, add causes and context to it, and close
// it when done; Current reports the combined view of all open frames.
package cause

import (
	"fmt"
	"slices"
)

// ContextKey names an entry in the cause context.
type ContextKey string

// Context keys set by the transaction engine and the reference pipeline.
const (
	KeyNotifier         ContextKey = "notifier"
	KeyLastDamageSource ContextKey = "last_damage_source"
	KeyBlockEventTarget ContextKey = "block_event_target"
	KeySpawnType        ContextKey = "spawn_type"
	KeyWorld            ContextKey = "world"
	KeyPlayer           ContextKey = "player"
)

// Cause is an immutable view of the stack: causes ordered most recent
// first, plus every context entry currently set.
type Cause struct {
	Causes  []any
	Context map[ContextKey]any
}

// Root returns the most recent cause, or nil.
func (c Cause) Root() any {
	if len(c.Causes) == 0 {
		return nil
	}
	return c.Causes[0]
}

// Value returns the context entry for key.
func (c Cause) Value(key ContextKey) (any, bool) {
	v, ok := c.Context[key]
	return v, ok
}

// Describe renders each cause with Describe.
func (c Cause) Describe() []string {
	out := make([]string, len(c.Causes))
	for i, v := range c.Causes {
		out[i] = Describe(v)
	}
	return out
}

// Describer is implemented by causes that know how to name themselves in
// logs and traces.
type Describer interface {
	DescribeCause() string
}

// Describe returns a short label for a cause value.
func Describe(v any) string {
	switch c := v.(type) {
	case nil:
		return "<nil>"
	case Describer:
		return c.DescribeCause()
	case fmt.Stringer:
		return c.String()
	case interface{ Name() string }:
		return "event:" + c.Name()
	case string:
		return c
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Stack is the cause stack for one capture window. It is not safe for
// concurrent use.
type Stack struct {
	causes []any
	ctx    map[ContextKey]any
	frames []*Frame
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{ctx: make(map[ContextKey]any)}
}

// PushCause pushes c outside of any frame. It is popped when the innermost
// open frame closes, or stays until Reset if no frame is open.
func (s *Stack) PushCause(c any) {
	s.causes = append(s.causes, c)
}

// Current returns a snapshot of the stack.
func (s *Stack) Current() Cause {
	causes := slices.Clone(s.causes)
	slices.Reverse(causes)
	ctx := make(map[ContextKey]any, len(s.ctx))
	for k, v := range s.ctx {
		ctx[k] = v
	}
	return Cause{Causes: causes, Context: ctx}
}

// Depth is the number of open frames.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Reset drops everything. Open frames become invalid.
func (s *Stack) Reset() {
	for _, f := range s.frames {
		f.closed = true
	}
	s.causes = nil
	s.ctx = make(map[ContextKey]any)
	s.frames = nil
}

// PushFrame opens a new frame. The caller must Close it, normally with
// defer, in LIFO order relative to other frames.
func (s *Stack) PushFrame() *Frame {
	f := &Frame{stack: s, depth: len(s.frames), causeMark: len(s.causes)}
	s.frames = append(s.frames, f)
	return f
}

// Frame is a scoped set of causes and context entries.
type Frame struct {
	stack     *Stack
	depth     int
	causeMark int
	saved     []savedEntry
	closed    bool
}

type savedEntry struct {
	key     ContextKey
	prev    any
	present bool
}

// PushCause adds c as the most recent cause.
func (f *Frame) PushCause(c any) *Frame {
	f.mustBeTop("PushCause")
	f.stack.causes = append(f.stack.causes, c)
	return f
}

// AddContext sets key to v until the frame closes, after which the previous
// value (or absence) is restored.
func (f *Frame) AddContext(key ContextKey, v any) *Frame {
	f.mustBeTop("AddContext")
	prev, present := f.stack.ctx[key]
	f.saved = append(f.saved, savedEntry{key: key, prev: prev, present: present})
	f.stack.ctx[key] = v
	return f
}

// Close pops the frame. Closing twice is a no-op; closing a frame that is
// not the innermost open frame panics.
func (f *Frame) Close() {
	if f.closed {
		return
	}
	f.mustBeTop("Close")
	s := f.stack
	s.causes = s.causes[:f.causeMark]
	for i := len(f.saved) - 1; i >= 0; i-- {
		e := f.saved[i]
		if e.present {
			s.ctx[e.key] = e.prev
		} else {
			delete(s.ctx, e.key)
		}
	}
	s.frames = s.frames[:f.depth]
	f.closed = true
}

func (f *Frame) mustBeTop(op string) {
	if f.closed {
		panic(fmt.Sprintf("cause: %s on closed frame", op))
	}
	if top := len(f.stack.frames) - 1; top != f.depth {
		panic(fmt.Sprintf("cause: %s on frame %d while frame %d is innermost", op, f.depth, top))
	}
}
