package event

import (
	"errors"
	"fmt"
	"slices"
)

// Order positions a listener relative to others on the same bus. Lower
// orders run first; equal orders run in registration order.
type Order int

// Listener orders.
const (
	OrderFirst   Order = -200
	OrderEarly   Order = -100
	OrderDefault Order = 0
	OrderLate    Order = 100
	OrderLast    Order = 200
)

// Listener receives posted events.
type Listener func(Event)

type registration struct {
	id    int
	name  string
	order Order
	fn    Listener
}

// Bus delivers events synchronously to listeners. It is not safe for
// concurrent use; the engine posts from a single goroutine.
type Bus struct {
	regs   []registration
	nextID int
	posted int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for events named name. An empty name receives
// every event. The returned func unregisters.
func (b *Bus) Subscribe(name string, order Order, fn Listener) func() {
	b.nextID++
	id := b.nextID
	b.regs = append(b.regs, registration{id: id, name: name, order: order, fn: fn})
	slices.SortStableFunc(b.regs, func(x, y registration) int {
		return int(x.order) - int(y.order)
	})
	return func() {
		b.regs = slices.DeleteFunc(b.regs, func(r registration) bool { return r.id == id })
	}
}

// On registers a typed listener. Events of other types are skipped even
// when the name matches.
func On[E Event](b *Bus, name string, order Order, fn func(E)) func() {
	return b.Subscribe(name, order, func(ev Event) {
		if typed, ok := ev.(E); ok {
			fn(typed)
		}
	})
}

// ListenerError is a listener panic recovered during a post.
type ListenerError struct {
	Listener string // subscribed event name, empty for catch-all listeners
	Event    string
	Value    any
}

func (e *ListenerError) Error() string {
	name := e.Listener
	if name == "" {
		name = "*"
	}
	return fmt.Sprintf("listener %s panicked on %s: %v", name, e.Event, e.Value)
}

// Post delivers ev to every matching listener in order and reports whether
// it ended up cancelled. Listener panics are dropped; use Dispatch to see
// them.
func (b *Bus) Post(ev Event) bool {
	cancelled, _ := b.Dispatch(ev)
	return cancelled
}

// Dispatch is Post that also returns the panics of failed listeners, as
// *ListenerError values joined together. A panicking listener does not stop
// later listeners.
func (b *Bus) Dispatch(ev Event) (cancelled bool, err error) {
	b.posted++
	regs := slices.Clone(b.regs)
	var errs []error
	for _, r := range regs {
		if r.name != "" && r.name != ev.Name() {
			continue
		}
		if lerr := call(r, ev); lerr != nil {
			errs = append(errs, lerr)
		}
	}
	return IsCancelled(ev), errors.Join(errs...)
}

func call(r registration, ev Event) (err *ListenerError) {
	defer func() {
		if v := recover(); v != nil {
			err = &ListenerError{Listener: r.name, Event: ev.Name(), Value: v}
		}
	}()
	r.fn(ev)
	return nil
}

// Posted is the number of events posted so far.
func (b *Bus) Posted() int {
	return b.posted
}

// Len is the number of registered listeners.
func (b *Bus) Len() int {
	return len(b.regs)
}
