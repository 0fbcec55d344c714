package capture

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Printer renders logs, batch plans and results as indented text for debug
// output and the CLI.
type Printer struct {
	w   *bufio.Writer
	err error
}

// NewPrinter writes to w. Call Flush when done.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: bufio.NewWriter(w)}
}

func (p *Printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

// Flush writes buffered output and returns the first error seen.
func (p *Printer) Flush() error {
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

// Log prints every chain as a tree: nodes in append order, each followed by
// its side-effect chains.
func (p *Printer) Log(l *Log) {
	p.line(0, "Transactions (%d nodes, %s)", l.Len(), l.phase)
	p.chain(l, TopLevel, 1)
}

func (p *Printer) chain(l *Log, c ChainID, depth int) {
	for _, id := range l.ChainNodes(c) {
		marker := ""
		if l.nodes[id].cancelled {
			marker = " [cancelled]"
		}
		p.line(depth, "[%d] %s%s", id, l.nodes[id].tx, marker)
		for _, child := range l.nodes[id].children {
			p.line(depth+1, "%s:", l.chains[child].kind)
			p.chain(l, child, depth+2)
		}
	}
}

// Groups prints a batch plan.
func (p *Printer) Groups(groups []EventGroup) {
	p.line(0, "Batches (%d)", len(groups))
	for i, g := range groups {
		p.line(1, "#%d %s", i, describeGroup(g))
	}
}

// Result prints each group's outcome, then the restore order.
func (p *Printer) Result(r *Result) {
	p.line(0, "Groups (%d)", len(r.Groups))
	for i, g := range r.Groups {
		name := "-"
		if g.Event != nil {
			name = g.Event.Name()
		}
		p.line(1, "#%d %s event=%s outcome=%s", i, describeGroup(g.EventGroup), name, g.Outcome)
	}
	if len(r.Restored) == 0 {
		p.line(0, "Restored: none")
		return
	}
	ids := make([]string, len(r.Restored))
	for i, id := range r.Restored {
		ids[i] = fmt.Sprint(int(id))
	}
	p.line(0, "Restored: %s", strings.Join(ids, ", "))
}

func describeGroup(g EventGroup) string {
	ids := make([]string, len(g.Nodes))
	for i, id := range g.Nodes {
		ids[i] = fmt.Sprint(int(id))
	}
	parent := ""
	if g.Parent >= 0 {
		parent = fmt.Sprintf(" parent=#%d", g.Parent)
	}
	return fmt.Sprintf("%s %s nodes=[%s] decider=%d%s", g.Type, g.World, strings.Join(ids, ","), g.Decider, parent)
}

// String renders the log tree.
func (l *Log) String() string {
	var sb strings.Builder
	p := NewPrinter(&sb)
	p.Log(l)
	_ = p.Flush()
	return sb.String()
}
