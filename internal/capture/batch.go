package capture

import (
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// EventGroup is a run of nodes represented by one event.
type EventGroup struct {
	// Nodes in chain order.
	Nodes []NodeID

	// Decider builds the event. It is always the last node of the group.
	Decider NodeID

	// Parent is the index of the group whose node this group's chain hangs
	// from, or -1 for top-level groups.
	Parent int

	// Chain is the chain the nodes belong to.
	Chain ChainID

	Type  TransactionType
	World ir.WorldKey
}

// Batch partitions every chain into event groups. Groups come in chain
// order; the groups of a node's side-effect chains follow the group that
// node closed, before the next group of its own chain.
//
// Scanning a chain, the open group is closed before a node whose type or
// world differs from the group, and before an unbatchable node. A node is
// appended, then the group is closed after it if it is unbatchable or has
// non-empty side-effect chains. Whatever is open at the end of the chain
// is closed.
func (l *Log) Batch() []EventGroup {
	b := batcher{log: l}
	b.chain(TopLevel, -1)
	return b.out
}

type batcher struct {
	log *Log
	out []EventGroup
}

func (b *batcher) chain(c ChainID, parent int) {
	var acc []NodeID
	for id := b.log.chains[c].head; id != NoNode; id = b.log.nodes[id].next {
		tx := b.log.nodes[id].tx
		if len(acc) > 0 {
			first := b.log.nodes[acc[0]].tx
			if tx.Unbatchable() || tx.Type() != first.Type() || tx.World() != first.World() {
				b.close(c, acc, parent)
				acc = nil
			}
		}
		acc = append(acc, id)
		if tx.Unbatchable() || b.log.hasSideEffects(id) {
			b.close(c, acc, parent)
			acc = nil
		}
	}
	if len(acc) > 0 {
		b.close(c, acc, parent)
	}
}

func (b *batcher) close(c ChainID, nodes []NodeID, parent int) {
	decider := nodes[len(nodes)-1]
	tx := b.log.nodes[decider].tx
	b.out = append(b.out, EventGroup{
		Nodes:   nodes,
		Decider: decider,
		Parent:  parent,
		Chain:   c,
		Type:    tx.Type(),
		World:   tx.World(),
	})
	idx := len(b.out) - 1
	for _, id := range nodes {
		for _, child := range b.log.nodes[id].children {
			if b.log.chains[child].head != NoNode {
				b.chain(child, idx)
			}
		}
	}
}
