package capture

import (
	"github.com/SpongePowered/Common-sub001/internal/ir"
)

// NodeID addresses a node in a Log's arena.
type NodeID int

// ChainID addresses a chain in a Log. TopLevel is always chain 0.
type ChainID int

// NoNode is the absent node.
const NoNode NodeID = -1

// TopLevel is the chain producers append to when no scope is open.
const TopLevel ChainID = 0

type node struct {
	tx        Transaction
	chain     ChainID
	next      NodeID
	children  []ChainID
	cancelled bool
	restored  bool
}

type chain struct {
	kind   EffectKind
	parent NodeID
	head   NodeID
	tail   NodeID
	len    int
}

type phase int

const (
	phaseCapturing phase = iota
	phaseProcessing
	phaseProcessed
)

func (p phase) String() string {
	switch p {
	case phaseCapturing:
		return "capturing"
	case phaseProcessing:
		return "processing"
	default:
		return "processed"
	}
}

// Log is the transaction log of one capture window. It is not safe for
// concurrent use.
type Log struct {
	nodes  []node
	chains []chain
	scopes []*EffectScope
	phase  phase
}

// NewLog creates an empty log ready for capture.
func NewLog() *Log {
	l := &Log{}
	l.reset()
	return l
}

func (l *Log) reset() {
	for _, s := range l.scopes {
		s.closed = true
	}
	l.nodes = nil
	l.chains = []chain{{parent: NoNode, head: NoNode, tail: NoNode}}
	l.scopes = nil
	l.phase = phaseCapturing
}

// IsEmpty reports whether the top-level chain has no head.
func (l *Log) IsEmpty() bool {
	return l.chains[TopLevel].head == NoNode
}

// Len is the number of nodes across all chains.
func (l *Log) Len() int {
	return len(l.nodes)
}

// Clear discards every chain without rollback and makes the log ready for
// a new window. Open scopes become no-ops.
func (l *Log) Clear() {
	l.reset()
}

// Depth is the number of open effect scopes.
func (l *Log) Depth() int {
	return len(l.scopes)
}

func (l *Log) activeChain() ChainID {
	if n := len(l.scopes); n > 0 {
		return l.scopes[n-1].chain
	}
	return TopLevel
}

// Log records tx. The tail of the active chain gets the first chance to
// absorb it, then the node each open scope hangs from, innermost first.
// Otherwise tx is appended to the active chain. Returns the node that now
// holds the mutation.
func (l *Log) Log(tx Transaction) NodeID {
	if l.phase != phaseCapturing {
		violation("Log", "log is %s; cannot record %s", l.phase, tx.Variant())
	}
	for _, id := range l.absorbCandidates() {
		if l.nodes[id].tx.absorb(tx) {
			return id
		}
	}
	return l.append(tx)
}

func (l *Log) absorbCandidates() []NodeID {
	var out []NodeID
	if tail := l.chains[l.activeChain()].tail; tail != NoNode {
		out = append(out, tail)
	}
	for i := len(l.scopes) - 1; i >= 0; i-- {
		out = append(out, l.chains[l.scopes[i].chain].parent)
	}
	return out
}

func (l *Log) append(tx Transaction) NodeID {
	cid := l.activeChain()
	id := NodeID(len(l.nodes))
	l.nodes = append(l.nodes, node{tx: tx, chain: cid, next: NoNode})
	c := &l.chains[cid]
	if c.head == NoNode {
		c.head = id
	} else {
		l.nodes[c.tail].next = id
	}
	c.tail = id
	c.len++
	return id
}

// Transaction returns the mutation held by id.
func (l *Log) Transaction(id NodeID) Transaction {
	return l.nodes[id].tx
}

// Cancelled reports whether id has been marked cancelled.
func (l *Log) Cancelled(id NodeID) bool {
	return l.nodes[id].cancelled
}

// Children returns the side-effect chains hanging from id in the order they
// were pushed.
func (l *Log) Children(id NodeID) []ChainID {
	return l.nodes[id].children
}

// ChainOf returns the chain id belongs to.
func (l *Log) ChainOf(id NodeID) ChainID {
	return l.nodes[id].chain
}

// ChainNodes returns the nodes of c in append order.
func (l *Log) ChainNodes(c ChainID) []NodeID {
	out := make([]NodeID, 0, l.chains[c].len)
	for id := l.chains[c].head; id != NoNode; id = l.nodes[id].next {
		out = append(out, id)
	}
	return out
}

// ChainKind returns the effect kind of c. The top-level chain has none.
func (l *Log) ChainKind(c ChainID) EffectKind {
	return l.chains[c].kind
}

// ChainParent returns the node c hangs from, or NoNode for the top-level
// chain.
func (l *Log) ChainParent(c ChainID) NodeID {
	return l.chains[c].parent
}

func (l *Log) hasSideEffects(id NodeID) bool {
	for _, c := range l.nodes[id].children {
		if l.chains[c].head != NoNode {
			return true
		}
	}
	return false
}

func (l *Log) markCancelled(id NodeID) bool {
	n := &l.nodes[id]
	if n.cancelled {
		return false
	}
	n.cancelled = true
	return true
}

// LogBlockChange records a block state change. original must describe the
// position before the change, including its tile entity.
func (l *Log) LogBlockChange(original ir.BlockSnapshot, newState ir.BlockState, flags ChangeFlags) *ChangeBlock {
	tx := &ChangeBlock{Original: original.Clone(), New: newState, Flags: flags}
	l.Log(tx)
	return tx
}

// LogTileAddition records added being installed at its position. existing
// is the tile entity it replaces, or nil.
func (l *Log) LogTileAddition(w ir.WorldKey, state ir.BlockState, added ir.TileEntity, existing *ir.TileEntity) bool {
	l.Log(&AddTileEntity{
		Original: ir.BlockSnapshot{World: w, Pos: added.Pos, State: state, Tile: existing.Clone()},
		Added:    *added.Clone(),
	})
	return true
}

// LogTileRemoval records removed being taken out of the world. A nil
// tile entity records nothing and returns false.
func (l *Log) LogTileRemoval(w ir.WorldKey, state ir.BlockState, removed *ir.TileEntity) bool {
	if removed == nil {
		return false
	}
	l.Log(&RemoveTileEntity{
		Original: ir.BlockSnapshot{World: w, Pos: removed.Pos, State: state, Tile: removed.Clone()},
	})
	return true
}

// LogTileReplacement records proposed replacing existing at pos. A nil
// proposal records nothing and returns false.
func (l *Log) LogTileReplacement(w ir.WorldKey, pos ir.BlockPos, state ir.BlockState, existing, proposed *ir.TileEntity) bool {
	if proposed == nil {
		return false
	}
	p := proposed.Clone()
	p.Pos = pos
	l.Log(&ReplaceTileEntity{
		Original: ir.BlockSnapshot{World: w, Pos: pos, State: state, Tile: existing.Clone()},
		Proposed: *p,
	})
	return true
}

// LogNeighborNotification records sourceBlock at source notifying target.
func (l *Log) LogNeighborNotification(source ir.BlockPos, sourceBlock string, target ir.BlockSnapshot) {
	l.Log(&NeighborNotification{Source: source, SourceBlock: sourceBlock, Target: target.Clone()})
}

// LogEntitySpawn records e entering its world.
func (l *Log) LogEntitySpawn(e ir.Entity, spawnType string) {
	l.Log(&SpawnEntity{Entity: e.Clone(), SpawnType: spawnType})
}

// LogBlockDrops records the block at original.Pos preparing drops and
// opens the scope the drops are logged in. Close it with
// CompleteBlockDrops.
func (l *Log) LogBlockDrops(original ir.BlockSnapshot) *EffectScope {
	l.Log(&PrepareBlockDrops{Original: original.Clone()})
	return l.PushEffect(EffectBlockDrops)
}

// CompleteBlockDrops closes s if it is the innermost scope and a block
// drops scope. Anything else is left open.
func (l *Log) CompleteBlockDrops(s *EffectScope) {
	if s == nil || s.closed {
		return
	}
	if n := len(l.scopes); n > 0 && l.scopes[n-1] == s && s.Kind() == EffectBlockDrops {
		s.Close()
	}
}

// EnsureEntityDropsEffect records e performing its death drops and opens
// the scope the drops are logged in. If an existing node already covers
// drops for e it returns nil and the caller keeps logging where it is.
func (l *Log) EnsureEntityDropsEffect(e ir.Entity, lastDamageSource string) *EffectScope {
	tx := &EntityPerformingDrops{Entity: e.Clone(), LastDamageSource: lastDamageSource}
	if l.phase != phaseCapturing {
		violation("EnsureEntityDropsEffect", "log is %s", l.phase)
	}
	for _, id := range l.absorbCandidates() {
		if l.nodes[id].tx.absorb(tx) {
			return nil
		}
	}
	l.append(tx)
	return l.PushEffect(EffectEntityDrops)
}

// LogBlockEvent records a block event queued at original.Pos.
func (l *Log) LogBlockEvent(original ir.BlockSnapshot, action string, param int) *AddBlockEvent {
	tx := &AddBlockEvent{Original: original.Clone(), Action: action, Param: param}
	l.Log(tx)
	return tx
}
