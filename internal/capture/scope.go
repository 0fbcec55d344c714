package capture

// EffectScope marks that producers are recording the side effects of one
// node. While it is the innermost open scope, new nodes go to its chain.
type EffectScope struct {
	log    *Log
	chain  ChainID
	depth  int
	closed bool
}

// PushEffect opens a side-effect chain of kind under the tail of the active
// chain and makes it the append target. Panics if the active chain is
// empty.
func (l *Log) PushEffect(kind EffectKind) *EffectScope {
	if l.phase != phaseCapturing {
		violation("PushEffect", "log is %s", l.phase)
	}
	parent := l.chains[l.activeChain()].tail
	if parent == NoNode {
		violation("PushEffect", "no node in the active chain to attach %s to", kind)
	}
	cid := ChainID(len(l.chains))
	l.chains = append(l.chains, chain{kind: kind, parent: parent, head: NoNode, tail: NoNode})
	l.nodes[parent].children = append(l.nodes[parent].children, cid)
	s := &EffectScope{log: l, chain: cid, depth: len(l.scopes)}
	l.scopes = append(l.scopes, s)
	return s
}

// WithEffect runs fn inside a new scope of kind. The scope is closed when
// fn returns or panics.
func (l *Log) WithEffect(kind EffectKind, fn func()) {
	s := l.PushEffect(kind)
	defer s.Close()
	fn()
}

// Chain is the chain the scope appends to.
func (s *EffectScope) Chain() ChainID {
	return s.chain
}

// Kind is the effect kind of the scope's chain.
func (s *EffectScope) Kind() EffectKind {
	return s.log.chains[s.chain].kind
}

// Parent is the node the scope's chain hangs from.
func (s *EffectScope) Parent() NodeID {
	return s.log.chains[s.chain].parent
}

// Close pops the scope, restoring the previous append target. Closing
// twice is a no-op. Closing a scope that is not the innermost open scope
// panics.
func (s *EffectScope) Close() {
	if s == nil || s.closed {
		return
	}
	l := s.log
	if top := len(l.scopes) - 1; top != s.depth || l.scopes[top] != s {
		violation("EffectScope.Close", "scope %d closed while scope %d is innermost", s.depth, top)
	}
	l.scopes = l.scopes[:s.depth]
	s.closed = true
}
