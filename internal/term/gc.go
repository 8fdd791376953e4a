package term

// GCParticipant is implemented by collaborators that hold term.Ref values
// outside the Manager itself (the solver pool's frames, the reachability
// prover's obligation stack, the trace builder). Any such collaborator must
// register so that a Collect pass can (a) learn which of its refs are still
// live roots and (b) update its refs if Collect decides to relocate nodes.
type GCParticipant interface {
	// GCCollect is called during a Manager.Collect pass. The participant
	// must call relocator.Root(r) for every Ref it still needs to keep
	// alive, and replace any stored Ref with the Ref relocator.Relocate
	// returns for it.
	GCCollect(relocator *Relocator)
}

// Relocator is handed to each registered GCParticipant during a collection
// pass. It tracks which nodes are rooted (and therefore survive collection)
// and lets a participant ask what a possibly-stale Ref now resolves to.
//
// The current Manager implementation never actually moves node storage
// (nodes are addressed by a stable uint64 id for the manager's lifetime), so
// Relocate is the identity function today; the protocol still exists and is
// exercised so that a future copying collector can be introduced without
// changing any participant's code.
type Relocator struct {
	mgr   *Manager
	roots map[uint64]bool
}

// Root marks r as reachable for the duration of the current collection
// pass.
func (rl *Relocator) Root(r Ref) {
	if r.IsNull() {
		return
	}
	rl.roots[r.id] = true
}

// Relocate returns the Ref that r now resolves to. Call this on every stored
// Ref during GCCollect, even ones already passed to Root, and keep the
// returned value in place of the old one.
func (rl *Relocator) Relocate(r Ref) Ref {
	return r
}

// RegisterGCParticipant adds p to the set of collaborators consulted during
// Collect.
func (m *Manager) RegisterGCParticipant(p GCParticipant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participants = append(m.participants, p)
}

// Root increments the external reference count on r, keeping it (and its
// transitive children) alive across Collect passes even if no participant
// roots it directly. Unroot must be called an equal number of times to
// release it.
func (m *Manager) Root(r Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.nodes[r.id]; n != nil {
		n.refCount++
	}
}

// Unroot releases one Root call on r.
func (m *Manager) Unroot(r Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.nodes[r.id]; n != nil && n.refCount > 0 {
		n.refCount--
	}
}

// Collect walks every registered participant to discover the current root
// set, marks everything reachable from those roots (and from manually
// Root()-ed nodes) live, and drops the hash-cons entries for everything
// else. It is safe to call only when the engine is idle between SMT checks.
func (m *Manager) Collect() {
	rl := &Relocator{mgr: m, roots: make(map[uint64]bool)}

	m.mu.Lock()
	participants := make([]GCParticipant, len(m.participants))
	copy(participants, m.participants)
	m.mu.Unlock()

	for _, p := range participants {
		p.GCCollect(rl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.nodes {
		if n.refCount > 0 {
			rl.roots[id] = true
		}
	}

	live := make(map[uint64]bool)
	var mark func(id uint64)
	mark = func(id uint64) {
		if live[id] {
			return
		}
		live[id] = true
		n := m.nodes[id]
		if n == nil {
			return
		}
		for _, c := range n.children {
			mark(c.id)
		}
	}
	for id := range rl.roots {
		mark(id)
	}

	for id, n := range m.nodes {
		if !live[id] {
			n.live = false
			delete(m.nodes, id)
		}
	}
	for k, id := range m.byKey {
		if !live[id] {
			delete(m.byKey, k)
		}
	}
	m.generation++
}
