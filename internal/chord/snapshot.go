package chord

// NodeSnapshot is a read-only view of a hosted node's routing state, for
// the CLI's list-virtual-nodes command and the status server — neither
// of which may mutate pool state.
type NodeSnapshot struct {
	ID          string   `json:"id"`
	HasContent  bool     `json:"has_content"`
	Predecessor string   `json:"predecessor,omitempty"`
	Successor   string   `json:"successor,omitempty"`
	Fingers     []string `json:"fingers,omitempty"`
	Swarm       []string `json:"swarm,omitempty"`
}

// Snapshot captures n's current routing state.
func (n *Node) Snapshot() NodeSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := NodeSnapshot{ID: n.id.Hex(), HasContent: n.hasContent}
	if n.predecessor != nil {
		s.Predecessor = n.predecessor.String()
	}
	if n.successor != nil {
		s.Successor = n.successor.String()
	}
	for _, f := range n.fingers {
		if f != nil {
			s.Fingers = append(s.Fingers, f.String())
		}
	}
	for _, m := range n.swarm {
		s.Swarm = append(s.Swarm, m.Address)
	}
	return s
}

// Snapshot returns a snapshot of every hosted node, for the status
// server and the CLI.
func (p *Pool) Snapshot() []NodeSnapshot {
	p.mu.RLock()
	entries := make([]*hostedEntry, 0, len(p.hosted))
	for _, e := range p.hosted {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	out := make([]NodeSnapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.node.Snapshot())
	}
	return out
}
