// Package chord implements the per-virtual-node routing engine and the
// node pool that multiplexes many virtual nodes over one endpoint (spec
// §4.5-§4.10): finger tables, predecessor/successor stabilization,
// liveness tracking, request/response correlation, and the content-fetch
// and swarm-gossip protocol layered on top of routing.
package chord

import (
	"context"
	"crypto/sha3"
	"io"
	"log"
	"math/rand"
	"sync"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/ring"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// randIntn picks a uniform index in [0, n) for random bootstrap
// selection (spec §4.9 "pick a random bootstrap").
func randIntn(n int) int { return rand.Intn(n) }

// FingerCount is the number of finger-table slots a node maintains.
// Fingers cover only the top FingerCount bits of the 512-bit ring — a
// deliberate simplification that bounds table size at the cost of extra
// lookup hops for the untouched low bits.
const FingerCount = 10

// Node is one locally hosted ring participant (spec §3 HostedVirtualNode).
type Node struct {
	id   ring.ID
	caps Capabilities

	mu          sync.Mutex
	file        io.ReadWriteSeeker
	hasContent  bool
	predecessor *aliveEntry
	successor   *aliveEntry
	fingers     [FingerCount]*aliveEntry
	swarm       []*aliveEntry
	pending     map[peer.RemoteNode]*pendingRequest
}

// NewNode constructs a hosted virtual node for id, backed by file. file
// may be nil only for a node that never receives content: storing fetched
// content seeks and writes it. caps is the capability bundle
// through which the node reaches the pool — see Capabilities.
func NewNode(id ring.ID, file io.ReadWriteSeeker, hasContent bool, caps Capabilities) *Node {
	return &Node{
		id:         id,
		caps:       caps,
		file:       file,
		hasContent: hasContent,
		pending:    make(map[peer.RemoteNode]*pendingRequest),
	}
}

// ID reports the node's fixed ring identifier.
func (n *Node) ID() ring.ID { return n.id }

// fingerIdeal is the ideal identifier for finger i: self + 2^(512-F+i).
func (n *Node) fingerIdeal(i int) ring.ID {
	return n.id.AddPow2(ring.Bits - FingerCount + i)
}

// Dispatch handles an inbound message addressed to this node (spec §4.7).
// The pool routes here after resolving msg.ToID to this node's id.
func (n *Node) Dispatch(remote peer.RemoteNode, msg wire.Message) {
	if msg.Command.IsResponse() {
		n.handleResponse(remote, msg)
		return
	}

	switch msg.Command {
	case wire.PingReq:
		n.tryStabilizeWithRemote(remote)
		n.caps.Send(context.Background(), remote, wire.NewPingResp(n.id, remote.ID))

	case wire.GetSwarmReq:
		n.mu.Lock()
		members := make([]peer.RemoteNode, 0, len(n.swarm))
		for _, s := range n.swarm {
			members = append(members, s.RemoteNode)
		}
		n.mu.Unlock()
		n.caps.Send(context.Background(), remote, wire.NewGetSwarmResp(n.id, remote.ID, members))

	case wire.GetContentReq:
		n.mu.Lock()
		has := n.hasContent
		var data []byte
		if has {
			if _, err := n.file.Seek(0, io.SeekStart); err != nil {
				log.Printf("[node %s] seek content for read: %v", n.id, err)
				has = false
			} else {
				b, err := io.ReadAll(n.file)
				if err != nil {
					log.Printf("[node %s] read content: %v", n.id, err)
					has = false
				} else {
					data = b
				}
			}
		}
		n.mu.Unlock()
		if !has {
			data = nil
		}
		n.caps.Send(context.Background(), remote, wire.NewGetContentResp(n.id, remote.ID, data))
	}
}

// tryStabilizeWithRemote folds a known-live peer into the routing tables
// (spec §4.8). Called opportunistically whenever a PingReq arrives, and
// explicitly by the stabilization loop after a successful RPC.
func (n *Node) tryStabilizeWithRemote(remote peer.RemoteNode) {
	n.mu.Lock()
	defer n.mu.Unlock()

	live := n.caps.Timings().LiveInterval

	if remote.ID != n.id {
		if n.predecessor == nil || remote.ID.InRange(n.predecessor.ID, n.id) {
			n.predecessor = newAliveEntry(remote, live)
		}
		if n.successor == nil || remote.ID.InRange(n.id, n.successor.ID) {
			n.successor = newAliveEntry(remote, live)
		}
	}

	for i := 0; i < FingerCount; i++ {
		ideal := n.fingerIdeal(i)
		f := n.fingers[i]
		switch {
		case f != nil && remote.ID.InRange(f.ID, ideal):
			n.fingers[i] = newAliveEntry(remote, live)
		case f == nil && remote.ID.InRange(n.id, ideal):
			n.fingers[i] = newAliveEntry(remote, live)
		}
	}

	if remote.ID == n.id {
		for _, s := range n.swarm {
			if s.Address == remote.Address {
				return
			}
		}
		n.swarm = append(n.swarm, newAliveEntry(remote, live))
	}
}

// localGetPredOrEq returns this node's own closest-known predecessor-or-
// equal of queryID, scanned over predecessor, fingers (highest first),
// and successor — the same order the original search walks in, so ties
// resolve towards the narrowest known interval first.
func (n *Node) localGetPredOrEq(queryID ring.ID) *peer.RemoteNode {
	n.mu.Lock()
	defer n.mu.Unlock()

	candidates := make([]*aliveEntry, 0, FingerCount+2)
	candidates = append(candidates, n.predecessor)
	for i := FingerCount - 1; i >= 0; i-- {
		candidates = append(candidates, n.fingers[i])
	}
	candidates = append(candidates, n.successor)

	for _, c := range candidates {
		if c == nil {
			continue
		}
		if queryID.InRange(c.ID.Advance(-1), n.id) {
			r := c.RemoteNode
			return &r
		}
	}
	return nil
}

// remoteGetNode asks remote (via its pool's zero-node service) for its
// closest predecessor-or-equal of queryID. A zero-identifier reply means
// "I know nothing", surfaced here as nil per spec §4.9.
func (n *Node) remoteGetNode(ctx context.Context, remote peer.RemoteNode, queryID ring.ID) *peer.RemoteNode {
	zeroAddressed := peer.RemoteNode{ID: ring.Zero, Address: remote.Address}
	req := wire.NewGetNodeReq(n.id, ring.Zero, queryID)
	resp := n.sendRequest(ctx, zeroAddressed, req, n.caps.Timings().CommandTimeout)
	if resp == nil || resp.Node.ID.IsZero() {
		return nil
	}
	node := resp.Node
	return &node
}

// networkGetPredOrEq is the iterative closest-preceding-finger search
// across the federation (spec §4.9).
func (n *Node) networkGetPredOrEq(ctx context.Context, queryID ring.ID) *peer.RemoteNode {
	start := n.caps.LocalGetPredOrEq(queryID)
	fromBootstrap := false
	if start == nil {
		bootstraps := n.caps.Bootstraps()
		if len(bootstraps) == 0 {
			return nil
		}
		b := bootstraps[randIntn(len(bootstraps))]
		start = &b
		fromBootstrap = true
	}

	for {
		next := n.remoteGetNode(ctx, *start, queryID)
		if next == nil {
			if fromBootstrap || start.ID == n.id {
				return nil
			}
			return start
		}
		if next.ID == queryID {
			return next
		}
		if fromBootstrap || next.ID.InRange(start.ID, queryID) {
			start = next
			fromBootstrap = false
			continue
		}
		if start.ID == n.id {
			return nil
		}
		return start
	}
}

// stabilizeFromBelow implements spec §4.9's stabilize_from_below: refresh
// or replace current with a better candidate for ideal.
func (n *Node) stabilizeFromBelow(ctx context.Context, current *aliveEntry, ideal ring.ID) *aliveEntry {
	if !n.checkAlive(ctx, current) {
		found := n.networkGetPredOrEq(ctx, ideal)
		if found == nil {
			return nil
		}
		return newAliveEntry(*found, n.caps.Timings().LiveInterval)
	}

	successor := n.remoteGetNode(ctx, current.RemoteNode, ideal)
	if successor != nil && successor.ID.InRange(current.ID, ideal.Advance(1)) {
		return newAliveEntry(*successor, n.caps.Timings().LiveInterval)
	}
	return current
}

// stabilizeSuccessor implements spec §4.9's successor stabilization walk.
func (n *Node) stabilizeSuccessor(ctx context.Context) {
	n.mu.Lock()
	successor := n.successor
	n.mu.Unlock()

	if !n.checkAlive(ctx, successor) {
		n.mu.Lock()
		n.successor = nil
		var restart *aliveEntry
		for _, f := range n.fingers {
			if f != nil {
				restart = f
				break
			}
		}
		n.mu.Unlock()
		if restart == nil {
			return
		}
		successor = restart
	}

	candidate := successor.RemoteNode
	for {
		next := n.remoteGetNode(ctx, candidate, candidate.ID.Advance(-1))
		if next != nil && next.ID.InRange(n.id, candidate.ID) {
			candidate = *next
			continue
		}
		n.mu.Lock()
		n.successor = newAliveEntry(candidate, n.caps.Timings().LiveInterval)
		n.mu.Unlock()
		return
	}
}

// verifyAndStoreContent writes data to the node's file, marks it hosted,
// and checks the SHA3-512 digest against the node's identifier — logging
// a mismatch without rejecting the content (spec §9 open question,
// resolved here to match the source's log-but-keep policy; see
// DESIGN.md).
func (n *Node) verifyAndStoreContent(data []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.file.Seek(0, io.SeekStart); err != nil {
		log.Printf("[node %s] seek content for write: %v", n.id, err)
		return
	}
	if _, err := n.file.Write(data); err != nil {
		log.Printf("[node %s] write content: %v", n.id, err)
		return
	}
	n.hasContent = true

	digest := sha3.Sum512(data)
	if ring.FromBytes(digest[:]) != n.id {
		log.Printf("[node %s] content hash mismatch", n.id)
	} else {
		log.Printf("[node %s] got valid content", n.id)
	}
}
