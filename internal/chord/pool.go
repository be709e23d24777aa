package chord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/MasterLogick/MultiChord/internal/chordnet"
	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/ring"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// ErrDuplicateID is returned by HostVirtualNode when the pool already
// hosts a node with the requested identifier (spec §4.5, §7: "fatal for
// that host attempt").
var ErrDuplicateID = errors.New("chord: virtual node with this id is already hosted")

// Pool owns every virtual node hosted at one physical endpoint, answers
// the zero-node service, and dispatches inbound messages to the right
// hosted node (spec §3 NodePool, §4.5). It implements chordnet.Dispatcher
// and chord.Capabilities.
type Pool struct {
	instanceID string
	net        chordnet.Network
	timings    Timings
	bootstraps []peer.RemoteNode
	metrics    Metrics

	mu     sync.RWMutex
	hosted map[ring.ID]*hostedEntry
}

type hostedEntry struct {
	node   *Node
	cancel context.CancelFunc
}

// NewPool constructs a pool bound to net, using timings for every node it
// hosts, seeded with bootstraps (always addressed with ring.Zero, since
// their true identifier is unknown until a network walk learns it).
func NewPool(net chordnet.Network, timings Timings, bootstraps []string) *Pool {
	bs := make([]peer.RemoteNode, 0, len(bootstraps))
	for _, addr := range bootstraps {
		bs = append(bs, peer.RemoteNode{ID: ring.Zero, Address: addr})
	}
	return &Pool{
		instanceID: uuid.NewString(),
		net:        net,
		timings:    timings,
		bootstraps: bs,
		metrics:    noopMetrics{},
		hosted:     make(map[ring.ID]*hostedEntry),
	}
}

// InstanceID is a short identifier for this pool, woven into its log
// lines — useful when several pools run in one process (tests, or a
// single binary hosting more than one bind address).
func (p *Pool) InstanceID() string { return p.instanceID }

// SetMetrics attaches m as the pool's counter sink. Called once, at
// startup, by internal/status when --metrics is set; left at the default
// no-op otherwise.
func (p *Pool) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	p.metrics = m
}

// Send implements Capabilities and chordnet.Network by delegating to the
// underlying transport.
func (p *Pool) Send(ctx context.Context, remote peer.RemoteNode, msg wire.Message) {
	p.metrics.MessageSent()
	p.net.Send(ctx, remote, msg)
}

// Timings implements Capabilities.
func (p *Pool) Timings() Timings { return p.timings }

// Metrics implements Capabilities.
func (p *Pool) Metrics() Metrics { return p.metrics }

// Bootstraps implements Capabilities.
func (p *Pool) Bootstraps() []peer.RemoteNode {
	return append([]peer.RemoteNode(nil), p.bootstraps...)
}

// LocalGetPredOrEq implements Capabilities: the pool-wide best known peer
// at or before queryID, aggregated across every hosted node's local
// tables — used to seed a network walk (spec §4.9 step 1).
func (p *Pool) LocalGetPredOrEq(queryID ring.ID) *peer.RemoteNode {
	return p.poolGetNode(queryID)
}

// poolGetNode aggregates every hosted node's localGetPredOrEq for the
// half-open interval up to and including queryID (queryID.Advance(1) as
// the exclusive bound), keeping whichever candidate is closest to it.
func (p *Pool) poolGetNode(queryID ring.ID) *peer.RemoteNode {
	bound := queryID.Advance(1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	var resp *peer.RemoteNode
	for _, entry := range p.hosted {
		r := entry.node.localGetPredOrEq(bound)
		if r != nil && (resp == nil || r.ID.InRange(resp.ID, bound)) {
			resp = r
		}
	}
	return resp
}

// HostVirtualNode begins hosting id, backed by file, and starts its
// stabilization loop under ctx. Returns ErrDuplicateID if id is already
// hosted in this pool.
func (p *Pool) HostVirtualNode(ctx context.Context, id ring.ID, file io.ReadWriteSeeker, hasContent bool) error {
	p.mu.Lock()
	if _, exists := p.hosted[id]; exists {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	node := NewNode(id, file, hasContent, p)
	nodeCtx, cancel := context.WithCancel(ctx)
	p.hosted[id] = &hostedEntry{node: node, cancel: cancel}
	p.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[pool %s] stabilization task for %s panicked: %v", p.instanceID[:8], id, r)
			}
		}()
		node.Run(nodeCtx)
	}()

	log.Printf("[pool %s] hosting virtual node %s", p.instanceID[:8], id)
	return nil
}

// HostedNodes returns a copy of the map from identifier to hosted node.
// The CLI and the status server read node state through Snapshot instead.
func (p *Pool) HostedNodes() map[ring.ID]*Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[ring.ID]*Node, len(p.hosted))
	for id, e := range p.hosted {
		out[id] = e.node
	}
	return out
}

// Shutdown cancels every hosted node's stabilization task.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.hosted {
		e.cancel()
	}
}

// Dispatch implements chordnet.Dispatcher (spec §4.5's process_message).
func (p *Pool) Dispatch(remote peer.RemoteNode, msg wire.Message) {
	p.metrics.MessageReceived()
	if msg.ToID.IsZero() {
		p.dispatchZero(remote, msg)
		return
	}

	p.mu.RLock()
	entry, ok := p.hosted[msg.ToID]
	p.mu.RUnlock()
	if !ok {
		return
	}
	entry.node.Dispatch(remote, msg)
}

// dispatchZero implements the zero-node service (spec §4.5): answers
// PingReq and GetNodeReq addressed to the all-zero identifier, shared by
// every pool.
func (p *Pool) dispatchZero(remote peer.RemoteNode, msg wire.Message) {
	switch msg.Command {
	case wire.PingReq:
		p.net.Send(context.Background(), remote, wire.NewPingResp(ring.Zero, remote.ID))

	case wire.GetNodeReq:
		resp := p.poolGetNode(msg.QueryID)

		// A hosted node's own identifier wins over whatever the
		// aggregated local search found, if it lies in (resp, query]
		// (spec §4.5: "host prefers its own ids"). Mirrors the
		// original's break-on-first-match: only one hosted id can win.
		p.mu.RLock()
		for id := range p.hosted {
			if resp == nil || id.InRange(resp.ID, msg.QueryID.Advance(1)) {
				r := peer.RemoteNode{ID: id, Address: ""}
				resp = &r
				break
			}
		}
		p.mu.RUnlock()

		var node peer.RemoteNode
		if resp != nil {
			node = *resp
		} else {
			node = peer.RemoteNode{ID: ring.Zero, Address: ""}
		}
		p.net.Send(context.Background(), remote, wire.NewGetNodeResp(ring.Zero, remote.ID, node))
	}
}
