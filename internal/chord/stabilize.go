package chord

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// Run drives the periodic stabilization loop for n until ctx is
// cancelled (spec §4.9, §5 "cancellation": stabilization tasks are
// terminated when the pool shuts down). A panic or logged error in one
// pass never escapes — a single virtual node's failure must not take
// down its siblings.
func (n *Node) Run(ctx context.Context) {
	timings := n.caps.Timings()
	for {
		n.runPass(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(timings.StabilizeInterval):
		}
	}
}

func (n *Node) runPass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[stabilize %s] recovered: %v", n.id, r)
		}
	}()

	for i := 0; i < FingerCount; i++ {
		n.mu.Lock()
		current := n.fingers[i]
		n.mu.Unlock()

		updated := n.stabilizeFromBelow(ctx, current, n.fingerIdeal(i))

		n.mu.Lock()
		n.fingers[i] = updated
		n.mu.Unlock()
	}

	n.mu.Lock()
	pred := n.predecessor
	n.mu.Unlock()
	pred = n.stabilizeFromBelow(ctx, pred, n.id.Advance(-1))
	n.mu.Lock()
	n.predecessor = pred
	n.mu.Unlock()

	n.stabilizeSuccessor(ctx)

	n.mu.Lock()
	swarmEmpty := len(n.swarm) == 0
	n.mu.Unlock()
	if swarmEmpty {
		found := n.networkGetPredOrEq(ctx, n.id)
		if found != nil && found.ID == n.id {
			n.mu.Lock()
			n.swarm = append(n.swarm, newAliveEntry(*found, n.caps.Timings().LiveInterval))
			n.mu.Unlock()
		}
	}

	n.updateSwarm(ctx)
	n.fetchContentIfMissing(ctx)

	n.caps.Metrics().StabilizationPass()
}

// updateSwarm implements spec §4.9's swarm refresh: ask every current
// member for its swarm list, union the returned addresses with every
// current member (answering or not), ping
// every candidate, and keep only the survivors.
func (n *Node) updateSwarm(ctx context.Context) {
	n.mu.Lock()
	members := append([]*aliveEntry(nil), n.swarm...)
	n.mu.Unlock()

	candidates := make(map[string]struct{})
	for _, m := range members {
		candidates[m.Address] = struct{}{}
		resp := n.sendRequest(ctx, m.RemoteNode, wire.NewGetSwarmReq(n.id, m.ID), n.caps.Timings().CommandTimeout)
		if resp == nil {
			continue
		}
		for _, s := range resp.Swarm {
			candidates[s.Address] = struct{}{}
		}
	}

	survivors := n.filterSwarm(ctx, candidates)
	n.mu.Lock()
	n.swarm = survivors
	n.mu.Unlock()
}

// filterSwarm pings every candidate address in parallel and returns
// fresh alive entries for the survivors. The source spawns all pings
// then awaits sequentially (effectively serializing them); we await
// genuinely in parallel instead, which spec §9 notes is an acceptable,
// behaviorally equivalent choice under the one-outstanding-per-peer
// rule.
func (n *Node) filterSwarm(ctx context.Context, candidates map[string]struct{}) []*aliveEntry {
	type result struct {
		addr string
		ok   bool
	}
	results := make(chan result, len(candidates))
	var wg sync.WaitGroup
	for addr := range candidates {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			remote := peer.RemoteNode{ID: n.id, Address: addr}
			resp := n.sendRequest(ctx, remote, wire.NewPingReq(n.id, n.id), n.caps.Timings().CommandTimeout)
			results <- result{addr: addr, ok: resp != nil}
		}(addr)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	live := n.caps.Timings().LiveInterval
	var survivors []*aliveEntry
	for r := range results {
		if !r.ok {
			continue
		}
		survivors = append(survivors, newAliveEntry(peer.RemoteNode{ID: n.id, Address: r.addr}, live))
	}
	return survivors
}

// fetchContentIfMissing implements spec §4.9 step 6: iterate swarm
// members requesting content until one returns a non-empty payload.
func (n *Node) fetchContentIfMissing(ctx context.Context) {
	n.mu.Lock()
	has := n.hasContent
	members := append([]*aliveEntry(nil), n.swarm...)
	n.mu.Unlock()
	if has {
		return
	}

	for _, m := range members {
		resp := n.sendRequest(ctx, m.RemoteNode, wire.NewGetContentReq(n.id, m.ID), n.caps.Timings().GetDataTimeout)
		if resp == nil || len(resp.Data) == 0 {
			continue
		}
		n.verifyAndStoreContent(resp.Data)
		return
	}
}
