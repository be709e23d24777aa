package chord

import (
	"context"
	"sync"
	"time"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// pendingRequest is a one-shot completion signal for a request awaiting a
// matching response (spec §3 PendingRequest). settled is closed exactly
// once, by complete, after resp has been stored — any number of goroutines
// may select on settled without consuming anything, unlike a channel of
// values, which is what lets a second sendRequest call for the same peer
// simply wait the first one out instead of racing it for a single value.
type pendingRequest struct {
	kind    wire.Command
	settled chan struct{}
	once    sync.Once
	resp    *wire.Message
}

func newPendingRequest(kind wire.Command) *pendingRequest {
	return &pendingRequest{kind: kind, settled: make(chan struct{})}
}

// complete stores resp and wakes every waiter. Safe to call more than
// once or concurrently; only the first call has any effect.
func (p *pendingRequest) complete(resp *wire.Message) {
	p.once.Do(func() {
		p.resp = resp
		close(p.settled)
	})
}

// sendRequest implements spec §4.6's send_request: at most one request in
// flight per peer. A caller that finds a request already pending for the
// same remote waits for it to settle before issuing its own; if that wait
// itself times out, sendRequest gives up and returns nil without ever
// sending anything, rather than racing the existing request.
func (n *Node) sendRequest(ctx context.Context, remote peer.RemoteNode, req wire.Message, timeout time.Duration) *wire.Message {
	deadline := time.Now().Add(timeout)

	n.mu.Lock()
	existing := n.pending[remote]
	n.mu.Unlock()

	if existing != nil {
		if !waitUntil(ctx, existing.settled, timeout) {
			// The already-pending request did not settle within our own
			// timeout budget: spec §4.6 step 1 says to give up here,
			// without ever issuing our own request.
			n.caps.Metrics().RequestTimeout()
			return nil
		}
	}

	mine := newPendingRequest(req.Command)
	n.mu.Lock()
	n.pending[remote] = mine
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		if n.pending[remote] == mine {
			delete(n.pending, remote)
		}
		n.mu.Unlock()
	}()

	n.caps.Send(ctx, remote, req)

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	if !waitUntil(ctx, mine.settled, remaining) {
		n.caps.Metrics().RequestTimeout()
		return nil
	}
	return mine.resp
}

// waitUntil blocks until settled is closed, ctx is cancelled, or timeout
// elapses, reporting which happened first.
func waitUntil(ctx context.Context, settled <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-settled:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// handleResponse delivers resp to the pending request waiting on remote,
// if any. Responses with no matching pending entry (arrived too late, or
// for a request this node never made) are silently dropped, per spec §4.7.
func (n *Node) handleResponse(remote peer.RemoteNode, resp wire.Message) {
	n.mu.Lock()
	p := n.pending[remote]
	n.mu.Unlock()
	if p == nil || p.kind+1 != resp.Command {
		return
	}
	p.complete(&resp)
}
