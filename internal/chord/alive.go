package chord

import (
	"context"
	"time"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// aliveEntry is a routing-table slot: a RemoteNode plus liveness
// bookkeeping (spec §3 AliveRemoteNode). timeout is the instant at which
// the entry's trust expires; sentPing marks that a liveness probe is
// already outstanding, so a second expiry without a reply means dead.
type aliveEntry struct {
	peer.RemoteNode
	timeout  time.Time
	sentPing bool
}

// newAliveEntry wraps remote fresh, trusted for commandTimeout.
func newAliveEntry(remote peer.RemoteNode, commandTimeout time.Duration) *aliveEntry {
	return &aliveEntry{RemoteNode: remote, timeout: time.Now().Add(commandTimeout)}
}

// touch resets an entry to fully trusted. checkAlive calls it when a
// liveness probe is answered; no other message from the peer, including a
// PingReq handled by tryStabilizeWithRemote, refreshes an entry already
// in the routing tables.
func (e *aliveEntry) touch(commandTimeout time.Duration) {
	e.timeout = time.Now().Add(commandTimeout)
	e.sentPing = false
}

// checkAlive implements spec §4.10. A nil entry is never alive. An entry
// still inside its trust window is alive without any network activity.
// Past the window, the first expiry sends a probe and extends the
// window once; a second expiry with no reply declares the entry dead.
func (n *Node) checkAlive(ctx context.Context, e *aliveEntry) bool {
	if e == nil {
		return false
	}
	if time.Now().Before(e.timeout) {
		return true
	}
	if e.sentPing {
		return false
	}

	e.sentPing = true
	e.timeout = time.Now().Add(n.caps.Timings().CommandTimeout)

	resp := n.sendRequest(ctx, e.RemoteNode, wire.NewPingReq(n.id, e.ID), n.caps.Timings().CommandTimeout)
	if resp == nil || resp.Command != wire.PingResp {
		return false
	}
	e.touch(n.caps.Timings().CommandTimeout)
	return true
}
