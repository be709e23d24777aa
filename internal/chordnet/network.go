// Package chordnet defines the abstract network contract the overlay
// sends through (spec §4.4). The concrete UDP backend lives in
// internal/udp; tests substitute an in-memory Network to drive the routing
// engine without a real socket.
package chordnet

import (
	"context"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// Network is the fire-and-forget send contract every virtual node and the
// pool transmit through: best-effort, may drop, never blocks waiting for a
// reply. Inbound delivery is not part of this interface — a concrete
// backend feeds parsed messages to a Dispatcher instead (see Dispatcher).
type Network interface {
	Send(ctx context.Context, remote peer.RemoteNode, msg wire.Message)
}

// Dispatcher receives a fully parsed inbound message and the RemoteNode it
// arrived from. internal/chord.Pool implements this; a transport backend
// (internal/udp) owns reassembly and parsing and calls Dispatch for every
// complete message it recovers (spec §4.4's "inbound path").
type Dispatcher interface {
	Dispatch(remote peer.RemoteNode, msg wire.Message)
}
