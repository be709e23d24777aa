// Package peer holds the remote-peer descriptor (spec §4.3). It is a leaf
// package — no dependency on the wire codec or the network interface — so
// both can depend on it without creating an import cycle, mirroring the
// teacher's internal/domain layering (pure types depended on by everything
// else, dependent on nothing).
package peer

import "github.com/MasterLogick/MultiChord/internal/ring"

// RemoteNode is a (id, address) handle for a peer. Two peers at the same
// address but different identifiers are distinct; equality compares both
// fields, which makes RemoteNode usable as a map key for per-peer
// bookkeeping (pending requests, swarm membership).
type RemoteNode struct {
	ID      ring.ID
	Address string // "host:port"
}

// Zero is the "I know nothing" sentinel: the zero identifier paired with
// an empty address (spec §3).
var Zero = RemoteNode{ID: ring.Zero, Address: ""}

// IsZero reports whether r carries the zero identifier. Bootstraps also
// carry ring.Zero (their true id is unknown), so IsZero alone does not
// distinguish "no peer" from "unresolved bootstrap" — callers must track
// that distinction separately where it matters (see chord's networkGetPredOrEq).
func (r RemoteNode) IsZero() bool {
	return r.ID.IsZero()
}

// String renders a remote node for logs.
func (r RemoteNode) String() string {
	return r.ID.String() + "@" + r.Address
}
