package chord

import (
	"context"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/ring"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

// Capabilities is the narrow slice of pool functionality a hosted node
// needs — sending, shared timings, the bootstrap list, and the pool-wide
// local lookup used to seed network walks. Passed to a node at
// construction instead of a mutable back-pointer to the whole pool (spec
// §9 design note: "prefer passing the pool, or a narrow capability
// bundle... avoid a mutable back-pointer").
type Capabilities interface {
	Send(ctx context.Context, remote peer.RemoteNode, msg wire.Message)
	Timings() Timings
	Bootstraps() []peer.RemoteNode
	// LocalGetPredOrEq is the pool-wide best known peer at or before
	// queryID, aggregated across every hosted node's local tables. Nil
	// means the pool knows nothing.
	LocalGetPredOrEq(queryID ring.ID) *peer.RemoteNode
	// Metrics is the counter sink requests report against. Never nil.
	Metrics() Metrics
}
