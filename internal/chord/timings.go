package chord

import "time"

// Timings bundles the four durations that pace a virtual node: how often
// it stabilizes, how long a routing-table entry is trusted before it is
// probed again, and the RPC timeouts for ordinary commands versus content
// transfer (spec §3, §7). All four default to one second, mirroring the
// teacher's DefaultConfig()-style constructors (gossip.DefaultConfig,
// dsa.DefaultHashRingConfig).
type Timings struct {
	StabilizeInterval time.Duration
	LiveInterval      time.Duration
	CommandTimeout    time.Duration
	GetDataTimeout    time.Duration
}

// DefaultTimings returns the spec's one-second-everywhere defaults.
func DefaultTimings() Timings {
	return Timings{
		StabilizeInterval: time.Second,
		LiveInterval:      time.Second,
		CommandTimeout:    time.Second,
		GetDataTimeout:    time.Second,
	}
}
