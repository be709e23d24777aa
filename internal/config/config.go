// Package config loads the optional TOML configuration file and layers
// explicit CLI flags over it (spec §6 external interfaces), mirroring
// the teacher's nested section-struct DefaultConfig() pattern.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/MasterLogick/MultiChord/internal/chord"
)

// NodeSection holds the [node] settings. Bootstraps seeds the pool;
// BindAddress is parsed but not used, since the CLI binds to its
// positional IP and PORT arguments.
type NodeSection struct {
	BindAddress string   `toml:"bind_address"`
	Bootstraps  []string `toml:"bootstraps"`
}

// TimingsSection holds the four stabilization/timeout durations, in
// seconds, matching spec §6's float-seconds CLI flags.
type TimingsSection struct {
	StabilizeInterval float64 `toml:"stabilize_interval"`
	LiveInterval      float64 `toml:"live_interval"`
	CommandTimeout    float64 `toml:"command_timeout"`
	GetDataTimeout    float64 `toml:"get_data_timeout"`
}

// StatusSection configures the ambient debug/metrics HTTP surface.
type StatusSection struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Metrics     bool   `toml:"metrics"`
}

// Config is the full, layered configuration for one pool process.
type Config struct {
	Node    NodeSection    `toml:"node"`
	Timings TimingsSection `toml:"timings"`
	Status  StatusSection  `toml:"status"`
}

// DefaultConfig returns the spec's documented defaults: all timings at
// one second, status server disabled.
func DefaultConfig() Config {
	return Config{
		Timings: TimingsSection{
			StabilizeInterval: 1.0,
			LiveInterval:      1.0,
			CommandTimeout:    1.0,
			GetDataTimeout:    1.0,
		},
		Status: StatusSection{
			BindAddress: "127.0.0.1:9090",
		},
	}
}

// Load reads an optional TOML file at path over DefaultConfig. A missing
// path is not an error — the caller simply gets the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyFlags overrides cfg with any CLI flags the operator explicitly
// set, leaving file/default values alone otherwise — cobra's
// Flags().Changed is how the teacher's own CLI distinguishes "set" from
// "left at zero value".
func (c *Config) ApplyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("bootstrap") {
		if v, err := flags.GetStringArray("bootstrap"); err == nil {
			c.Node.Bootstraps = v
		}
	}
	if flags.Changed("stabilize-interval") {
		if v, err := flags.GetFloat64("stabilize-interval"); err == nil {
			c.Timings.StabilizeInterval = v
		}
	}
	if flags.Changed("live-interval") {
		if v, err := flags.GetFloat64("live-interval"); err == nil {
			c.Timings.LiveInterval = v
		}
	}
	if flags.Changed("command-interval") {
		if v, err := flags.GetFloat64("command-interval"); err == nil {
			c.Timings.CommandTimeout = v
		}
	}
	if flags.Changed("get-data-timeout") {
		if v, err := flags.GetFloat64("get-data-timeout"); err == nil {
			c.Timings.GetDataTimeout = v
		}
	}
	if flags.Changed("status-addr") {
		if v, err := flags.GetString("status-addr"); err == nil {
			c.Status.BindAddress = v
			c.Status.Enabled = true
		}
	}
	if flags.Changed("metrics") {
		if v, err := flags.GetBool("metrics"); err == nil {
			c.Status.Metrics = v
		}
	}
}

// ToTimings converts the TOML's float-seconds fields into chord.Timings.
func (c Config) ToTimings() chord.Timings {
	return chord.Timings{
		StabilizeInterval: secondsToDuration(c.Timings.StabilizeInterval),
		LiveInterval:      secondsToDuration(c.Timings.LiveInterval),
		CommandTimeout:    secondsToDuration(c.Timings.CommandTimeout),
		GetDataTimeout:    secondsToDuration(c.Timings.GetDataTimeout),
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
