package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestDefaultConfigTimings(t *testing.T) {
	cfg := DefaultConfig()
	timings := cfg.ToTimings()
	for _, d := range []time.Duration{
		timings.StabilizeInterval, timings.LiveInterval,
		timings.CommandTimeout, timings.GetDataTimeout,
	} {
		if d != time.Second {
			t.Errorf("expected 1s default, got %v", d)
		}
	}
	if cfg.Status.Enabled {
		t.Error("status server should be disabled by default")
	}
}

func TestLoadMissingPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	want := DefaultConfig()
	if cfg.Timings != want.Timings || cfg.Status != want.Status || cfg.Node.BindAddress != want.Node.BindAddress {
		t.Errorf("Load(\"\") = %+v, want defaults %+v", cfg, want)
	}
	if len(cfg.Node.Bootstraps) != 0 {
		t.Errorf("expected no bootstraps by default, got %v", cfg.Node.Bootstraps)
	}
}

func TestLoadParsesTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multichord.toml")
	contents := `
[node]
bind_address = "0.0.0.0:9000"
bootstraps = ["10.0.0.1:9000", "10.0.0.2:9000"]

[timings]
stabilize_interval = 2.5
live_interval = 5.0
command_timeout = 0.5
get_data_timeout = 3.0

[status]
enabled = true
bind_address = "127.0.0.1:8081"
metrics = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Node.BindAddress != "0.0.0.0:9000" {
		t.Errorf("bind address = %q", cfg.Node.BindAddress)
	}
	if len(cfg.Node.Bootstraps) != 2 {
		t.Fatalf("expected 2 bootstraps, got %d", len(cfg.Node.Bootstraps))
	}
	if !cfg.Status.Enabled || !cfg.Status.Metrics {
		t.Error("expected status enabled and metrics on")
	}
	timings := cfg.ToTimings()
	if timings.StabilizeInterval != 2500*time.Millisecond {
		t.Errorf("stabilize interval = %v", timings.StabilizeInterval)
	}
	if timings.CommandTimeout != 500*time.Millisecond {
		t.Errorf("command timeout = %v", timings.CommandTimeout)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("this is not [valid toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error loading malformed TOML")
	}
}

func newFlagTestCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	flags := cmd.Flags()
	flags.StringArray("bootstrap", nil, "")
	flags.Float64("stabilize-interval", 1.0, "")
	flags.Float64("live-interval", 1.0, "")
	flags.Float64("command-interval", 1.0, "")
	flags.Float64("get-data-timeout", 1.0, "")
	flags.String("status-addr", "", "")
	flags.Bool("metrics", false, "")
	return cmd
}

func TestApplyFlagsOnlyOverridesExplicitlySetFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.BindAddress = "keep-me:1234"

	cmd := newFlagTestCmd()
	if err := cmd.Flags().Set("command-interval", "0.25"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	cfg.ApplyFlags(cmd)

	if cfg.Node.BindAddress != "keep-me:1234" {
		t.Errorf("unrelated field was overwritten: %q", cfg.Node.BindAddress)
	}
	if cfg.Timings.CommandTimeout != 0.25 {
		t.Errorf("command timeout = %v, want 0.25", cfg.Timings.CommandTimeout)
	}
	if cfg.Timings.StabilizeInterval != 1.0 {
		t.Errorf("unset flag should not change stabilize interval, got %v", cfg.Timings.StabilizeInterval)
	}
}

func TestApplyFlagsStatusAddrEnablesStatusServer(t *testing.T) {
	cfg := DefaultConfig()
	cmd := newFlagTestCmd()
	if err := cmd.Flags().Set("status-addr", "127.0.0.1:9999"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	cfg.ApplyFlags(cmd)

	if !cfg.Status.Enabled {
		t.Error("setting --status-addr should enable the status server")
	}
	if cfg.Status.BindAddress != "127.0.0.1:9999" {
		t.Errorf("status bind address = %q", cfg.Status.BindAddress)
	}
}
