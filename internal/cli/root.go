// Package cli is the MultiChord command-line frontend: a cobra root
// command that parses the positional bind address and scenario/timing
// flags (spec §6), then hands off to an interactive command shell with
// the grammar host-local|hl|host, join-remote|jr,
// list-virtual-nodes|lvn|ls, help|h, exit|e|q.
package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/MasterLogick/MultiChord/internal/chord"
	"github.com/MasterLogick/MultiChord/internal/config"
	"github.com/MasterLogick/MultiChord/internal/ring"
	"github.com/MasterLogick/MultiChord/internal/status"
	"github.com/MasterLogick/MultiChord/internal/udp"
)

var rootCmd = &cobra.Command{
	Use:   "multichord IP PORT",
	Short: "Host a content-addressed Chord overlay pool",
	Long: `multichord hosts a pool of virtual nodes on a single UDP endpoint,
each participating in a 512-bit Chord-style identifier ring. Virtual nodes
sharing an identifier form a swarm that gossips membership and exchanges
the content whose SHA3-512 hash equals that identifier.`,
	Args: cobra.ExactArgs(2),
	RunE: runRoot,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringArray("bootstrap", nil, "host:port of a bootstrap peer (repeatable)")
	flags.Float64("stabilize-interval", 1.0, "seconds between stabilization passes")
	flags.Float64("live-interval", 1.0, "seconds a routing entry is trusted before re-probing")
	flags.Float64("command-interval", 1.0, "seconds before an ordinary RPC times out")
	flags.Float64("get-data-timeout", 1.0, "seconds before a content fetch times out")
	flags.String("config", "", "path to an optional TOML config file")
	flags.String("status-addr", "", "bind address for the local debug/metrics HTTP server")
	flags.Bool("metrics", false, "expose Prometheus metrics on the status server")

	flags.Bool("scenario-host-random", false, "host a 64-byte random blob at startup")
	flags.String("scenario-local-file", "", "host the content of PATH at startup")
	flags.StringArray("scenario-join-remote", nil, "give twice, first ID_HEX then PATH: join an existing identifier, writing fetched content to PATH (any other count is ignored)")
}

// Execute runs the root command, which reads os.Args itself; the caller
// (cmd/multichord) only reports a nonzero exit code on error.
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	ip := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	bindAddr := net.JoinHostPort(ip, strconv.Itoa(port))

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	transport, err := udp.Listen(bindAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", bindAddr, err)
	}
	defer transport.Close()

	pool := chord.NewPool(transport, cfg.ToTimings(), cfg.Node.Bootstraps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := transport.Serve(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "[udp] serve: %v\n", err)
		}
	}()

	if cfg.Status.Enabled {
		startStatusServer(ctx, pool, cfg)
	}

	if err := runScenarios(ctx, cmd, pool); err != nil {
		return err
	}

	sh := newShell(pool)
	return sh.run(ctx)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyFlags(cmd)
	return cfg, nil
}

func startStatusServer(ctx context.Context, pool *chord.Pool, cfg config.Config) {
	var reg *prometheus.Registry
	var metrics *status.Metrics
	if cfg.Status.Metrics {
		reg = prometheus.NewRegistry()
		metrics = status.NewMetrics(reg)
	}
	srv := status.NewServer(pool, reg, metrics, cfg.Status.Metrics)

	httpServer := &http.Server{Addr: cfg.Status.BindAddress, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "[status] serve: %v\n", err)
		}
	}()
}

// parseID parses a hex-encoded 64-byte identifier from CLI input.
func parseID(hexID string) (ring.ID, error) {
	return ring.FromHex(hexID)
}
