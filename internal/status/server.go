// Package status is the ambient, local-only observability surface laid
// over a chord.Pool: a JSON dump of hosted virtual nodes and an optional
// Prometheus /metrics endpoint (SPEC_FULL.md's Status server addition).
// It never mutates pool state and never blocks a stabilization task.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MasterLogick/MultiChord/internal/chord"
)

// Metrics bundles the counters/gauges the rest of the codebase updates
// as the overlay runs — sent/received messages, pending-request
// timeouts, stabilization passes, swarm size.
type Metrics struct {
	MessagesSent        prometheus.Counter
	MessagesReceived    prometheus.Counter
	RequestTimeouts     prometheus.Counter
	StabilizationPasses prometheus.Counter
	SwarmSize           prometheus.Gauge
}

// NewMetrics registers the overlay's counters/gauges against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "multichord_messages_sent_total",
			Help: "Total wire messages sent.",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "multichord_messages_received_total",
			Help: "Total wire messages received.",
		}),
		RequestTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "multichord_request_timeouts_total",
			Help: "Total send_request calls that timed out.",
		}),
		StabilizationPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "multichord_stabilization_passes_total",
			Help: "Total completed stabilization passes across all hosted nodes.",
		}),
		SwarmSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "multichord_swarm_size",
			Help: "Size of the largest known swarm across hosted nodes.",
		}),
	}
}

// Server is the debug HTTP server. Unlike internal/api's
// externally-facing counterpart in the teacher, this binds to a purely
// local address and is disabled by default.
type Server struct {
	pool           *chord.Pool
	reg            *prometheus.Registry
	metrics        *Metrics
	metricsEnabled bool
}

// NewServer builds a status server over pool. reg and metrics may be nil
// when --metrics is not set; metrics is also attached to pool via
// pool.SetMetrics, so request/message counters update as the overlay runs.
func NewServer(pool *chord.Pool, reg *prometheus.Registry, metrics *Metrics, metricsEnabled bool) *Server {
	if metrics != nil {
		pool.SetMetrics(metrics)
	}
	return &Server{pool: pool, reg: reg, metrics: metrics, metricsEnabled: metricsEnabled}
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/status", s.handleStatus)
	if s.metricsEnabled && s.reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	views := s.pool.Snapshot()
	if s.metrics != nil {
		largest := 0
		for _, v := range views {
			if len(v.Swarm) > largest {
				largest = len(v.Swarm)
			}
		}
		s.metrics.SwarmSize.Set(float64(largest))
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// MessageSent implements chord.Metrics.
func (m *Metrics) MessageSent() { m.MessagesSent.Inc() }

// MessageReceived implements chord.Metrics.
func (m *Metrics) MessageReceived() { m.MessagesReceived.Inc() }

// RequestTimeout implements chord.Metrics.
func (m *Metrics) RequestTimeout() { m.RequestTimeouts.Inc() }

// StabilizationPass implements chord.Metrics.
func (m *Metrics) StabilizationPass() { m.StabilizationPasses.Inc() }
