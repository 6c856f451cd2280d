// Package telemetry serves pprof and the Prometheus metrics endpoint and
// holds the editor's counters.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/lyzr/entityeditor/common/config"
	"github.com/lyzr/entityeditor/common/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeBlocked  = "blocked"
	OutcomeRejected = "rejected"
)

// Metrics are the editor series exported on the metrics endpoint
type Metrics struct {
	SessionsActive   prometheus.Gauge
	SessionsStarted  *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	SubmitDuration   prometheus.Histogram
	SessionsEvicted  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "entityeditor_sessions_active",
			Help: "Editing sessions currently open.",
		}),
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entityeditor_sessions_started_total",
			Help: "Editing sessions started, by entity type.",
		}, []string{"entity_type"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entityeditor_commands_total",
			Help: "Commands dispatched to sessions, by op and outcome.",
		}, []string{"op", "outcome"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entityeditor_submissions_total",
			Help: "Submission attempts, by outcome.",
		}, []string{"outcome"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "entityeditor_submit_duration_seconds",
			Help:    "Time spent posting submissions.",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entityeditor_sessions_evicted_total",
			Help: "Idle sessions closed by the session manager.",
		}),
	}
	reg.MustRegister(
		m.SessionsActive,
		m.SessionsStarted,
		m.Commands,
		m.Submissions,
		m.SubmitDuration,
		m.SessionsEvicted,
	)
	return m
}

// Telemetry holds observability components. A nil *Telemetry is valid and
// records nothing, so callers need not check whether it was enabled.
type Telemetry struct {
	log         *logger.Logger
	cfg         config.TelemetryConfig
	pprofAddr   string
	metricsAddr string
	registry    *prometheus.Registry
	metrics     *Metrics

	mu      sync.Mutex
	servers []*http.Server
}

// New creates telemetry components with a private registry
func New(cfg config.TelemetryConfig, log *logger.Logger) *Telemetry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Telemetry{
		log:         log,
		cfg:         cfg,
		pprofAddr:   fmt.Sprintf("localhost:%d", cfg.PprofPort),
		metricsAddr: fmt.Sprintf(":%d", cfg.MetricsPort),
		registry:    reg,
		metrics:     newMetrics(reg),
	}
}

// Metrics returns the editor series
func (t *Telemetry) Metrics() *Metrics {
	if t == nil {
		return nil
	}
	return t.metrics
}

// Registry returns the registry the endpoint serves
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Handler serves the registry in the Prometheus exposition format
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Start starts the enabled endpoints. Listeners are bound before
// returning so a busy port is reported to the caller.
func (t *Telemetry) Start(ctx context.Context) error {
	if t.cfg.EnablePprof {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		if err := t.serve("pprof", t.pprofAddr, mux); err != nil {
			return err
		}
	}

	if t.cfg.EnableMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", t.Handler())
		if err := t.serve("metrics", t.metricsAddr, mux); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telemetry) serve(name, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s listener on %s: %w", name, addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	t.mu.Lock()
	t.servers = append(t.servers, srv)
	t.mu.Unlock()

	go func() {
		t.log.Info(name+" server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Error(name+" server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts the endpoints down
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	servers := t.servers
	t.servers = nil
	t.mu.Unlock()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SessionStarted records a new editing session
func (t *Telemetry) SessionStarted(entityType string) {
	if t == nil {
		return
	}
	t.metrics.SessionsActive.Inc()
	t.metrics.SessionsStarted.WithLabelValues(entityType).Inc()
}

// SessionClosed records a closed session; evicted marks TTL expiry
func (t *Telemetry) SessionClosed(evicted bool) {
	if t == nil {
		return
	}
	t.metrics.SessionsActive.Dec()
	if evicted {
		t.metrics.SessionsEvicted.Inc()
	}
}

// RecordCommand counts one dispatched command
func (t *Telemetry) RecordCommand(op string, err error) {
	if t == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	t.metrics.Commands.WithLabelValues(op, outcome).Inc()
}

// RecordSubmission counts one submission attempt and its duration
func (t *Telemetry) RecordSubmission(outcome string, start time.Time) {
	if t == nil {
		return
	}
	t.metrics.Submissions.WithLabelValues(outcome).Inc()
	t.metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	t.log.Debug("submission completed",
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
