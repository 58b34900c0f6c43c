// Package metrics exposes Prometheus collectors for the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moonkv"

// Command outcome labels
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Registry holds all application metrics
type Registry struct {
	registry *prometheus.Registry

	commandsTotal     *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	protocolErrors    prometheus.Counter
	expiredKeys       prometheus.Counter
}

// New creates the collectors and registers them, along with the Go runtime collectors,
// in a private registry
func New() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands processed, by command name and outcome",
		}, []string{"command", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency",
			Buckets:   prometheus.ExponentialBuckets(0.000005, 4, 8),
		}, []string{"command"}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted since start",
		}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Requests rejected because their bytes could not be decoded",
		}),
		expiredKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_keys_total",
			Help:      "Keys reclaimed by the background expiration sweep",
		}),
	}

	r.registry.MustRegister(
		r.commandsTotal,
		r.commandDuration,
		r.connectionsActive,
		r.connectionsTotal,
		r.protocolErrors,
		r.expiredKeys,
		collectors.NewGoCollector(),
	)

	return r
}

// ObserveCommand records one executed command
func (r *Registry) ObserveCommand(name string, failed bool, elapsed time.Duration) {
	status := StatusOK
	if failed {
		status = StatusError
	}
	r.commandsTotal.WithLabelValues(name, status).Inc()
	r.commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ConnectionOpened tracks a newly accepted connection
func (r *Registry) ConnectionOpened() {
	r.connectionsTotal.Inc()
	r.connectionsActive.Inc()
}

// ConnectionClosed tracks a finished connection
func (r *Registry) ConnectionClosed() {
	r.connectionsActive.Dec()
}

func (r *Registry) ProtocolError() {
	r.protocolErrors.Inc()
}

func (r *Registry) KeysExpired(n int) {
	r.expiredKeys.Add(float64(n))
}

// Gatherer exposes the underlying registry, mainly for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
