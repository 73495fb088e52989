// Package metrics holds the dashboard's Prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RelayRequests counts relay submissions by outcome.
	// Labels: policy (command, process), outcome (completed, failed, accepted, timeout, canceled, error)
	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pancydash",
		Subsystem: "relay",
		Name:      "requests_total",
		Help:      "Relay submissions by wait outcome",
	}, []string{"policy", "outcome"})

	// RelayWait measures how long a request waited for the bot.
	// Labels: policy
	RelayWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pancydash",
		Subsystem: "relay",
		Name:      "wait_seconds",
		Help:      "Time between enqueueing a request and its outcome",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"policy"})

	// RelayWakeups counts what woke a waiting request.
	// Labels: reason (notify, poll, deadline)
	RelayWakeups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pancydash",
		Subsystem: "relay",
		Name:      "wakeups_total",
		Help:      "Relay document re-reads by trigger",
	}, []string{"reason"})

	// HTTPRequests counts served requests.
	// Labels: method, route, status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pancydash",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration measures request latency.
	// Labels: method, route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pancydash",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// StatsSource counts which tier answered a dashboard stats read.
	// Labels: source (stats, live, fallback, cache)
	StatsSource = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pancydash",
		Subsystem: "stats",
		Name:      "reads_total",
		Help:      "Dashboard stats reads by answering tier",
	}, []string{"source"})

	// CacheOps counts read-model cache operations.
	// Labels: result (hit, miss, error)
	CacheOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pancydash",
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Read-model cache lookups by result",
	}, []string{"result"})

	// PremiumCascade counts custom commands touched by premium changes.
	// Labels: action (grant, revoke, renew, expire)
	PremiumCascade = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pancydash",
		Subsystem: "premium",
		Name:      "cascaded_commands_total",
		Help:      "Custom commands activated or deactivated by premium changes",
	}, []string{"action"})

	// LiveClients is the number of connected websocket clients
	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pancydash",
		Subsystem: "live",
		Name:      "clients",
		Help:      "Connected live event clients",
	})
)

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
