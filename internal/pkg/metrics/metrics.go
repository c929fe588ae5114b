package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scribelink"

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP handler latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	MatchRequestsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "match_requests_created_total", Help: "Match requests created",
	})
	DuplicatePendingRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "match_requests_duplicate_pending_total", Help: "Create attempts refused as duplicate pending",
	})
	MatchTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "match_request_transitions_total", Help: "Applied status transitions",
	}, []string{"status"})
	RankingFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ranking_fallbacks_total", Help: "Candidate lists returned unranked after an experience lookup failure",
	})
	EnrichmentMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "enrichment_misses_total", Help: "Enriched rows with a field left empty",
	}, []string{"field"})

	RealtimeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "realtime_subscriptions", Help: "Open change feed subscriptions",
	})
	RealtimeClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "realtime_clients", Help: "Connected websocket clients",
	})
	PollingFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "realtime_polling_fallbacks_total", Help: "Bridges that fell back to polling",
	})

	AuditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "audit_entries_dropped_total", Help: "Audit entries dropped because the queue was full",
	})
	AuditWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "audit_write_errors_total", Help: "Audit entries that failed to persist",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequests, HTTPDuration,
		MatchRequestsCreated, DuplicatePendingRejected, MatchTransitions,
		RankingFallbacks, EnrichmentMisses,
		RealtimeSubscriptions, RealtimeClients, PollingFallbacks,
		AuditDropped, AuditWriteErrors,
	)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
