// Package metrics provides Prometheus metrics for provider calls and sync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

var (
	// ProviderRequestsTotal counts provider HTTP requests by outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showsync_provider_requests_total",
		Help: "Total number of provider requests, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// FallbackTotal counts fetches that fell back to the secondary provider.
	FallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showsync_fallback_total",
		Help: "Total number of fetches served or attempted by the secondary provider, by entity and result.",
	}, []string{"entity", "result"})

	// RetryAttemptsTotal counts retries after a transient failure.
	RetryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showsync_retry_attempts_total",
		Help: "Total number of retries after transient failures, by operation.",
	}, []string{"operation"})

	// RefreshTotal counts refresh outcomes.
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "showsync_refresh_total",
		Help: "Total number of entity refreshes, by entity and result (fresh, fetched, failed, shared).",
	}, []string{"entity", "result"})
)
