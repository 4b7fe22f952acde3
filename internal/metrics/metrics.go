// Package metrics provides Prometheus metrics for the digest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "morningdigest"

var (
	// FeedFetchTotal counts feed requests by source and result (ok, error).
	FeedFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetch_total",
			Help:      "Feed fetches by source and result",
		},
		[]string{"source", "result"},
	)

	// ArticleScrapeTotal counts secondary article-page fetches.
	ArticleScrapeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "article_scrape_total",
			Help:      "Article page fetches by result",
		},
		[]string{"result"},
	)

	// DigestOutcomeTotal counts coordinator outcomes per group (created, skipped, failed).
	DigestOutcomeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_outcome_total",
			Help:      "Digest generation outcomes",
		},
		[]string{"outcome"},
	)

	// DeliveryTotal counts recorded deliveries by provider and status.
	DeliveryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_total",
			Help:      "Digest deliveries by provider and status",
		},
		[]string{"provider", "status"},
	)

	// ProviderAttemptTotal counts individual provider send attempts.
	ProviderAttemptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_provider_attempt_total",
			Help:      "Mail provider attempts by provider and result",
		},
		[]string{"provider", "result"},
	)

	// RunDuration measures whole pipeline runs.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"trigger"},
	)
)
