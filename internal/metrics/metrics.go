// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LeadSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_submissions_total",
			Help: "Lead-form submissions by form and outcome.",
		}, []string{"form", "outcome"})

	RateLimitBlockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_blocked_total",
			Help: "Submissions refused by the sliding-window limiter.",
		}, []string{"form"})

	ContentFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_total",
			Help: "Content reads by kind and source (cache or store).",
		}, []string{"kind", "source"})

	ContentFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_errors_total",
			Help: "Content reads that failed at the record store.",
		}, []string{"kind"})

	ContentCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "content_cache_entries",
			Help: "Number of content result sets currently cached.",
		})

	JSONFieldParseErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "json_field_parse_errors_total",
			Help: "Stored JSON columns that failed to decode and were kept raw.",
		})

	SensitiveStorageBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sensitive_storage_blocked_total",
			Help: "Writes or payloads refused by the sensitive-key heuristic.",
		})

	NotifyJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_jobs_total",
			Help: "Post-submit notification jobs by type and outcome.",
		}, []string{"type", "outcome"})
)

func init() {
	prometheus.MustRegister(
		LeadSubmissionsTotal,
		RateLimitBlockedTotal,
		ContentFetchTotal,
		ContentFetchErrorsTotal,
		ContentCacheEntries,
		JSONFieldParseErrorsTotal,
		SensitiveStorageBlockedTotal,
		NotifyJobsTotal,
	)
}
