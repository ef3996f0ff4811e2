// Cosmerec - Medication-Aware Cosmetic Recommendations
// Copyright 2026 Cosmerec Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cosmerec/cosmerec

// Package metrics provides Prometheus instrumentation for the
// recommendation pipeline: alias cache efficiency, rule evaluation
// outcomes, scoring latency, and API throughput.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Alias Resolver Metrics
	AliasCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alias_cache_hits_total",
			Help: "Total number of alias table reads served from the cached snapshot",
		},
	)

	AliasCacheRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alias_cache_refreshes_total",
			Help: "Total number of alias table refresh attempts",
		},
		[]string{"result"}, // "ok", "degraded", "throttled"
	)

	AliasOverlapsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alias_overlaps_detected_total",
			Help: "Total number of overlapping alias expansions reported by batch resolution",
		},
	)

	// Rule Evaluation Metrics
	RuleHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_hits_total",
			Help: "Total number of rule hits by action",
		},
		[]string{"action"}, // "exclude", "penalize"
	)

	RulesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rules_skipped_total",
			Help: "Total number of rules skipped due to evaluation errors",
		},
	)

	RuleStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_store_errors_total",
			Help: "Total number of rule store failures",
		},
		[]string{"operation"}, // "active_rules", "alias_overrides"
	)

	CandidatesEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidates_evaluated_total",
			Help: "Total number of candidates passed through rule evaluation",
		},
	)

	CandidatesExcluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "candidates_excluded_total",
			Help: "Total number of candidates excluded by eligibility rules",
		},
	)

	// Recommendation Pipeline Metrics
	RecommendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"status"}, // "ok", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "End-to-end duration of recommendation requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// Audit Metrics
	AuditRecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_records_written_total",
			Help: "Total number of rule hits written to the audit sink",
		},
		[]string{"sink"}, // "memory", "badger"
	)

	AuditWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_errors_total",
			Help: "Total number of audit sink write failures",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records an API request with its duration.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRuleHit records a rule hit by action.
func RecordRuleHit(action string) {
	RuleHitsTotal.WithLabelValues(action).Inc()
}
