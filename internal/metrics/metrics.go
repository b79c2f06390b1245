// Echotrace - Social Post Engagement Tracking and Analytics
// Copyright 2026 Echotrace Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/echotrace/echotrace

// Package metrics provides Prometheus instrumentation for Echotrace.
//
// Instrumented surfaces:
//   - Provider API call volume, latency, and outcome classification
//   - Monitoring run outcomes and per-stage error counts
//   - Dedup index operations and size
//   - Store append volume
//   - Circuit breaker state transitions
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider Client Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of provider API calls",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, not_found, quota_exhausted, error
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Provider API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Monitoring Run Metrics
	MonitorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_runs_total",
			Help: "Total number of monitoring runs",
		},
		[]string{"kind", "outcome"}, // kind: post, account; outcome: success, failure
	)

	MonitorRunErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_run_errors_total",
			Help: "Total number of per-stage monitoring run errors",
		},
		[]string{"stage", "severity"}, // severity: critical, noncritical
	)

	MonitorItemsDue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monitor_items_due",
			Help: "Number of items found due at the last scheduler tick",
		},
		[]string{"kind"},
	)

	MonitorQuotaPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_quota_pauses_total",
			Help: "Total number of times polling was paused on quota exhaustion",
		},
	)

	// Dedup Index Metrics
	DedupOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_operations_total",
			Help: "Total number of dedup index operations",
		},
		[]string{"operation", "outcome"}, // operation: seen, add, warm; outcome: success, failure
	)

	DedupIndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dedup_index_entries",
			Help: "Approximate number of identities in the dedup index",
		},
	)

	// Store Metrics
	SnapshotsSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshots_saved_total",
			Help: "Total number of engagement snapshots persisted",
		},
	)

	AmplifierEventsSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amplifier_events_saved_total",
			Help: "Total number of new amplifier events persisted",
		},
		[]string{"type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker",
		},
		[]string{"name", "outcome"}, // outcome: success, failure, rejected
	)
)
