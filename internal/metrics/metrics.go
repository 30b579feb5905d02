// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics defines the prometheus collectors of the chat pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome and attempt result label values.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"

	ResultSuccess   = "success"
	ResultRetry     = "retry"
	ResultCancelled = "cancelled"
	ResultExhausted = "exhausted"
	ResultFailed    = "failed"
)

var (
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_ui_submissions_total",
			Help: "Submissions by terminal outcome",
		},
		[]string{"model", "outcome"},
	)

	Attempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_ui_attempts_total",
			Help: "Request attempts by result",
		},
		[]string{"result"},
	)

	RetryNotices = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fabric_ui_retry_notices_total",
			Help: "Retry notices shown to the user",
		},
	)

	TimeToFirstDelta = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fabric_ui_time_to_first_delta_seconds",
			Help:    "Time from attempt start to first content delta in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fabric_ui_submission_duration_seconds",
			Help:    "Total time from submission to terminal event in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300, 600},
		},
		[]string{"model", "outcome"},
	)

	InflightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fabric_ui_inflight_requests",
			Help: "Submissions waiting for a terminal event",
		},
	)

	DroppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fabric_ui_dropped_frames_total",
			Help: "Malformed stream frames skipped by the parser",
		},
	)

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fabric_ui_backend_requests_total",
			Help: "HTTP requests to the fabric backend by endpoint and status code",
		},
		[]string{"endpoint", "code"},
	)
)
