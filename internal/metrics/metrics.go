// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics registers the Prometheus collectors for research runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_assistant_runs_total",
			Help: "Total number of research runs by outcome",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_assistant_run_duration_seconds",
			Help:    "Research run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	RunIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_assistant_run_iterations",
			Help:    "Research loop passes per run",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	RunFindings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "research_assistant_run_findings",
			Help:    "Findings accumulated per run",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50},
		},
	)

	CachedFindings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_assistant_cached_findings_total",
			Help: "Findings reused from the similarity cache",
		},
	)

	// Stage metrics
	SearchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "research_assistant_search_errors_total",
			Help: "Search queries that failed and were treated as empty",
		},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "research_assistant_model_calls_total",
			Help: "Model calls by stage and outcome",
		},
		[]string{"stage", "status"},
	)

	ModelLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "research_assistant_model_call_seconds",
			Help:    "Model call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)
