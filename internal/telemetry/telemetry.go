// Package telemetry holds the Prometheus instruments of the chart engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charts_commit_duration_seconds",
			Help:    "Duration of chart commits including lock wait",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
		},
		[]string{"chart"},
	)

	CommitErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charts_commit_errors_total",
			Help: "Total number of failed chart commits",
		},
		[]string{"chart", "reason"}, // "lock_timeout", "schema", "storage", "other"
	)

	LockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charts_lock_wait_seconds",
			Help:    "Time spent waiting for chart locks",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chart"},
	)

	TickRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charts_tick_runs_total",
			Help: "Chart tick executions per group",
		},
		[]string{"chart", "tick", "outcome"}, // "applied", "skipped", "failed"
	)

	GetChartDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charts_get_chart_duration_seconds",
			Help:    "Duration of chart series reads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chart", "span"},
	)

	SchedulerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charts_scheduler_job_duration_seconds",
			Help:    "Duration of scheduled tick jobs across all charts",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"tick"},
	)

	ActivitiesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activities_recorded_total",
			Help: "Ingested activities by kind and result",
		},
		[]string{"kind", "result"}, // "recorded", "duplicate", "rejected", "error"
	)
)
