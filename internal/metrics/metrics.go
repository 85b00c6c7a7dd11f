// Package metrics holds the Prometheus collectors for the listing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "acreage"

var (
	// GenerationRuns counts finished generation runs.
	// Labels: outcome (completed, failed, purchase_required, credit_error)
	GenerationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "runs_total",
		Help:      "Total listing generation runs by outcome",
	}, []string{"outcome"})

	// StepDuration measures how long each pipeline step spent processing.
	// Labels: step, status (completed, error)
	StepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generation",
		Name:      "step_duration_seconds",
		Help:      "Pipeline step duration in seconds",
		Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"step", "status"})

	// CreditConsumes counts credit consume attempts.
	// Labels: result (consumed, insufficient, error)
	CreditConsumes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "consumes_total",
		Help:      "Total credit consume attempts by result",
	}, []string{"result"})

	// ContentFallbacks counts descriptions produced by the template.
	// Labels: reason (disabled, provider_error, empty)
	ContentFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "fallbacks_total",
		Help:      "Total listing descriptions that fell back to the template",
	}, []string{"reason"})

	// ImageryDegraded counts imagery steps that completed without images.
	// Labels: reason (no_location, provider_error, empty, disabled)
	ImageryDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "imagery",
		Name:      "degraded_total",
		Help:      "Total imagery steps that completed in degraded mode",
	}, []string{"reason"})
)
