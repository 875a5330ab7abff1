// Package metrics provides Prometheus metrics collection for the
// prediction pipeline. All counters and histograms are exposed via the
// metrics endpoint for monitoring the train/predict/evaluate phases.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Prediction phase
	PredictionsGenerated  prometheus.Counter   // Predictions written to the store
	PredictionsSuppressed prometheus.Counter   // Predictions below the confidence gate
	PredictionErrors      prometheus.Counter   // Per-match prediction failures
	PredictionConfidence  prometheus.Histogram // Confidence of emitted predictions

	// Training phase
	TrainingRuns     prometheus.Counter   // Completed training runs
	TrainingFailures prometheus.Counter   // Failed or aborted training runs
	TrainingAccuracy prometheus.Histogram // Held-out accuracy per training run

	// Evaluation phase
	EvaluationsResolved  prometheus.Counter // Predictions resolved against real results
	EvaluationsCorrect   prometheus.Counter // Resolved predictions that were correct
	EvaluationsIncorrect prometheus.Counter // Resolved predictions that were wrong

	// Data plumbing
	FeatureErrors prometheus.Counter // Feature computation failures
	FeedImports   prometheus.Counter // Matches imported from the results feed
	FeedErrors    prometheus.Counter // Feed import failures
	StoreErrors   prometheus.Counter // Store-level failures surfaced to callers
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing, where the global registry would collide between cases).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_generated_total",
			Help: "Total number of predictions written to the store",
		}),
		PredictionsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_suppressed_total",
			Help: "Total number of predictions suppressed by the confidence gate",
		}),
		PredictionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of per-match prediction failures",
		}),
		PredictionConfidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence",
			Help:    "Confidence of emitted predictions (0-100)",
			Buckets: []float64{60, 65, 70, 75, 80, 85, 90, 95, 100},
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of failed or aborted training runs",
		}),
		TrainingAccuracy: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_accuracy",
			Help:    "Held-out accuracy observed per training run",
			Buckets: []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}),
		EvaluationsResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_resolved_total",
			Help: "Total number of predictions resolved against real results",
		}),
		EvaluationsCorrect: factory.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_correct_total",
			Help: "Total number of resolved predictions that were correct",
		}),
		EvaluationsIncorrect: factory.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_incorrect_total",
			Help: "Total number of resolved predictions that were wrong",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of feature computation failures",
		}),
		FeedImports: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_imports_total",
			Help: "Total number of matches imported from the results feed",
		}),
		FeedErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_errors_total",
			Help: "Total number of feed import failures",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of store-level failures",
		}),
	}
}
