package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiviz_uploads_total",
		Help: "Dataset uploads by outcome (stored, rejected, cancelled, failed).",
	}, []string{"outcome"})
	trainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "equiviz_training_duration_seconds",
		Help:    "Duration of model training for one dataset.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	})
	datasetsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiviz_datasets_evicted_total",
		Help: "Datasets evicted by the per-owner history bound.",
	})
	degradedTargets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiviz_training_degraded_total",
		Help: "Targets skipped during training, by target and reason.",
	}, []string{"target", "reason"})
	predictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "equiviz_predictions_served_total",
		Help: "Predictions answered, by kind.",
	}, []string{"kind"})
	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "equiviz_events_failed_total",
		Help: "Analysis events that could not be published.",
	})
)
