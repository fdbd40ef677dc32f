// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestSeconds is a histogram for HTTP request latencies
	HTTPRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_seconds",
			Help:    "Histogram of response latency (seconds) of requests handled by the service.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "status"},
	)

	// InferenceBatchSize is a histogram for tracking inference batch sizes
	InferenceBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_batch_size",
			Help:    "Histogram of batch sizes seen by the inference driver.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)

	// InferenceLatencySeconds is a histogram for inference-only latency
	InferenceLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Histogram of inference latency (seconds) excluding transport overhead.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
	)

	// TrainDurationSeconds is a histogram for model training durations
	TrainDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "train_duration_seconds",
			Help:    "Histogram of model training durations (seconds).",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		},
	)

	// ApplyBatchesTotal counts batches completed by the inference driver
	ApplyBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apply_batches_total",
			Help: "Total number of batches completed by the inference driver.",
		},
	)

	// ExplorerBestScore is a gauge tracking the best objective value found
	ExplorerBestScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_best_score",
			Help: "Best objective value observed by the exploration loop.",
		},
	)

	// ExplorerExplored is a gauge tracking the number of measured candidates
	ExplorerExplored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "explorer_explored_total",
			Help: "Number of candidates measured by the exploration loop.",
		},
	)

	// HealthStatus is a gauge indicating the health status of the service
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Health status of the service (1 = healthy, 0 = unhealthy).",
		},
	)
)

// RecordHTTPLatency records the latency of an HTTP request
func RecordHTTPLatency(route, status string, seconds float64) {
	HTTPRequestSeconds.WithLabelValues(route, status).Observe(seconds)
}

// RecordInferenceBatch records the batch size for an inference call
func RecordInferenceBatch(size int) {
	InferenceBatchSize.Observe(float64(size))
	ApplyBatchesTotal.Inc()
}

// RecordInferenceLatency records the latency of an inference call
func RecordInferenceLatency(seconds float64) {
	InferenceLatencySeconds.Observe(seconds)
}

// RecordTrainDuration records the duration of a training call
func RecordTrainDuration(seconds float64) {
	TrainDurationSeconds.Observe(seconds)
}

// RecordExploration records explorer progress
func RecordExploration(best float64, explored int) {
	ExplorerBestScore.Set(best)
	ExplorerExplored.Set(float64(explored))
}

// SetHealthy sets the health status to healthy
func SetHealthy() {
	HealthStatus.Set(1)
}

// SetUnhealthy sets the health status to unhealthy
func SetUnhealthy() {
	HealthStatus.Set(0)
}
