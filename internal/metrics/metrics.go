package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BundleBuildFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftbundle_build_failed_total",
			Help: "Number of times a target has failed to bundle",
		},
		[]string{"target"},
	)

	BundleBuildCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftbundle_build_count_total",
			Help: "Total number of bundling passes",
		},
		[]string{"target"},
	)

	BundleBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ftbundle_build_duration_seconds",
			Help:    "Bundling duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1, 1.5, 2, 5, 10, 30, 60},
		},
		[]string{"target"},
	)

	BundleOutputBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ftbundle_output_bytes",
			Help: "Total size of the files written by the last successful bundling pass",
		},
		[]string{"target"},
	)

	LastBundleBuildStart = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ftbundle_last_build_start_timestamp",
			Help: "Unix timestamp of when the last bundling pass started",
		},
		[]string{"target"},
	)

	LastBundleBuildEnd = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ftbundle_last_build_end_timestamp",
			Help: "Unix timestamp of when the last bundling pass ended",
		},
		[]string{"target"},
	)

	TransformCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ftbundle_transform_cache_hits_total",
			Help: "Number of source transforms served from the cache",
		},
		[]string{"target"},
	)
)

// BundleBuildStarted records the start of a bundling pass.
func BundleBuildStarted(target string, start time.Time) {
	BundleBuildCount.WithLabelValues(target).Inc()
	LastBundleBuildStart.WithLabelValues(target).Set(float64(start.Unix()))
}

// BundleBuildSucceeded records a finished pass and its output size.
func BundleBuildSucceeded(target string, start time.Time, outputBytes int64) {
	end := time.Now()
	BundleBuildDuration.WithLabelValues(target).Observe(end.Sub(start).Seconds())
	LastBundleBuildEnd.WithLabelValues(target).Set(float64(end.Unix()))
	BundleOutputBytes.WithLabelValues(target).Set(float64(outputBytes))
}

// BundleBuildFailure records a failed pass.
func BundleBuildFailure(target string) {
	BundleBuildFailed.WithLabelValues(target).Inc()
	LastBundleBuildEnd.WithLabelValues(target).Set(float64(time.Now().Unix()))
}
