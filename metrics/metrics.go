// Package metrics holds the Prometheus collectors for the recorder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is private to autorec so tests and embedders never collide with
// the default registerer.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	SessionsOpened = factory.NewCounter(prometheus.CounterOpts{
		Name: "autorec_sessions_opened_total",
		Help: "Capture sessions that acquired a device",
	})
	AcquireFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "autorec_acquire_failures_total",
		Help: "Start calls that failed to acquire the microphone",
	})
	ActiveSessions = factory.NewGauge(prometheus.GaugeOpts{
		Name: "autorec_active_sessions",
		Help: "Sessions currently holding a capture device",
	})

	SegmentsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "autorec_segments_finished_total",
		Help: "Finalized segments by media type and how they ended",
	}, []string{"media_type", "reason"})
	SegmentErrors = factory.NewCounter(prometheus.CounterOpts{
		Name: "autorec_segment_errors_total",
		Help: "Segments whose encode or duration correction failed",
	})
	SegmentDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "autorec_segment_duration_seconds",
		Help:    "Corrected duration of finished segments",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4 minutes
	})
	SegmentBytes = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "autorec_segment_size_bytes",
		Help:    "Size of finished blobs",
		Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~8MB
	})
	FinalizeDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "autorec_finalize_duration_seconds",
		Help:    "Time from end request to finished blob",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	})

	Volume = factory.NewGauge(prometheus.GaugeOpts{
		Name: "autorec_volume_level",
		Help: "Last measured volume on the 0-255 scale",
	})
)

// Segment end reasons.
const (
	ReasonManual  = "manual"
	ReasonSilence = "silence"
)

// ObserveSegment records one finished segment.
func ObserveSegment(mediaType string, autoStopped bool, d time.Duration, size int, finalize time.Duration) {
	reason := ReasonManual
	if autoStopped {
		reason = ReasonSilence
	}
	SegmentsFinished.WithLabelValues(mediaType, reason).Inc()
	SegmentDuration.Observe(d.Seconds())
	SegmentBytes.Observe(float64(size))
	FinalizeDuration.Observe(finalize.Seconds())
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
