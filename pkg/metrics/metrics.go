// Package metrics exposes tracker counters and gauges to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all pipeline collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Ticks           prometheus.Counter
	FramesProcessed prometheus.Counter
	EmptyFrames     prometheus.Counter
	DetectErrors    prometheus.Counter
	CameraChanges   prometheus.Counter
	MaskChanges     prometheus.Counter

	Position     prometheus.Gauge
	RawPosition  prometheus.Gauge
	Speed        prometheus.Gauge
	CameraReady  prometheus.Gauge
	TickDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lantern_ticks_total",
			Help: "Total pipeline ticks",
		}),
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lantern_frames_processed_total",
			Help: "Frames run through the detector",
		}),
		EmptyFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lantern_frames_empty_total",
			Help: "Frames with no weighted brightness (position held)",
		}),
		DetectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lantern_detect_errors_total",
			Help: "Frames that failed acquisition or detection",
		}),
		CameraChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lantern_camera_changes_total",
			Help: "Camera ready or resolution change notifications",
		}),
		MaskChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lantern_mask_changes_total",
			Help: "Mask load, replace and regenerate events",
		}),

		Position: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lantern_position",
			Help: "Smoothed normalized position",
		}),
		RawPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lantern_raw_position",
			Help: "Last raw normalized position",
		}),
		Speed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lantern_speed",
			Help: "Raw speed in normalized units per second",
		}),
		CameraReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lantern_camera_ready",
			Help: "1 when the active camera is ready",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lantern_tick_duration_seconds",
			Help:    "Wall time spent in one pipeline tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.Ticks, m.FramesProcessed, m.EmptyFrames, m.DetectErrors,
		m.CameraChanges, m.MaskChanges,
		m.Position, m.RawPosition, m.Speed, m.CameraReady, m.TickDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick records one tick's duration.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.Ticks.Inc()
	m.TickDuration.Observe(d.Seconds())
}

// ObserveFrame records a processed frame.
func (m *Metrics) ObserveFrame(found bool, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.DetectErrors.Inc()
	case !found:
		m.FramesProcessed.Inc()
		m.EmptyFrames.Inc()
	default:
		m.FramesProcessed.Inc()
	}
}

// SetSignals publishes the output signals.
func (m *Metrics) SetSignals(position, raw, speed float64, ready bool) {
	if m == nil {
		return
	}
	m.Position.Set(position)
	m.RawPosition.Set(raw)
	m.Speed.Set(speed)
	if ready {
		m.CameraReady.Set(1)
	} else {
		m.CameraReady.Set(0)
	}
}

// CameraChanged counts a camera notification.
func (m *Metrics) CameraChanged() {
	if m != nil {
		m.CameraChanges.Inc()
	}
}

// MaskChanged counts a mask notification.
func (m *Metrics) MaskChanged() {
	if m != nil {
		m.MaskChanges.Inc()
	}
}
