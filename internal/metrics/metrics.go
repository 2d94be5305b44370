package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Frame pipeline counters
	FramesRead     atomic.Uint64
	FramesStreamed atomic.Uint64
	FramesDropped  atomic.Uint64

	// Inference counters
	InferenceCalls    atomic.Uint64
	InferenceFailures atomic.Uint64

	// Error counters
	ReadFailures   atomic.Uint64
	EncodeFailures atomic.Uint64

	// Camera lifecycle
	CameraReopens atomic.Uint64

	// Viewer tracking
	ActiveViewers atomic.Uint64
	TotalViewers  atomic.Uint64

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerCollectors()
	return m
}

func (m *Metrics) registerCollectors() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"emotion_mirror_frames_read_total", "Total frames read from the camera", m.FramesRead.Load},
		{"emotion_mirror_frames_streamed_total", "Total annotated frames emitted to the stream", m.FramesStreamed.Load},
		{"emotion_mirror_frames_dropped_total", "Total frames dropped by slow viewers", m.FramesDropped.Load},
		{"emotion_mirror_inference_calls_total", "Total emotion inference invocations", m.InferenceCalls.Load},
		{"emotion_mirror_inference_failures_total", "Total emotion inference failures degraded to empty results", m.InferenceFailures.Load},
		{"emotion_mirror_read_failures_total", "Total camera frame read failures", m.ReadFailures.Load},
		{"emotion_mirror_encode_failures_total", "Total JPEG encode failures", m.EncodeFailures.Load},
		{"emotion_mirror_camera_reopens_total", "Total successful camera reinitializations", m.CameraReopens.Load},
		{"emotion_mirror_active_viewers", "Number of connected stream viewers", m.ActiveViewers.Load},
		{"emotion_mirror_total_viewers", "Total stream viewers ever connected", m.TotalViewers.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
