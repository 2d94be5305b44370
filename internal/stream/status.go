package stream

import (
	"time"

	"github.com/ayanel/emotion-mirror/internal/emotion"
)

// Status is a point-in-time snapshot of the pipeline for the status
// API.
type Status struct {
	State             string              `json:"state"`
	FramesRead        uint64              `json:"frames_read"`
	FramesStreamed    uint64              `json:"frames_streamed"`
	InferenceCalls    uint64              `json:"inference_calls"`
	InferenceFailures uint64              `json:"inference_failures"`
	CameraReopens     uint64              `json:"camera_reopens"`
	Detections        []emotion.Detection `json:"detections"`
	UptimeSeconds     float64             `json:"uptime_seconds"`
}

// Snapshot returns the current pipeline status. Safe to call from any
// goroutine.
func (p *Pipeline) Snapshot() Status {
	p.mu.Lock()
	state := p.state
	detections := make([]emotion.Detection, len(p.cache))
	copy(detections, p.cache)
	p.mu.Unlock()

	return Status{
		State:             state.String(),
		FramesRead:        p.metrics.FramesRead.Load(),
		FramesStreamed:    p.metrics.FramesStreamed.Load(),
		InferenceCalls:    p.metrics.InferenceCalls.Load(),
		InferenceFailures: p.metrics.InferenceFailures.Load(),
		CameraReopens:     p.metrics.CameraReopens.Load(),
		Detections:        detections,
		UptimeSeconds:     time.Since(p.started).Seconds(),
	}
}
