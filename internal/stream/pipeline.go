// Package stream drives the capture → inference → overlay → encode
// pipeline and fans the resulting MJPEG frames out to viewers.
package stream

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"
	"time"

	"github.com/ayanel/emotion-mirror/internal/camera"
	"github.com/ayanel/emotion-mirror/internal/emotion"
	"github.com/ayanel/emotion-mirror/internal/logger"
	"github.com/ayanel/emotion-mirror/internal/metrics"
	"github.com/ayanel/emotion-mirror/internal/overlay"
)

// ErrEncodeFailed means a single frame could not be JPEG-encoded. The
// frame is dropped and the stream continues.
var ErrEncodeFailed = errors.New("stream: frame encode failed")

// State is the camera lifecycle state of the pipeline.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// Config controls the stream pipeline.
type Config struct {
	FrameSkip   int           // frames between inference attempts (>=1)
	ReopenDelay time.Duration // pause before each camera reopen attempt
	JPEGQuality int
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		FrameSkip:   10,
		ReopenDelay: time.Second,
		JPEGQuality: 75,
	}
}

// Pipeline runs one bounded iteration at a time: read a frame, maybe
// run inference, draw the cached detections, encode. Exactly one
// goroutine may call Step; Snapshot is safe from any goroutine.
type Pipeline struct {
	cfg      Config
	opener   camera.Opener
	analyzer emotion.Analyzer
	renderer *overlay.Renderer
	metrics  *metrics.Metrics

	source  camera.Source
	counter uint64
	started time.Time

	mu    sync.Mutex
	state State
	cache []emotion.Detection // latest detection set, replaced wholesale

	onDetections func([]emotion.Detection)

	// injection points for tests
	encode func(*image.RGBA) ([]byte, error)
	sleep  func(time.Duration)
}

// New creates a pipeline. Call Open before the first Step.
func New(opener camera.Opener, analyzer emotion.Analyzer, renderer *overlay.Renderer, m *metrics.Metrics, cfg Config) *Pipeline {
	if cfg.FrameSkip < 1 {
		cfg.FrameSkip = 1
	}
	if cfg.ReopenDelay <= 0 {
		cfg.ReopenDelay = DefaultConfig().ReopenDelay
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultConfig().JPEGQuality
	}
	p := &Pipeline{
		cfg:      cfg,
		opener:   opener,
		analyzer: analyzer,
		renderer: renderer,
		metrics:  m,
		started:  time.Now(),
		sleep:    time.Sleep,
	}
	p.encode = p.encodeJPEG
	return p
}

// Open performs the initial camera open. A failure here leaves the
// pipeline uninitialized; the caller decides whether that is fatal.
func (p *Pipeline) Open() error {
	src, err := p.opener()
	if err != nil {
		return err
	}
	p.source = src
	p.setState(StateReady)
	return nil
}

// Step runs one pipeline iteration. ok is false when no frame is
// emitted this iteration (read failure, reopen attempt, or encode
// failure); the stream simply moves on to the next iteration.
func (p *Pipeline) Step() (jpegData []byte, ok bool) {
	switch p.State() {
	case StateUninitialized:
		return nil, false
	case StateDegraded:
		p.reopen()
		return nil, false
	}

	frame, err := p.source.Read()
	if err != nil {
		logger.Warn("Pipeline", "frame read failed, reinitializing camera: %v", err)
		p.metrics.ReadFailures.Add(1)
		_ = p.source.Close()
		p.source = nil
		p.setState(StateDegraded)
		return nil, false
	}
	p.metrics.FramesRead.Add(1)

	if p.counter%uint64(p.cfg.FrameSkip) == 0 {
		p.runInference(frame.Image)
	}
	p.counter++

	p.renderer.Draw(frame.Image, p.detections())

	data, err := p.encode(frame.Image)
	if err != nil {
		logger.Warn("Pipeline", "dropping frame %d: %v", frame.Number, err)
		p.metrics.EncodeFailures.Add(1)
		return nil, false
	}
	p.metrics.FramesStreamed.Add(1)
	return data, true
}

// runInference invokes the analyzer and replaces the detection cache
// wholesale. Any analyzer error degrades to an empty detection set;
// a single bad frame must never terminate the stream.
func (p *Pipeline) runInference(img *image.RGBA) {
	p.metrics.InferenceCalls.Add(1)
	detections, err := p.analyzer.Analyze(img)
	if err != nil {
		logger.Warn("Pipeline", "inference failed, clearing detections: %v", err)
		p.metrics.InferenceFailures.Add(1)
		detections = nil
	}

	p.mu.Lock()
	p.cache = detections
	p.mu.Unlock()

	if p.onDetections != nil {
		p.onDetections(detections)
	}
}

// reopen makes one attempt to bring the camera back, pausing first so
// a disconnected device is not retried in a hot loop.
func (p *Pipeline) reopen() {
	p.sleep(p.cfg.ReopenDelay)
	src, err := p.opener()
	if err != nil {
		logger.Warn("Pipeline", "camera reopen failed, will retry: %v", err)
		return
	}
	p.source = src
	p.setState(StateReady)
	p.metrics.CameraReopens.Add(1)
	logger.Info("Pipeline", "camera reopened")
}

// Close releases the camera source, if any.
func (p *Pipeline) Close() error {
	if p.source == nil {
		return nil
	}
	err := p.source.Close()
	p.source = nil
	p.setState(StateUninitialized)
	return err
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pipeline) detections() []emotion.Detection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache
}

func (p *Pipeline) encodeJPEG(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.cfg.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}
