package stream

import (
	"sync"
	"time"

	"github.com/ayanel/emotion-mirror/internal/emotion"
	"github.com/ayanel/emotion-mirror/internal/logger"
	"github.com/ayanel/emotion-mirror/internal/metrics"
)

const idleInterval = 100 * time.Millisecond

// Broadcaster owns the pipeline loop and fans encoded frames out to
// subscribed viewers. It is the single Step caller, which confines the
// camera handle and the detection cache to one goroutine.
type Broadcaster struct {
	pipeline *Pipeline
	metrics  *metrics.Metrics

	mu           sync.Mutex
	frameClients map[int]chan []byte
	eventClients map[int]chan []emotion.Detection
	nextID       int
	stop         chan struct{}
	stopped      bool
}

// NewBroadcaster wires a broadcaster to a pipeline.
func NewBroadcaster(p *Pipeline, m *metrics.Metrics) *Broadcaster {
	b := &Broadcaster{
		pipeline:     p,
		metrics:      m,
		frameClients: make(map[int]chan []byte),
		eventClients: make(map[int]chan []emotion.Detection),
		stop:         make(chan struct{}),
	}
	p.onDetections = b.publishDetections
	return b
}

// Subscribe adds a viewer and returns its frame channel. Slow viewers
// skip frames instead of stalling the pipeline.
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, 2)
	b.frameClients[id] = ch

	b.metrics.ActiveViewers.Store(uint64(len(b.frameClients)))
	b.metrics.TotalViewers.Add(1)
	logger.Debug("Broadcaster", "viewer #%d subscribed (total: %d)", id, len(b.frameClients))
	return id, ch
}

// Unsubscribe removes a viewer and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.frameClients[id]; ok {
		close(ch)
		delete(b.frameClients, id)
		b.metrics.ActiveViewers.Store(uint64(len(b.frameClients)))
		logger.Debug("Broadcaster", "viewer #%d unsubscribed (remaining: %d)", id, len(b.frameClients))
	}
}

// SubscribeDetections adds a detection-event listener. One event is
// delivered per inference attempt, carrying the full detection set.
func (b *Broadcaster) SubscribeDetections() (int, <-chan []emotion.Detection) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []emotion.Detection, 2)
	b.eventClients[id] = ch
	return id, ch
}

// UnsubscribeDetections removes a detection-event listener.
func (b *Broadcaster) UnsubscribeDetections(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.eventClients[id]; ok {
		close(ch)
		delete(b.eventClients, id)
	}
}

// Start begins the pipeline loop.
func (b *Broadcaster) Start() {
	go b.run()
}

// Stop halts the pipeline loop. Idempotent.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.stopped {
		close(b.stop)
		b.stopped = true
	}
	b.mu.Unlock()
}

func (b *Broadcaster) run() {
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if b.clientCount() == 0 {
			// No one is watching; leave the camera alone.
			time.Sleep(idleInterval)
			continue
		}

		data, ok := b.pipeline.Step()
		if !ok {
			continue
		}
		b.broadcast(data)
	}
}

func (b *Broadcaster) clientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frameClients) + len(b.eventClients)
}

func (b *Broadcaster) broadcast(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.frameClients {
		select {
		case ch <- data:
		default:
			b.metrics.FramesDropped.Add(1)
		}
	}
}

func (b *Broadcaster) publishDetections(detections []emotion.Detection) {
	event := make([]emotion.Detection, len(detections))
	copy(event, detections)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.eventClients {
		select {
		case ch <- event:
		default:
		}
	}
}
