package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayanel/emotion-mirror/internal/camera"
	"github.com/ayanel/emotion-mirror/internal/emotion"
	"github.com/ayanel/emotion-mirror/internal/metrics"
	"github.com/ayanel/emotion-mirror/internal/overlay"
	"github.com/ayanel/emotion-mirror/internal/stream"
)

type testSource struct{}

func (testSource) Read() (*camera.Frame, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 30, G: 30, B: 30, A: 255}), image.Point{}, draw.Src)
	return &camera.Frame{Image: img, Timestamp: time.Now()}, nil
}

func (testSource) Close() error { return nil }

type testAnalyzer struct {
	dets []emotion.Detection
}

func (a testAnalyzer) Analyze(*image.RGBA) ([]emotion.Detection, error) {
	return a.dets, nil
}

func newTestServer(t *testing.T, dets []emotion.Detection) (*httptest.Server, *stream.Broadcaster) {
	t.Helper()

	m := metrics.New()
	p := stream.New(
		func() (camera.Source, error) { return testSource{}, nil },
		testAnalyzer{dets: dets},
		overlay.New(),
		m,
		stream.Config{FrameSkip: 2},
	)
	if err := p.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	b := stream.NewBroadcaster(p, m)
	b.Start()

	s := NewServer(Config{SSEKeepalive: time.Second}, p, b)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		b.Stop()
		p.Close()
	})
	return ts, b
}

// requireMap asserts a JSON object field, in the shape the status API
// promises.
func requireMap(t *testing.T, obj map[string]any, key string) map[string]any {
	t.Helper()
	m, ok := obj[key].(map[string]any)
	if !ok {
		t.Fatalf("expected %q to be an object, got %T", key, obj[key])
	}
	return m
}

func requireNumber(t *testing.T, obj map[string]any, key string) float64 {
	t.Helper()
	n, ok := obj[key].(float64)
	if !ok {
		t.Fatalf("expected %q to be a number, got %T", key, obj[key])
	}
	return n
}

func requireString(t *testing.T, obj map[string]any, key string) string {
	t.Helper()
	s, ok := obj[key].(string)
	if !ok {
		t.Fatalf("expected %q to be a string, got %T", key, obj[key])
	}
	return s
}

func TestIndexPage(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected content type %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("/video_feed")) {
		t.Error("index page does not embed the video feed")
	}
	if !bytes.Contains(body, []byte("/api/detections/stream")) {
		t.Error("index page does not subscribe to detection events")
	}
}

func TestVideoFeedProtocol(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/video_feed", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /video_feed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Fatalf("unexpected content type %q", ct)
	}

	// Read until two parts have arrived, then verify the framing.
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for bytes.Count(buf.Bytes(), []byte("--frame")) < 2 {
		n, err := resp.Body.Read(chunk)
		buf.Write(chunk[:n])
		if err != nil {
			t.Fatalf("stream ended early: %v", err)
		}
	}
	cancel()

	data := buf.Bytes()
	if !bytes.HasPrefix(data, []byte("--frame\r\nContent-Type: image/jpeg\r\n\r\n")) {
		t.Fatalf("part does not start with the boundary framing: %q", data[:40])
	}
	payload := data[len("--frame\r\nContent-Type: image/jpeg\r\n\r\n"):]
	if len(payload) < 2 || payload[0] != 0xFF || payload[1] != 0xD8 {
		t.Error("part payload does not begin with a JPEG SOI marker")
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode status: %v", err)
	}

	pipeline := requireMap(t, body, "pipeline")
	if state := requireString(t, pipeline, "state"); state != "ready" {
		t.Errorf("expected ready state, got %q", state)
	}
	requireNumber(t, pipeline, "frames_read")
	requireNumber(t, pipeline, "inference_calls")
	requireNumber(t, pipeline, "camera_reopens")
	requireNumber(t, pipeline, "uptime_seconds")
	requireNumber(t, body, "timestamp")
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if got := requireString(t, body, "status"); got != "ok" {
		t.Errorf("expected ok status, got %q", got)
	}
	requireString(t, body, "state")
}

func TestDetectionsStream(t *testing.T) {
	dets := []emotion.Detection{{
		Region:  &emotion.Region{X: 5, Y: 5, Width: 20, Height: 20},
		Emotion: "surprise",
	}}
	ts, _ := newTestServer(t, dets)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/detections/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/detections/stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Detections []emotion.Detection `json:"detections"`
			Timestamp  float64             `json:"timestamp"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if len(event.Detections) != 1 || event.Detections[0].Emotion != "surprise" {
			t.Fatalf("unexpected event payload: %+v", event.Detections)
		}
		return
	}
	t.Fatalf("no data event received: %v", scanner.Err())
}
