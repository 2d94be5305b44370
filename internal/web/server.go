// Package web serves the viewer page and the live video endpoints.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ayanel/emotion-mirror/internal/stream"
)

// Server exposes the annotated camera stream over HTTP.
type Server struct {
	cfg         Config
	pipeline    *stream.Pipeline
	broadcaster *stream.Broadcaster
}

// NewServer returns a configured server.
func NewServer(cfg Config, pipeline *stream.Pipeline, broadcaster *stream.Broadcaster) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	if cfg.SSEKeepalive <= 0 {
		cfg.SSEKeepalive = DefaultConfig().SSEKeepalive
	}
	return &Server{
		cfg:         cfg,
		pipeline:    pipeline,
		broadcaster: broadcaster,
	}
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/video_feed", s.handleVideoFeed)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/detections/stream", s.handleDetectionsStream)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	id, frames := s.broadcaster.Subscribe()
	defer s.broadcaster.Unsubscribe(id)
	streamMJPEG(w, r, frames)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"pipeline":  s.pipeline.Snapshot(),
		"timestamp": float64(time.Now().Unix()),
	})
}

func (s *Server) handleDetectionsStream(w http.ResponseWriter, r *http.Request) {
	id, events := s.broadcaster.SubscribeDetections()
	defer s.broadcaster.UnsubscribeDetections(id)
	streamDetections(w, r, events, s.cfg.SSEKeepalive)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"state":  s.pipeline.State().String(),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
