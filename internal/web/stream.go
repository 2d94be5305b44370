package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ayanel/emotion-mirror/internal/emotion"
	"github.com/ayanel/emotion-mirror/internal/logger"
)

// framePartHeader is the fixed per-part prefix of the MJPEG protocol.
const framePartHeader = "--frame\r\nContent-Type: image/jpeg\r\n\r\n"

// writeFramePart writes one multipart part in the boundary=frame
// protocol: marker, part headers, JPEG bytes, trailing CRLF.
func writeFramePart(w io.Writer, jpegData []byte) error {
	if _, err := io.WriteString(w, framePartHeader); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// streamMJPEG writes frames from the channel until the client
// disconnects or the channel closes.
func streamMJPEG(w http.ResponseWriter, r *http.Request, frames <-chan []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case jpegData, ok := <-frames:
			if !ok {
				return
			}
			if err := writeFramePart(w, jpegData); err != nil {
				logger.Debug("MJPEG", "viewer disconnected during write: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// streamDetections streams detection events as server-sent JSON
// events, with keepalive comments so idle connections stay open.
func streamDetections(w http.ResponseWriter, r *http.Request, events <-chan []emotion.Detection, keepalive time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case detections, ok := <-events:
			if !ok {
				return
			}
			payload := map[string]any{
				"detections": detections,
				"timestamp":  float64(time.Now().Unix()),
			}
			if err := writeSSE(w, payload); err != nil {
				logger.Debug("SSE", "client disconnected during event write: %v", err)
				return
			}
			flusher.Flush()
		case <-time.After(keepalive):
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				logger.Debug("SSE", "client disconnected during keepalive: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
