// Command server runs the emotion mirror: it reads the webcam, runs
// facial emotion inference on a subsample of frames, draws the results
// onto every frame, and serves the annotated video as an MJPEG stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayanel/emotion-mirror/internal/camera"
	"github.com/ayanel/emotion-mirror/internal/emotion"
	"github.com/ayanel/emotion-mirror/internal/logger"
	"github.com/ayanel/emotion-mirror/internal/metrics"
	"github.com/ayanel/emotion-mirror/internal/overlay"
	"github.com/ayanel/emotion-mirror/internal/stream"
	"github.com/ayanel/emotion-mirror/internal/web"
)

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func main() {
	// .env is optional; flags below pick up whatever it sets.
	_ = godotenv.Load()

	defaults := emotion.DefaultConfig()
	var (
		addr        = flag.String("addr", envString("ADDR", ":5001"), "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", envString("METRICS_ADDR", ":9090"), "Prometheus metrics listen address (empty to disable)")
		cameraIndex = flag.Int("camera-index", envInt("CAMERA_INDEX", 0), "video capture device index")
		frameSkip   = flag.Int("frame-skip", envInt("FRAME_SKIP", 10), "frames between inference attempts")
		backend     = flag.String("detector-backend", envString("DETECTOR_BACKEND", defaults.Backend), "face detector backend: haar or dnn")
		cascadeFile = flag.String("cascade-file", envString("CASCADE_FILE", defaults.CascadeFile), "Haar cascade file (haar backend)")
		faceModel   = flag.String("face-model", envString("FACE_MODEL", defaults.FaceModelFile), "face detector weights (dnn backend)")
		faceConfig  = flag.String("face-config", envString("FACE_CONFIG", defaults.FaceConfigFile), "face detector config (dnn backend)")
		emotionFile = flag.String("emotion-model", envString("EMOTION_MODEL", defaults.EmotionModelFile), "emotion classification model (ONNX)")
		jpegQuality = flag.Int("jpeg-quality", envInt("JPEG_QUALITY", 75), "JPEG encode quality (1-100)")
		mirror      = flag.Bool("mirror", envBool("MIRROR", true), "flip frames horizontally for a mirror view")
		logLevel    = flag.String("log-level", envString("LOG_LEVEL", "info"), "log level: debug, info, warn, error, silent")
		logColor    = flag.Bool("log-color", envBool("LOG_COLOR", true), "colorize log output")
	)
	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logger.Init(level, os.Stderr, *logColor)

	m := metrics.New()

	analyzer, err := emotion.NewEngine(emotion.Config{
		Backend:          *backend,
		CascadeFile:      *cascadeFile,
		FaceModelFile:    *faceModel,
		FaceConfigFile:   *faceConfig,
		EmotionModelFile: *emotionFile,
	})
	if err != nil {
		logger.Error("Main", "failed to load emotion analyzer: %v", err)
		os.Exit(1)
	}
	defer analyzer.Close()

	pipeline := stream.New(
		camera.NewDeviceOpener(*cameraIndex, *mirror),
		analyzer,
		overlay.New(),
		m,
		stream.Config{
			FrameSkip:   *frameSkip,
			ReopenDelay: time.Second,
			JPEGQuality: *jpegQuality,
		},
	)
	if err := pipeline.Open(); err != nil {
		logger.Error("Main", "failed to open camera %d: %v", *cameraIndex, err)
		logger.Error("Main", "tip: try --camera-index 0, 1, or 2")
		os.Exit(1)
	}
	defer pipeline.Close()

	broadcaster := stream.NewBroadcaster(pipeline, m)
	broadcaster.Start()
	defer broadcaster.Stop()

	server := web.NewServer(web.Config{Addr: *addr}, pipeline, broadcaster)
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	if *metricsAddr != "" {
		go func() {
			logger.Info("Main", "metrics listening on %s", *metricsAddr)
			if err := m.StartServer(*metricsAddr); err != nil && err != http.ErrServerClosed {
				logger.Error("Main", "metrics server failed: %v", err)
			}
		}()
	}

	go func() {
		logger.Info("Main", "serving on %s (camera=%d, backend=%s, frame-skip=%d)",
			*addr, *cameraIndex, *backend, *frameSkip)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Main", "HTTP server failed: %v", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Main", "received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("Main", "HTTP shutdown: %v", err)
	}
}
