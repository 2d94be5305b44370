package emotion

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayanel/emotion-mirror/internal/logger"
)

// Backend identifiers recognized by NewEngine.
const (
	BackendHaar = "haar"
	BackendDNN  = "dnn"
)

// Config selects the face-detector backend and the model files.
type Config struct {
	Backend          string // "haar" or "dnn"
	CascadeFile      string // Haar cascade (haar backend)
	FaceModelFile    string // res10 SSD weights (dnn backend)
	FaceConfigFile   string // res10 SSD deploy prototxt (dnn backend)
	EmotionModelFile string // emotion classification network (ONNX)
}

// DefaultConfig returns the default backend and model locations.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendHaar,
		CascadeFile:      filepath.Join("models", "haarcascade_frontalface_default.xml"),
		FaceModelFile:    filepath.Join("models", "res10_300x300_ssd_iter_140000.caffemodel"),
		FaceConfigFile:   filepath.Join("models", "res10_ssd_deploy.prototxt"),
		EmotionModelFile: filepath.Join("models", "emotion_fer2013.onnx"),
	}
}

// Engine is the live Analyzer. It detects faces with the configured
// backend, then classifies a 48x48 grayscale crop of each face.
type Engine struct {
	mu       sync.Mutex
	detector faceDetector
	net      gocv.Net
}

// NewEngine loads the detector backend and the emotion network.
func NewEngine(cfg Config) (*Engine, error) {
	var (
		detector faceDetector
		err      error
	)
	switch cfg.Backend {
	case BackendHaar:
		detector, err = newHaarDetector(cfg.CascadeFile)
	case BackendDNN:
		detector, err = newDNNDetector(cfg.FaceModelFile, cfg.FaceConfigFile)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.EmotionModelFile, "")
	if net.Empty() {
		_ = detector.close()
		return nil, fmt.Errorf("load emotion network %s failed", cfg.EmotionModelFile)
	}

	logger.Info("Emotion", "analyzer ready (backend=%s)", cfg.Backend)
	return &Engine{detector: detector, net: net}, nil
}

// Analyze implements Analyzer. It is safe for concurrent use; calls
// are serialized because the underlying networks are stateful.
func (e *Engine) Analyze(img *image.RGBA) ([]Detection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rgba, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer rgba.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	gocv.CvtColor(rgba, &frame, gocv.ColorRGBAToBGR)

	rects, err := e.detector.detect(frame)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	detections := make([]Detection, 0, len(rects))
	for _, rect := range rects {
		rect = rect.Intersect(bounds)
		if rect.Empty() {
			continue
		}
		detections = append(detections, Detection{
			Region: &Region{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
			Emotion: e.classify(frame, rect),
		})
	}
	return detections, nil
}

// classify returns the dominant emotion for one face crop, or "" when
// the network output does not match the vocabulary.
func (e *Engine) classify(frame gocv.Mat, rect image.Rectangle) string {
	face := frame.Region(rect)
	defer face.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(face, &gray, gocv.ColorBGRToGray)

	blob := gocv.BlobFromImage(gray, 1.0/255.0, image.Pt(48, 48),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	scores := make([]float32, out.Total())
	for i := range scores {
		scores[i] = out.GetFloatAt(0, i)
	}
	return Dominant(scores)
}

// Close releases the loaded networks.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.detector.close()
	if nerr := e.net.Close(); err == nil {
		err = nerr
	}
	return err
}
