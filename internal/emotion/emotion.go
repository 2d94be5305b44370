// Package emotion defines the facial-emotion inference contract and
// its OpenCV-backed implementation.
package emotion

import "image"

// Labels is the fixed vocabulary of the emotion classifier, in the
// output order of the model.
var Labels = []string{"angry", "disgust", "fear", "happy", "sad", "surprise", "neutral"}

// Region is a face bounding rectangle in frame pixel coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Detection is one recognized face. Either field may be missing when a
// model produced a partial result; consumers skip such detections.
type Detection struct {
	Region  *Region `json:"region"`
	Emotion string  `json:"emotion"`
}

// Analyzer runs facial-emotion inference on a single frame and returns
// one detection per recognized face. An empty slice means no faces.
type Analyzer interface {
	Analyze(img *image.RGBA) ([]Detection, error)
}

// Dominant maps a score vector to its label. It returns "" when the
// vector does not match the label vocabulary.
func Dominant(scores []float32) string {
	if len(scores) != len(Labels) {
		return ""
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return Labels[best]
}
