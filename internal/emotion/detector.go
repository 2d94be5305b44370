package emotion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const dnnConfidenceThreshold = 0.5

// faceDetector locates face rectangles on a BGR frame.
type faceDetector interface {
	detect(frame gocv.Mat) ([]image.Rectangle, error)
	close() error
}

// haarDetector wraps an OpenCV Haar cascade classifier.
type haarDetector struct {
	classifier gocv.CascadeClassifier
}

func newHaarDetector(cascadeFile string) (*haarDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadeFile) {
		_ = classifier.Close()
		return nil, fmt.Errorf("load cascade %s failed", cascadeFile)
	}
	return &haarDetector{classifier: classifier}, nil
}

func (d *haarDetector) detect(frame gocv.Mat) ([]image.Rectangle, error) {
	return d.classifier.DetectMultiScale(frame), nil
}

func (d *haarDetector) close() error {
	return d.classifier.Close()
}

// dnnDetector wraps an SSD face detection network (res10 300x300).
type dnnDetector struct {
	net gocv.Net
}

func newDNNDetector(modelFile, configFile string) (*dnnDetector, error) {
	net := gocv.ReadNet(modelFile, configFile)
	if net.Empty() {
		return nil, fmt.Errorf("load face detection network %s failed", modelFile)
	}
	return &dnnDetector{net: net}, nil
}

func (d *dnnDetector) detect(frame gocv.Mat) ([]image.Rectangle, error) {
	blob := gocv.BlobFromImage(frame, 1.0, image.Pt(300, 300),
		gocv.NewScalar(104, 177, 123, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	cols := float32(frame.Cols())
	rows := float32(frame.Rows())

	var rects []image.Rectangle
	for i := 0; i < out.Total(); i += 7 {
		confidence := out.GetFloatAt(0, i+2)
		if confidence < dnnConfidenceThreshold {
			continue
		}
		left := int(out.GetFloatAt(0, i+3) * cols)
		top := int(out.GetFloatAt(0, i+4) * rows)
		right := int(out.GetFloatAt(0, i+5) * cols)
		bottom := int(out.GetFloatAt(0, i+6) * rows)
		rects = append(rects, image.Rect(left, top, right, bottom))
	}
	return rects, nil
}

func (d *dnnDetector) close() error {
	return d.net.Close()
}
