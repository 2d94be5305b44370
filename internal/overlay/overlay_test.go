package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/ayanel/emotion-mirror/internal/emotion"
)

var background = color.RGBA{R: 40, G: 40, B: 40, A: 255}

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	return img
}

func TestDrawSkipsIncompleteDetections(t *testing.T) {
	img := newCanvas(100, 100)
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)

	New().Draw(img, []emotion.Detection{
		{Region: nil, Emotion: "happy"},
		{Region: &emotion.Region{X: 10, Y: 40, Width: 30, Height: 30}, Emotion: ""},
	})

	if !bytes.Equal(before, img.Pix) {
		t.Error("detections without a region or an emotion must not be drawn")
	}
}

func TestDrawBoxOutline(t *testing.T) {
	img := newCanvas(120, 120)
	r := New()

	r.Draw(img, []emotion.Detection{{
		Region:  &emotion.Region{X: 20, Y: 50, Width: 40, Height: 40},
		Emotion: "neutral",
	}})

	edges := map[string]image.Point{
		"top":    {X: 40, Y: 50},
		"bottom": {X: 40, Y: 89},
		"left":   {X: 20, Y: 70},
		"right":  {X: 59, Y: 70},
	}
	for name, pt := range edges {
		if got := img.RGBAAt(pt.X, pt.Y); got != r.Box {
			t.Errorf("%s edge at %v: got %v, want %v", name, pt, got, r.Box)
		}
	}

	if got := img.RGBAAt(40, 70); got != background {
		t.Errorf("box interior must stay untouched, got %v", got)
	}
}

func TestDrawLabelAboveBox(t *testing.T) {
	img := newCanvas(200, 120)
	r := New()

	x, y := 30, 60
	r.Draw(img, []emotion.Detection{{
		Region:  &emotion.Region{X: x, Y: y, Width: 50, Height: 40},
		Emotion: "happy",
	}})

	// Label background sits just above the box origin.
	if got := img.RGBAAt(x+2, y-8); got != r.Box {
		t.Errorf("expected label background above the box, got %v", got)
	}

	// The text itself is drawn in the contrasting label color.
	found := false
	for py := y - 30; py < y-5 && !found; py++ {
		for px := x; px < x+120; px++ {
			if img.RGBAAt(px, py) == r.LabelText {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("no label text pixel found above the box")
	}
}

func TestLabelText(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"happy", "Emotion: Happy"},
		{"HAPPY", "Emotion: Happy"},
		{"surprise", "Emotion: Surprise"},
		{"", ""},
	}
	for _, c := range cases {
		if got := labelText(c.in); got != c.want {
			t.Errorf("labelText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
