// Package overlay draws detection boxes and emotion labels onto frames.
package overlay

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"github.com/ayanel/emotion-mirror/internal/emotion"
)

// Renderer annotates frames in place. The zero value is not usable;
// construct with New.
type Renderer struct {
	Box       color.RGBA // box outline and label background
	LabelText color.RGBA // label text, contrasting with Box
	Face      font.Face
	Thickness int
}

// New returns a renderer with the classic green-box look.
func New() *Renderer {
	return &Renderer{
		Box:       color.RGBA{G: 255, A: 255},
		LabelText: color.RGBA{A: 255},
		Face:      inconsolata.Regular8x16,
		Thickness: 2,
	}
}

// Draw annotates img with every complete detection, in slice order.
// Detections missing a region or an emotion label are skipped.
func (r *Renderer) Draw(img *image.RGBA, detections []emotion.Detection) {
	for _, det := range detections {
		if det.Region == nil || det.Emotion == "" {
			continue
		}
		box := image.Rect(
			det.Region.X,
			det.Region.Y,
			det.Region.X+det.Region.Width,
			det.Region.Y+det.Region.Height,
		)
		r.strokeRect(img, box)
		r.drawLabel(img, det.Region.X, det.Region.Y, labelText(det.Emotion))
	}
}

// labelText renders the emotion name as the on-frame label.
func labelText(name string) string {
	if name == "" {
		return ""
	}
	return "Emotion: " + strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// drawLabel paints a filled background sized to the measured text just
// above the box origin, then the text itself.
func (r *Renderer) drawLabel(img *image.RGBA, x, y int, text string) {
	width := font.MeasureString(r.Face, text).Ceil()
	m := r.Face.Metrics()
	height := (m.Ascent + m.Descent).Ceil()

	bg := image.Rect(x, y-height-10, x+width, y-5)
	draw.Draw(img, bg.Intersect(img.Bounds()), &image.Uniform{r.Box}, image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{r.LabelText},
		Face: r.Face,
		Dot:  fixed.P(x, y-10),
	}
	d.DrawString(text)
}

// strokeRect draws a rectangle outline as four filled bars, clipped to
// the image bounds.
func (r *Renderer) strokeRect(img *image.RGBA, rect image.Rectangle) {
	t := r.Thickness
	src := &image.Uniform{r.Box}
	bars := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t), // top
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y), // bottom
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y), // left
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y), // right
	}
	for _, bar := range bars {
		draw.Draw(img, bar.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}
