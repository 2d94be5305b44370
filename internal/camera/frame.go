package camera

import (
	"image"
	"image/draw"
)

// ToRGBA returns img as an *image.RGBA, copying only when the backing
// representation differs. Overlay drawing needs a mutable RGBA buffer.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
