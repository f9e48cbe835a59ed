package frames

import (
	"image"

	"golang.org/x/image/draw"
)

// Downscale resizes img by factor using bilinear interpolation. A factor
// outside (0, 1) returns img unchanged.
func Downscale(img image.Image, factor float64) image.Image {
	if img == nil || factor <= 0 || factor >= 1 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Upscale maps a position detected on a frame downscaled by factor back to
// original-frame coordinates.
func Upscale(x, y, factor float64) (float64, float64) {
	if factor <= 0 || factor >= 1 {
		return x, y
	}
	return x / factor, y / factor
}
