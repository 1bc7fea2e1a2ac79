// Package enhance prepares a raster for text recognition: bounded resize,
// luma grayscale, and a deterministic piecewise contrast stretch.
//
// The stage is pure and total. Determinism matters here: the same input
// always yields the same pixels, which keeps OCR results reproducible in
// tests.
package enhance

import (
	"image"
	"image/color"

	"github.com/obraops/captura/internal/utils"
)

// MaxSide bounds the longer side of the enhanced output in pixels.
const MaxSide = 1200

// Contrast stretch constants. Values above the threshold are scaled up,
// values at or below it are scaled down, both clamped to the byte range.
const (
	contrastThreshold = 128
	contrastUpFactor  = 1.3
	contrastDownScale = 0.7
)

// Enhancer converts a raster into the grayscale, contrast-stretched form
// the recognizer consumes.
type Enhancer struct {
	maxSide int
}

// NewEnhancer returns an Enhancer with the default size bound.
func NewEnhancer() *Enhancer { return &Enhancer{maxSide: MaxSide} }

// Enhance produces a new grayscale raster: the input is scaled down so its
// longer side is at most MaxSide (never upscaled), converted to grayscale
// with Rec. 601 luma weights, and contrast-stretched. An alpha channel on
// the input is carried through unmodified.
func (e *Enhancer) Enhance(img image.Image) (image.Image, error) {
	resized, err := utils.ResizeToFit(img, e.maxSide)
	if err != nil {
		return nil, err
	}

	b := resized.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := resized.At(x+b.Min.X, y+b.Min.Y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			v := StretchContrast(lum)
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: uint8(a >> 8)})
		}
	}
	return out, nil
}

// StretchContrast applies the piecewise stretch to one grayscale value.
func StretchContrast(v float64) uint8 {
	if v > contrastThreshold {
		v *= contrastUpFactor
		if v > 255 {
			v = 255
		}
	} else {
		v *= contrastDownScale
		if v < 0 {
			v = 0
		}
	}
	return uint8(v + 0.5)
}
