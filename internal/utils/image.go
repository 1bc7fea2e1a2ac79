package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ToGray converts an image to 8-bit grayscale using the Rec. 601 luma
// weights (0.299 R + 0.587 G + 0.114 B).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			out.SetGray(x-b.Min.X, y-b.Min.Y, imageGray(lum))
		}
	}
	return out
}

func imageGray(v float64) color.Gray {
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return color.Gray{Y: uint8(v + 0.5)}
}

// ResizeToFit scales an image down so its longer side is at most maxSide,
// preserving aspect ratio. Images already within the bound are returned
// unchanged; upscaling never occurs. Uses Lanczos resampling.
func ResizeToFit(img image.Image, maxSide int) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("input image is nil")}
	}
	if maxSide <= 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: fmt.Errorf("invalid max side %d", maxSide)}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, &ImageProcessingError{Operation: "resize", Err: errors.New("empty image")}
	}
	if w <= maxSide && h <= maxSide {
		return img, nil
	}
	if w >= h {
		return imaging.Resize(img, maxSide, 0, imaging.Lanczos), nil
	}
	return imaging.Resize(img, 0, maxSide, imaging.Lanczos), nil
}

// CloneRGBA returns a copy of img as NRGBA with bounds at the origin.
func CloneRGBA(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}
