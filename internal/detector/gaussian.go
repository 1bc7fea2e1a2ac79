package detector

import "image"

// gaussianKernel5 is the normalized 5x5 Gaussian kernel (sigma ~1.1),
// expressed as integer weights summing to 256 for a cheap fixed-point pass.
var gaussianKernel5 = [5][5]int{
	{1, 4, 6, 4, 1},
	{4, 16, 24, 16, 4},
	{6, 24, 36, 24, 6},
	{4, 16, 24, 16, 4},
	{1, 4, 6, 4, 1},
}

const gaussianKernel5Sum = 256

// gaussianBlur5 applies a 5x5 Gaussian smoothing pass over a grayscale
// image. Pixels sampled beyond the border are clamped to the nearest edge.
func gaussianBlur5(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for ky := -2; ky <= 2; ky++ {
				sy := clamp(y+ky, 0, h-1)
				for kx := -2; kx <= 2; kx++ {
					sx := clamp(x+kx, 0, w-1)
					sum += int(src.GrayAt(sx+b.Min.X, sy+b.Min.Y).Y) * gaussianKernel5[ky+2][kx+2]
				}
			}
			out.Pix[y*out.Stride+x] = uint8(sum / gaussianKernel5Sum)
		}
	}
	return out
}
