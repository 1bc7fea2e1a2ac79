package detector

import (
	"image"
	"math"
)

// edge strength classification used during hysteresis.
const (
	edgeNone   = 0
	edgeWeak   = 1
	edgeStrong = 2
)

// cannyEdges produces a binary edge map from a smoothed grayscale image
// using Sobel gradients, non-maximum suppression along the quantized
// gradient direction, and two-threshold hysteresis.
func cannyEdges(src *image.Gray, lowThresh, highThresh float64) []bool {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return make([]bool, w*h)
	}

	mag := make([]float64, w*h)
	dir := make([]uint8, w*h) // 0: E-W, 1: NE-SW, 2: N-S, 3: NW-SE
	at := func(x, y int) int {
		return int(src.GrayAt(x+b.Min.X, y+b.Min.Y).Y)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			i := y*w + x
			mag[i] = math.Hypot(float64(gx), float64(gy))
			dir[i] = quantizeDirection(float64(gx), float64(gy))
		}
	}

	cls := classifyEdges(mag, dir, w, h, lowThresh, highThresh)
	return hysteresis(cls, w, h)
}

// quantizeDirection buckets a gradient vector into one of four directions.
func quantizeDirection(gx, gy float64) uint8 {
	angle := math.Atan2(gy, gx) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}
	switch {
	case angle < 22.5 || angle >= 157.5:
		return 0
	case angle < 67.5:
		return 1
	case angle < 112.5:
		return 2
	default:
		return 3
	}
}

// classifyEdges performs non-maximum suppression and marks each pixel as
// none, weak, or strong relative to the two thresholds.
func classifyEdges(mag []float64, dir []uint8, w, h int, low, high float64) []uint8 {
	cls := make([]uint8, w*h)
	var offsets = [4][2][2]int{
		{{1, 0}, {-1, 0}},  // E-W
		{{1, -1}, {-1, 1}}, // NE-SW
		{{0, 1}, {0, -1}},  // N-S
		{{1, 1}, {-1, -1}}, // NW-SE
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m < low {
				continue
			}
			o := offsets[dir[i]]
			n1 := mag[(y+o[0][1])*w+x+o[0][0]]
			n2 := mag[(y+o[1][1])*w+x+o[1][0]]
			if m < n1 || m < n2 {
				continue
			}
			if m >= high {
				cls[i] = edgeStrong
			} else {
				cls[i] = edgeWeak
			}
		}
	}
	return cls
}

// hysteresis keeps strong edges plus any weak edges 8-connected to a
// strong edge, directly or transitively.
func hysteresis(cls []uint8, w, h int) []bool {
	out := make([]bool, w*h)
	stack := make([]int, 0, w*h/8)
	for i, c := range cls {
		if c == edgeStrong {
			out[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := cx+dx, cy+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if cls[ni] == edgeWeak && !out[ni] {
					out[ni] = true
					stack = append(stack, ni)
				}
			}
		}
	}
	return out
}
