package utils

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestToGrayLumaWeights(t *testing.T) {
	tests := []struct {
		name     string
		in       color.RGBA
		expected uint8
	}{
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"pure red", color.RGBA{255, 0, 0, 255}, 76},   // 0.299 * 255
		{"pure green", color.RGBA{0, 255, 0, 255}, 150}, // 0.587 * 255
		{"pure blue", color.RGBA{0, 0, 255, 255}, 29},   // 0.114 * 255
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ToGray(solid(4, 4, tt.in))
			assert.Equal(t, tt.expected, g.GrayAt(2, 2).Y)
		})
	}
}

func TestToGrayPassthrough(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 3))
	assert.Same(t, g, ToGray(g))
}

func TestResizeToFit(t *testing.T) {
	tests := []struct {
		name       string
		w, h       int
		maxSide    int
		expW, expH int
	}{
		{"within bound untouched", 100, 50, 1200, 100, 50},
		{"wide image scaled", 2400, 1200, 1200, 1200, 600},
		{"tall image scaled", 600, 2400, 1200, 300, 1200},
		{"exactly at bound", 1200, 800, 1200, 1200, 800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ResizeToFit(solid(tt.w, tt.h, color.White), tt.maxSide)
			require.NoError(t, err)
			assert.Equal(t, tt.expW, out.Bounds().Dx())
			assert.Equal(t, tt.expH, out.Bounds().Dy())
		})
	}
}

func TestResizeToFitErrors(t *testing.T) {
	_, err := ResizeToFit(nil, 100)
	var procErr *ImageProcessingError
	require.True(t, errors.As(err, &procErr))
	assert.Equal(t, "resize", procErr.Operation)

	_, err = ResizeToFit(solid(10, 10, color.White), 0)
	assert.Error(t, err)
}

func TestCloneRGBA(t *testing.T) {
	src := solid(5, 5, color.RGBA{10, 20, 30, 255})
	dst := CloneRGBA(src)
	require.Equal(t, image.Rect(0, 0, 5, 5), dst.Bounds())

	dst.Set(0, 0, color.NRGBA{R: 1, G: 1, B: 1, A: 255})
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, src.RGBAAt(0, 0))
}
