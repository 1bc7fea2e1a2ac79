// Package testutil generates synthetic receipt imagery for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/obraops/captura/internal/utils"
)

// SolidImage returns a uniformly colored RGBA image.
func SolidImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// ReceiptScene paints a bright convex quadrilateral (the receipt) on a
// dark background, the shape boundary detection is built to find.
func ReceiptScene(width, height int, corners [4]utils.Point) *image.RGBA {
	img := SolidImage(width, height, color.RGBA{R: 40, G: 40, B: 40, A: 255})
	FillQuad(img, corners, color.RGBA{R: 235, G: 235, B: 235, A: 255})
	return img
}

// FillQuad fills the convex quadrilateral with the given color using a
// scanline point-in-polygon test.
func FillQuad(img *image.RGBA, corners [4]utils.Point, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if pointInQuad(float64(x)+0.5, float64(y)+0.5, corners) {
				img.Set(x, y, c)
			}
		}
	}
}

// pointInQuad uses the even-odd rule over the quad's edges.
func pointInQuad(x, y float64, corners [4]utils.Point) bool {
	inside := false
	j := 3
	for i := 0; i < 4; i++ {
		pi, pj := corners[i], corners[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// TextImage renders lines of text onto a white canvas with the basic
// bitmap font. The result is legible enough for pipeline plumbing tests.
func TextImage(width, height int, lines []string) *image.RGBA {
	img := SolidImage(width, height, color.White)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{color.Black},
		Face: basicfont.Face7x13,
	}

	lineHeight := basicfont.Face7x13.Metrics().Height.Ceil() + 4
	for i, line := range lines {
		drawer.Dot = fixed.P(10, 20+i*lineHeight)
		drawer.DrawString(line)
	}
	return img
}

// EncodePNG encodes an image for use as an upload payload.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
