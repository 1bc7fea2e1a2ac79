package detector_test

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obraops/captura/internal/detector"
	"github.com/obraops/captura/internal/testutil"
	"github.com/obraops/captura/internal/utils"
)

const cornerTolerance = 8.0

// nearestCorner returns the smallest distance from p to any expected corner.
func nearestCorner(p utils.Point, expected [4]utils.Point) float64 {
	best := utils.Distance(p, expected[0])
	for _, q := range expected[1:] {
		if d := utils.Distance(p, q); d < best {
			best = d
		}
	}
	return best
}

func TestDetectAxisAlignedReceipt(t *testing.T) {
	corners := [4]utils.Point{{X: 30, Y: 40}, {X: 170, Y: 40}, {X: 170, Y: 160}, {X: 30, Y: 160}}
	img := testutil.ReceiptScene(200, 200, corners)

	b := detector.NewDetector(detector.DefaultConfig()).Detect(img)
	require.True(t, b.Detected)
	require.Len(t, b.Corners, 4)

	for _, c := range b.Corners {
		assert.LessOrEqual(t, nearestCorner(c, corners), cornerTolerance,
			"corner %v too far from any expected corner", c)
	}

	// The receipt covers 42% of the frame; confidence tracks that area.
	assert.Greater(t, b.Confidence, 25.0)
	assert.LessOrEqual(t, b.Confidence, 95.0)
}

func TestDetectTiltedReceipt(t *testing.T) {
	corners := [4]utils.Point{{X: 60, Y: 30}, {X: 150, Y: 45}, {X: 160, Y: 170}, {X: 40, Y: 150}}
	img := testutil.ReceiptScene(220, 220, corners)

	b := detector.NewDetector(detector.DefaultConfig()).Detect(img)
	require.True(t, b.Detected)
	require.Len(t, b.Corners, 4)
	for _, c := range b.Corners {
		assert.LessOrEqual(t, nearestCorner(c, corners), cornerTolerance)
	}
}

func TestDetectConfidenceCap(t *testing.T) {
	// A receipt filling nearly the whole frame stays under the 95 ceiling.
	corners := [4]utils.Point{{X: 3, Y: 3}, {X: 216, Y: 3}, {X: 216, Y: 216}, {X: 3, Y: 216}}
	img := testutil.ReceiptScene(220, 220, corners)

	b := detector.NewDetector(detector.DefaultConfig()).Detect(img)
	require.True(t, b.Detected)
	assert.LessOrEqual(t, b.Confidence, 95.0)
	assert.Greater(t, b.Confidence, 85.0)
}

func TestDetectNothingOnFlatImage(t *testing.T) {
	b := detector.NewDetector(detector.DefaultConfig()).Detect(
		testutil.SolidImage(200, 200, color.RGBA{90, 90, 90, 255}))
	assert.False(t, b.Detected)
	assert.Zero(t, b.Confidence)
	assert.Empty(t, b.Corners)
}

func TestDetectRejectsSmallQuad(t *testing.T) {
	// 30x30 on a 200x200 frame is 2.25% of the area, under the 10% floor.
	corners := [4]utils.Point{{X: 80, Y: 80}, {X: 110, Y: 80}, {X: 110, Y: 110}, {X: 80, Y: 110}}
	img := testutil.ReceiptScene(200, 200, corners)

	b := detector.NewDetector(detector.DefaultConfig()).Detect(img)
	assert.False(t, b.Detected)
}

func TestDetectTinyImage(t *testing.T) {
	b := detector.NewDetector(detector.DefaultConfig()).Detect(
		testutil.SolidImage(4, 4, color.White))
	assert.False(t, b.Detected)
}

func TestDetectNilImage(t *testing.T) {
	b := detector.NewDetector(detector.DefaultConfig()).Detect(nil)
	assert.False(t, b.Detected)
}

func TestNewDetectorConfigFallbacks(t *testing.T) {
	d := detector.NewDetector(detector.Config{})
	assert.Equal(t, detector.DefaultConfig(), d.Config())

	d = detector.NewDetector(detector.Config{MinAreaFraction: 0.25, LowThreshold: 30, HighThreshold: 90, ApproxEpsilonFraction: 0.03})
	assert.Equal(t, 0.25, d.Config().MinAreaFraction)
	assert.Equal(t, 30.0, d.Config().LowThreshold)
}

func TestDetectDeterministic(t *testing.T) {
	corners := [4]utils.Point{{X: 30, Y: 40}, {X: 170, Y: 40}, {X: 170, Y: 160}, {X: 30, Y: 160}}
	img := testutil.ReceiptScene(200, 200, corners)
	d := detector.NewDetector(detector.DefaultConfig())

	first := d.Detect(img)
	second := d.Detect(img)
	assert.Equal(t, first, second)
}
