// Package rectify warps a detected document quadrilateral into a
// rectangular, top-down view via a 4-point planar homography.
package rectify

import (
	"fmt"
	"math"
	"sort"

	"image"

	"github.com/obraops/captura/internal/utils"
)

// DegenerateGeometryError reports corners that cannot form a usable
// quadrilateral (collinear, duplicate, or otherwise collapsing to a target
// rectangle with a non-positive side).
type DegenerateGeometryError struct {
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate document geometry: %s", e.Reason)
}

// Corners is an ordered quadrilateral: top-left, top-right, bottom-right,
// bottom-left.
type Corners [4]utils.Point

// TopLeft returns the top-left corner.
func (c Corners) TopLeft() utils.Point { return c[0] }

// TopRight returns the top-right corner.
func (c Corners) TopRight() utils.Point { return c[1] }

// BottomRight returns the bottom-right corner.
func (c Corners) BottomRight() utils.Point { return c[2] }

// BottomLeft returns the bottom-left corner.
func (c Corners) BottomLeft() utils.Point { return c[3] }

// OrderCorners orders 4 arbitrary corner points as TL, TR, BR, BL.
// The points are split into a top pair and a bottom pair by vertical
// coordinate, then each pair is ordered horizontally. The warp assumes this
// fixed corner-to-corner correspondence.
func OrderCorners(pts [4]utils.Point) Corners {
	s := pts[:]
	sort.SliceStable(s, func(i, j int) bool { return s[i].Y < s[j].Y })
	top := []utils.Point{s[0], s[1]}
	bottom := []utils.Point{s[2], s[3]}
	if top[0].X > top[1].X {
		top[0], top[1] = top[1], top[0]
	}
	if bottom[0].X > bottom[1].X {
		bottom[0], bottom[1] = bottom[1], bottom[0]
	}
	return Corners{top[0], top[1], bottom[1], bottom[0]}
}

// TargetSize computes the output rectangle dimensions: width is the longer
// of the two horizontal edges, height the longer of the two vertical edges,
// both measured in source pixel space.
func TargetSize(c Corners) (int, int) {
	w := math.Max(utils.Distance(c.TopLeft(), c.TopRight()), utils.Distance(c.BottomLeft(), c.BottomRight()))
	h := math.Max(utils.Distance(c.TopLeft(), c.BottomLeft()), utils.Distance(c.TopRight(), c.BottomRight()))
	return int(math.Round(w)), int(math.Round(h))
}

// Rectifier resamples a source image through a projective transform into a
// top-down rectangular canvas.
type Rectifier struct{}

// NewRectifier constructs a Rectifier.
func NewRectifier() *Rectifier { return &Rectifier{} }

// Rectify orders the given corner points, computes the homography onto the
// target rectangle, and resamples the source with bilinear interpolation.
// The source image is never mutated; a new raster is returned.
func (r *Rectifier) Rectify(src image.Image, corners [4]utils.Point) (image.Image, error) {
	ordered := OrderCorners(corners)
	if utils.PolygonArea(ordered[:]) < 1 {
		return nil, &DegenerateGeometryError{Reason: "corners are collinear or coincident"}
	}
	w, h := TargetSize(ordered)
	if w <= 0 || h <= 0 {
		return nil, &DegenerateGeometryError{Reason: fmt.Sprintf("target size %dx%d", w, h)}
	}
	dst := warpPerspective(src, [4]utils.Point(ordered), w, h)
	if dst == nil {
		return nil, &DegenerateGeometryError{Reason: "homography is singular"}
	}
	return dst, nil
}
