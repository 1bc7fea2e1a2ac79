// Package detector locates the quadrilateral most likely to be the
// photographed document within a capture, with a confidence score.
//
// The pass order is fixed: grayscale, 5x5 Gaussian smoothing, Canny-style
// two-threshold edge detection, external contour extraction, Douglas-Peucker
// polygon approximation, and largest-quadrilateral selection. Finding no
// document is a valid low-information result, never an error.
package detector

import (
	"image"
	"log/slog"
	"math"

	"github.com/obraops/captura/internal/utils"
)

// Config holds boundary detection tuning.
type Config struct {
	// MinAreaFraction discards contours enclosing less than this fraction
	// of the total image area.
	MinAreaFraction float64
	// LowThreshold and HighThreshold are the Canny hysteresis thresholds.
	LowThreshold  float64
	HighThreshold float64
	// ApproxEpsilonFraction scales the Douglas-Peucker tolerance relative
	// to the contour perimeter.
	ApproxEpsilonFraction float64
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() Config {
	return Config{
		MinAreaFraction:       0.10,
		LowThreshold:          50,
		HighThreshold:         150,
		ApproxEpsilonFraction: 0.02,
	}
}

// Boundary is the outcome of a detection pass. When Detected is false,
// Confidence is 0 and Corners is empty.
type Boundary struct {
	Detected   bool          `json:"detected"`
	Confidence float64       `json:"confidence"`
	Corners    []utils.Point `json:"corners,omitempty"`
}

// NotDetected is the canonical low-information result.
func NotDetected() Boundary { return Boundary{} }

// Detector finds document boundaries in captured rasters.
type Detector struct {
	cfg    Config
	logger *slog.Logger
}

// NewDetector constructs a Detector. Invalid config fields fall back to
// defaults so a zero Config is usable.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MinAreaFraction <= 0 || cfg.MinAreaFraction >= 1 {
		cfg.MinAreaFraction = def.MinAreaFraction
	}
	if cfg.LowThreshold <= 0 {
		cfg.LowThreshold = def.LowThreshold
	}
	if cfg.HighThreshold <= cfg.LowThreshold {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.ApproxEpsilonFraction <= 0 {
		cfg.ApproxEpsilonFraction = def.ApproxEpsilonFraction
	}
	return &Detector{cfg: cfg, logger: slog.Default().With("component", "detector")}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect runs the full detection pass. Detection is best-effort: internal
// failures degrade to a not-detected result rather than propagating.
func (d *Detector) Detect(img image.Image) (result Boundary) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("detection pass panicked, treating as not detected", "panic", r)
			result = NotDetected()
		}
	}()
	if img == nil {
		return NotDetected()
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 8 || h < 8 {
		return NotDetected()
	}
	totalArea := float64(w) * float64(h)

	gray := utils.ToGray(img)
	smoothed := gaussianBlur5(gray)
	edges := cannyEdges(smoothed, d.cfg.LowThreshold, d.cfg.HighThreshold)

	comps, labels := connectedComponents(edges, w, h)

	var best []utils.Point
	bestArea := 0.0
	minArea := d.cfg.MinAreaFraction * totalArea
	for i, st := range comps {
		// A component whose bounding box cannot enclose the minimum area
		// cannot yield a passing contour.
		bboxArea := float64(st.maxX-st.minX+1) * float64(st.maxY-st.minY+1)
		if bboxArea < minArea {
			continue
		}
		contour := traceContourMoore(labels, w, h, i+1, st)
		if len(contour) < 4 {
			continue
		}
		area := utils.PolygonArea(contour)
		if area < minArea {
			continue
		}
		eps := d.cfg.ApproxEpsilonFraction * utils.PolygonPerimeter(contour)
		quad := utils.SimplifyPolygon(contour, eps)
		if len(quad) != 4 {
			continue
		}
		quadArea := utils.PolygonArea(quad)
		if quadArea < minArea {
			continue
		}
		if quadArea > bestArea {
			bestArea = quadArea
			best = quad
		}
	}

	if best == nil {
		return NotDetected()
	}

	conf := math.Min(95, 100*bestArea/totalArea)
	d.logger.Debug("document boundary detected",
		"area_fraction", bestArea/totalArea, "confidence", conf)
	return Boundary{Detected: true, Confidence: conf, Corners: best}
}
