package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
	}{
		{"same point", Point{X: 1, Y: 1}, Point{X: 1, Y: 1}, 0},
		{"horizontal", Point{X: 0, Y: 0}, Point{X: 3, Y: 0}, 3},
		{"vertical", Point{X: 0, Y: 0}, Point{X: 0, Y: 4}, 4},
		{"diagonal 3-4-5", Point{X: 0, Y: 0}, Point{X: 3, Y: 4}, 5},
		{"negative coords", Point{X: -1, Y: -1}, Point{X: 2, Y: 3}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.a, tt.b), 1e-9)
		})
	}
}

func TestNewBox(t *testing.T) {
	b := NewBox(10, 20, 4, 2)
	assert.Equal(t, 4.0, b.MinX)
	assert.Equal(t, 2.0, b.MinY)
	assert.Equal(t, 10.0, b.MaxX)
	assert.Equal(t, 20.0, b.MaxY)
	assert.Equal(t, 6.0, b.Width())
	assert.Equal(t, 18.0, b.Height())
}

func TestBoundingBox(t *testing.T) {
	pts := []Point{{X: 3, Y: 7}, {X: -2, Y: 4}, {X: 5, Y: -1}, {X: 0, Y: 0}}
	b := BoundingBox(pts)
	assert.Equal(t, Box{MinX: -2, MinY: -1, MaxX: 5, MaxY: 7}, b)

	assert.Equal(t, Box{}, BoundingBox(nil))
}

func TestPolygonArea(t *testing.T) {
	tests := []struct {
		name     string
		pts      []Point
		expected float64
	}{
		{"too few points", []Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, 0},
		{"unit square", []Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, 1},
		{"rectangle", []Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 3}, {X: 0, Y: 3}}, 12},
		{"triangle", []Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}, 6},
		{"clockwise rectangle", []Point{{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 4, Y: 3}, {X: 4, Y: 0}}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PolygonArea(tt.pts), 1e-9)
		})
	}
}

func TestPolygonPerimeter(t *testing.T) {
	square := []Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2}}
	assert.InDelta(t, 8.0, PolygonPerimeter(square), 1e-9)

	assert.Equal(t, 0.0, PolygonPerimeter([]Point{{X: 1, Y: 1}}))
}
