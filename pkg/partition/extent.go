// Package partition implements the spatial partitioning engine: it derives
// a tiling scheme from a layer's bounding extent, classifies every feature
// into exactly one tile by its representative point, and drives per-tile
// output writing through the geostore package.
package partition

import "math"

// Extent is a 2-D axis-aligned bounding box in layer coordinates.
//
// The four bounds are ordered the way OGR reports a layer extent:
// (MinX, MaxX, MinY, MaxY). An Extent is a plain value; it is created once
// per source layer and never mutated.
type Extent struct {
	MinX, MaxX, MinY, MaxY float64
}

// Width returns the X span of the extent.
func (e Extent) Width() float64 {
	return e.MaxX - e.MinX
}

// Height returns the Y span of the extent.
func (e Extent) Height() float64 {
	return e.MaxY - e.MinY
}

// MidY returns the horizontal split line used by the grid strategies.
//
// The half-height is floor-divided before being added back to MinY. For
// fractional coordinates this is not the true midline; the historical
// splitter used integer division and downstream tile ids depend on it.
func (e Extent) MidY() float64 {
	return math.Floor(e.Height()/2) + e.MinY
}

// Contains reports whether the point lies inside the extent under the
// half-open rule: min < v <= max on both axes. A point exactly on the low
// edge is outside, a point exactly on the high edge is inside.
func (e Extent) Contains(x, y float64) bool {
	return e.MinX < x && x <= e.MaxX && e.MinY < y && y <= e.MaxY
}

// Union returns the smallest extent covering both e and other.
func (e Extent) Union(other Extent) Extent {
	return Extent{
		MinX: math.Min(e.MinX, other.MinX),
		MaxX: math.Max(e.MaxX, other.MaxX),
		MinY: math.Min(e.MinY, other.MinY),
		MaxY: math.Max(e.MaxY, other.MaxY),
	}
}

// IsZero reports whether the extent is the zero value, which is what an
// empty layer produces. Callers must treat such layers as a no-op.
func (e Extent) IsZero() bool {
	return e == Extent{}
}
