package partition

import "math"

// Strategy derives a tiling scheme from a layer's bounding extent.
//
// All strategies produce axis-aligned tiles in a fixed declaration order.
// BuildTiles is pure: calling it twice with the same inputs returns a
// structurally identical scheme.
type Strategy interface {
	Name() string
	BuildTiles(layer string, extent Extent) (*TileScheme, error)
}

// ForCount selects the strategy the reference splitter used for a given
// tile count: one tile for 1, an X-axis half split for 2, a two-row grid
// for 3 or more. Counts below one are rejected.
func ForCount(count int) (Strategy, error) {
	switch {
	case count < 1:
		return nil, &ErrInvalidConfiguration{Count: count, Reason: "tile count must be at least 1"}
	case count == 1:
		return SingleTile{}, nil
	case count == 2:
		return HalfSplit{}, nil
	default:
		return GridSplit{Count: count}, nil
	}
}

// SingleTile produces one tile equal to the whole extent.
type SingleTile struct{}

func (SingleTile) Name() string { return "single" }

func (SingleTile) BuildTiles(layer string, extent Extent) (*TileScheme, error) {
	return &TileScheme{
		Layer: layer,
		Tiles: []TileSpec{newTileSpec(layer, extent)},
	}, nil
}

// HalfSplit produces two tiles split along the X axis.
//
// The split point is MaxX/2, not the true midline (MinX+MaxX)/2. This is
// the historical splitter's formula; for extents whose MinX is far from
// zero the left tile can be degenerate or lie outside the extent entirely,
// in which case classification falls back to the last tile. Kept
// bit-for-bit so existing tile ids stay stable.
type HalfSplit struct{}

func (HalfSplit) Name() string { return "half" }

func (HalfSplit) BuildTiles(layer string, extent Extent) (*TileScheme, error) {
	split := extent.MaxX / 2
	return &TileScheme{
		Layer: layer,
		Tiles: []TileSpec{
			newTileSpec(layer, Extent{MinX: extent.MinX, MaxX: split, MinY: extent.MinY, MaxY: extent.MaxY}),
			newTileSpec(layer, Extent{MinX: split, MaxX: extent.MaxX, MinY: extent.MinY, MaxY: extent.MaxY}),
		},
	}, nil
}

// GridSplit produces Count tiles in two rows: ceil(Count/2) columns above
// the extent's floor-divided midline and floor(Count/2) columns below it.
// Column widths are floor-divided independently per row, so the two rows
// generally have different widths and the final column of each row can stop
// short of MaxX by the rounding remainder. Points in that sliver are handled
// by the classifier's last-tile fallback rather than by widening the column.
type GridSplit struct {
	Count int
}

func (GridSplit) Name() string { return "grid" }

func (g GridSplit) BuildTiles(layer string, extent Extent) (*TileScheme, error) {
	if g.Count < 3 {
		return nil, &ErrInvalidConfiguration{Count: g.Count, Reason: "grid split needs at least 3 tiles"}
	}

	top := (g.Count + 1) / 2
	bottom := g.Count / 2

	dt := math.Floor(extent.Width() / float64(top))
	db := math.Floor(extent.Width() / float64(bottom))
	midY := extent.MidY()

	tiles := make([]TileSpec, 0, g.Count)
	for x := 0; x < top; x++ {
		tiles = append(tiles, newTileSpec(layer, Extent{
			MinX: extent.MinX + float64(x)*dt,
			MaxX: extent.MinX + float64(x+1)*dt,
			MinY: extent.MinY,
			MaxY: midY,
		}))
	}
	for x := 0; x < bottom; x++ {
		tiles = append(tiles, newTileSpec(layer, Extent{
			MinX: extent.MinX + float64(x)*db,
			MaxX: extent.MinX + float64(x+1)*db,
			MinY: midY,
			MaxY: extent.MaxY,
		}))
	}

	return &TileScheme{Layer: layer, Tiles: tiles}, nil
}

// QuadrantSplit produces four tiles at the extent's true midlines. Unlike
// HalfSplit and GridSplit it does not floor-divide, so coverage is exact.
// Declaration order: low-Y row left to right, then high-Y row.
type QuadrantSplit struct{}

func (QuadrantSplit) Name() string { return "quadrant" }

func (QuadrantSplit) BuildTiles(layer string, extent Extent) (*TileScheme, error) {
	midX := (extent.MinX + extent.MaxX) / 2
	midY := (extent.MinY + extent.MaxY) / 2
	return &TileScheme{
		Layer: layer,
		Tiles: []TileSpec{
			newTileSpec(layer, Extent{MinX: extent.MinX, MaxX: midX, MinY: extent.MinY, MaxY: midY}),
			newTileSpec(layer, Extent{MinX: midX, MaxX: extent.MaxX, MinY: extent.MinY, MaxY: midY}),
			newTileSpec(layer, Extent{MinX: extent.MinX, MaxX: midX, MinY: midY, MaxY: extent.MaxY}),
			newTileSpec(layer, Extent{MinX: midX, MaxX: extent.MaxX, MinY: midY, MaxY: extent.MaxY}),
		},
	}, nil
}
