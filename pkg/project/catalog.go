package project

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// TileCatalog provides spatial lookups over the tile references of a
// written project, backed by an R-tree. The partitioning engine itself
// never consults it (classification is an ordered scan by design); the
// catalog serves consumers of a finished project, such as the CLI's
// coverage summary.
type TileCatalog struct {
	entries []TileEntry
	rtree   *rtreego.Rtree
}

// TileEntry is the indexed metadata of one tile reference.
type TileEntry struct {
	Name                   string
	Path                   string
	MinX, MaxX, MinY, MaxY float64
}

// Bounds method for the rtreego.Spatial interface.
func (e TileEntry) Bounds() rtreego.Rect {
	point := rtreego.Point{e.MinX, e.MinY}
	lengths := []float64{e.MaxX - e.MinX, e.MaxY - e.MinY}
	// Degenerate tiles (single point, zero span) still need a valid rect.
	for i, l := range lengths {
		if l <= 0 {
			lengths[i] = 1e-9
		}
	}
	rect, _ := rtreego.NewRect(point, lengths)
	return rect
}

// BuildCatalog indexes every layer reference of a project.
func BuildCatalog(p *Project) *TileCatalog {
	rtree := rtreego.NewTree(2, 25, 50)
	entries := make([]TileEntry, len(p.Layers))
	for i, ref := range p.Layers {
		entries[i] = TileEntry{
			Name: ref.Name,
			Path: ref.Path,
			MinX: ref.Bounds[0],
			MaxX: ref.Bounds[1],
			MinY: ref.Bounds[2],
			MaxY: ref.Bounds[3],
		}
		rtree.Insert(entries[i])
	}
	return &TileCatalog{entries: entries, rtree: rtree}
}

// Count returns the number of indexed tile references.
func (c *TileCatalog) Count() int {
	return len(c.entries)
}

// Bounds returns the union of all indexed tile bounds as (minX, maxX,
// minY, maxY). An empty catalog returns four zeros.
func (c *TileCatalog) Bounds() (minX, maxX, minY, maxY float64) {
	if len(c.entries) == 0 {
		return 0, 0, 0, 0
	}
	first := c.entries[0]
	minX, maxX, minY, maxY = first.MinX, first.MaxX, first.MinY, first.MaxY
	for _, e := range c.entries[1:] {
		minX = math.Min(minX, e.MinX)
		maxX = math.Max(maxX, e.MaxX)
		minY = math.Min(minY, e.MinY)
		maxY = math.Max(maxY, e.MaxY)
	}
	return minX, maxX, minY, maxY
}

// Intersecting returns the tile entries whose bounds intersect the given
// box, in no particular order.
func (c *TileCatalog) Intersecting(minX, maxX, minY, maxY float64) []TileEntry {
	query := TileEntry{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}.Bounds()

	spatials := c.rtree.SearchIntersect(query)
	result := make([]TileEntry, 0, len(spatials))
	for _, s := range spatials {
		result = append(result, s.(TileEntry))
	}
	return result
}
