package partition

import "fmt"

// TileSpec is one rectangle of a tiling scheme.
//
// The identifier is derived from the owning layer's name and the tile's own
// bounds and doubles as the output collection name for the tile.
type TileSpec struct {
	Extent
	ID string
}

func newTileSpec(layer string, e Extent) TileSpec {
	return TileSpec{Extent: e, ID: TileID(layer, e)}
}

// TileID returns the identifier for a tile with the given bounds, of the
// form "<layerName>:<minX>-<maxX>-<minY>-<maxY>".
func TileID(layer string, e Extent) string {
	return fmt.Sprintf("%s:%g-%g-%g-%g", layer, e.MinX, e.MaxX, e.MinY, e.MaxY)
}

// TileScheme is an ordered sequence of tiles derived from one layer's
// extent. Declaration order is significant: the classifier scans tiles
// first-match-wins, and the final tile is the fallback target for points
// that land outside every tile.
type TileScheme struct {
	Layer string
	Tiles []TileSpec
}

// Last returns the fallback tile, the final tile in declaration order.
func (s *TileScheme) Last() TileSpec {
	return s.Tiles[len(s.Tiles)-1]
}

// IDs returns the tile identifiers in declaration order.
func (s *TileScheme) IDs() []string {
	ids := make([]string, len(s.Tiles))
	for i, t := range s.Tiles {
		ids[i] = t.ID
	}
	return ids
}
