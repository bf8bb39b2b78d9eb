package partition

import (
	"math"

	"go.uber.org/zap"

	"github.com/ecogy/ecogis/pkg/geostore"
)

// Classifier assigns features to the tiles of one scheme.
//
// The representative point of a feature is the floor-divided midpoint of
// its geometry envelope, matching the integer-division semantics of the
// historical splitter. Tiles are scanned in declaration order and the first
// tile whose half-open bounds contain the point wins, so tie-breaking at
// shared edges is decided by tile order.
type Classifier struct {
	scheme *TileScheme
	log    *zap.Logger

	// Fallbacks counts features assigned to the last tile because their
	// representative point matched no tile.
	Fallbacks int
}

func NewClassifier(scheme *TileScheme, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{scheme: scheme, log: log}
}

// Classify returns the identifier of the tile the feature belongs to.
//
// A feature without geometry is unassignable: it is dropped from output
// with a warning and ok is false. A feature whose representative point lies
// outside every tile is never dropped; it goes to the last tile in
// declaration order, also with a warning.
func (c *Classifier) Classify(ft *geostore.Feature) (id string, ok bool) {
	if ft.Geometry == nil {
		c.log.Warn("found a NULL geometry", zap.String("layer", c.scheme.Layer))
		return "", false
	}

	b := ft.Geometry.Bound()
	x := math.Floor((b.Min[0] + b.Max[0]) / 2)
	y := math.Floor((b.Min[1] + b.Max[1]) / 2)

	for _, t := range c.scheme.Tiles {
		if t.Contains(x, y) {
			return t.ID, true
		}
	}

	// Happens for points in the lossy last-column sliver and for points on
	// excluded low edges. Shove the feature into the last tile rather than
	// losing it.
	last := c.scheme.Last()
	c.Fallbacks++
	c.log.Warn("representative point outside every tile",
		zap.Float64("x", x),
		zap.Float64("y", y),
		zap.String("fallback", last.ID))
	return last.ID, true
}
