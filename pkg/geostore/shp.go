package geostore

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// Shapefile shape type codes (ESRI Shapefile Technical Description, 1998).
const (
	shpNull       = 0
	shpPoint      = 1
	shpPolyLine   = 3
	shpPolygon    = 5
	shpMultiPoint = 8
)

const shpFileCode = 9994

// shpSource is a fully loaded shapefile. A shapefile always contains
// exactly one layer, named after the file stem.
type shpSource struct {
	path  string
	layer *memLayer
}

func (s *shpSource) Path() string      { return s.path }
func (s *shpSource) LayerCount() int   { return 1 }
func (s *shpSource) Layer(i int) Layer { return s.layer }
func (s *shpSource) Close() error      { return nil }

// memLayer is an in-memory layer shared by the shapefile and FGC readers.
type memLayer struct {
	name     string
	geomType string
	srid     int
	extent   [4]float64 // minX, maxX, minY, maxY
	schema   []Field
	features []*Feature
}

func (l *memLayer) Name() string      { return l.name }
func (l *memLayer) GeomType() string  { return l.geomType }
func (l *memLayer) SRID() int         { return l.srid }
func (l *memLayer) FeatureCount() int { return len(l.features) }
func (l *memLayer) Schema() []Field   { return l.schema }

func (l *memLayer) Extent() (minX, maxX, minY, maxY float64) {
	return l.extent[0], l.extent[1], l.extent[2], l.extent[3]
}

func (l *memLayer) Feature(i int) (*Feature, error) {
	if i < 0 || i >= len(l.features) {
		return nil, &ErrInvalidSource{Path: l.name, Reason: "feature index out of range"}
	}
	return l.features[i], nil
}

// openShapefile reads a .shp file and its .dbf and .prj sidecars (when
// present) fully into memory.
func openShapefile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ErrInvalidSource{Path: path, Reason: err.Error()}
	}
	if len(data) < 100 {
		return nil, &ErrInvalidSource{Path: path, Reason: "truncated shapefile header"}
	}

	// Main file header per the ESRI spec (100 bytes):
	//   Bytes 0-3:   file code 9994 (big endian)
	//   Bytes 24-27: file length in 16-bit words (big endian)
	//   Bytes 28-31: version 1000 (little endian)
	//   Bytes 32-35: shape type (little endian)
	//   Bytes 36-67: bounding box minX, minY, maxX, maxY (float64 LE)
	if binary.BigEndian.Uint32(data[0:4]) != shpFileCode {
		return nil, &ErrInvalidSource{Path: path, Reason: "bad shapefile file code"}
	}
	shapeType := int(binary.LittleEndian.Uint32(data[32:36]))
	geomType, ok := shpGeomType(shapeType)
	if !ok {
		return nil, &ErrInvalidSource{Path: path, Reason: "unsupported shape type"}
	}
	minX := shpFloat(data[36:44])
	minY := shpFloat(data[44:52])
	maxX := shpFloat(data[52:60])
	maxY := shpFloat(data[60:68])

	var geoms []orb.Geometry
	off := 100
	for off+8 <= len(data) {
		// Record header: record number (BE) + content length in words (BE).
		contentLen := int(binary.BigEndian.Uint32(data[off+4:off+8])) * 2
		off += 8
		if off+contentLen > len(data) || contentLen < 4 {
			return nil, &ErrInvalidSource{Path: path, Reason: "truncated shapefile record"}
		}
		geom, err := parseShape(data[off : off+contentLen])
		if err != nil {
			return nil, &ErrInvalidSource{Path: path, Reason: err.Error()}
		}
		geoms = append(geoms, geom)
		off += contentLen
	}

	schema, rows := readDBF(dbfPath(path))

	features := make([]*Feature, len(geoms))
	for i, g := range geoms {
		attrs := map[string]interface{}{}
		if i < len(rows) && rows[i] != nil {
			attrs = rows[i]
		}
		features[i] = &Feature{Geometry: g, Attributes: attrs}
	}

	name := strings.TrimSuffix(filepath.Base(path), ".shp")
	return &shpSource{
		path: path,
		layer: &memLayer{
			name:     name,
			geomType: geomType,
			srid:     prjSRID(path),
			extent:   [4]float64{minX, maxX, minY, maxY},
			schema:   schema,
			features: features,
		},
	}, nil
}

func shpGeomType(shapeType int) (string, bool) {
	switch shapeType {
	case shpNull:
		return "", true
	case shpPoint:
		return "Point", true
	case shpPolyLine:
		return "LineString", true
	case shpPolygon:
		return "Polygon", true
	case shpMultiPoint:
		return "MultiPoint", true
	}
	return "", false
}

func shpFloat(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[:8]))
}

// parseShape decodes one record's shape content into an orb geometry.
// A null shape decodes to nil.
func parseShape(rec []byte) (orb.Geometry, error) {
	shapeType := int(binary.LittleEndian.Uint32(rec[0:4]))
	switch shapeType {
	case shpNull:
		return nil, nil

	case shpPoint:
		if len(rec) < 20 {
			return nil, errTruncatedShape
		}
		return orb.Point{shpFloat(rec[4:12]), shpFloat(rec[12:20])}, nil

	case shpMultiPoint:
		// Box (32 bytes) + numPoints + points.
		if len(rec) < 40 {
			return nil, errTruncatedShape
		}
		n := int(binary.LittleEndian.Uint32(rec[36:40]))
		if len(rec) < 40+n*16 {
			return nil, errTruncatedShape
		}
		mp := make(orb.MultiPoint, n)
		for i := 0; i < n; i++ {
			p := 40 + i*16
			mp[i] = orb.Point{shpFloat(rec[p : p+8]), shpFloat(rec[p+8 : p+16])}
		}
		return mp, nil

	case shpPolyLine, shpPolygon:
		// Box (32 bytes) + numParts + numPoints + part offsets + points.
		if len(rec) < 44 {
			return nil, errTruncatedShape
		}
		numParts := int(binary.LittleEndian.Uint32(rec[36:40]))
		numPoints := int(binary.LittleEndian.Uint32(rec[40:44]))
		pointsOff := 44 + numParts*4
		if len(rec) < pointsOff+numPoints*16 {
			return nil, errTruncatedShape
		}

		parts := make([]int, numParts+1)
		for i := 0; i < numParts; i++ {
			parts[i] = int(binary.LittleEndian.Uint32(rec[44+i*4 : 48+i*4]))
		}
		parts[numParts] = numPoints

		rings := make([][]orb.Point, numParts)
		for i := 0; i < numParts; i++ {
			ring := make([]orb.Point, 0, parts[i+1]-parts[i])
			for j := parts[i]; j < parts[i+1]; j++ {
				p := pointsOff + j*16
				ring = append(ring, orb.Point{shpFloat(rec[p : p+8]), shpFloat(rec[p+8 : p+16])})
			}
			rings[i] = ring
		}

		if shapeType == shpPolygon {
			poly := make(orb.Polygon, len(rings))
			for i, r := range rings {
				poly[i] = orb.Ring(r)
			}
			return poly, nil
		}
		if len(rings) == 1 {
			return orb.LineString(rings[0]), nil
		}
		mls := make(orb.MultiLineString, len(rings))
		for i, r := range rings {
			mls[i] = orb.LineString(r)
		}
		return mls, nil
	}
	return nil, errUnsupportedShape
}
