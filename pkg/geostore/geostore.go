// Package geostore reads and writes the vector feature collections the
// partitioner operates on.
//
// Two storage formats are supported: ESRI shapefiles (read-only, with the
// sidecar dBASE attribute table) and the FGC flat geometry container
// (read/write), which is the output format of the partitioning pipeline.
// Geometry is represented with orb types throughout.
package geostore

import (
	"path/filepath"

	"github.com/paulmach/orb"
)

// FieldType enumerates attribute field types carried by a layer schema.
type FieldType uint8

const (
	FieldString FieldType = iota
	FieldInt
	FieldFloat
	FieldBool
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "String"
	case FieldInt:
		return "Int"
	case FieldFloat:
		return "Float"
	case FieldBool:
		return "Bool"
	}
	return "Unknown"
}

// Field is one attribute field definition. Schema order is significant and
// is preserved verbatim when a layer is copied to an output collection.
type Field struct {
	Name string
	Type FieldType
}

// Feature is one geometry record plus its attribute values.
//
// Geometry is nil when the source record carries no geometry (a shapefile
// null shape, or a zero-length geometry block in an FGC record). Attribute
// values are string, int64, float64 or bool, keyed by field name.
type Feature struct {
	Geometry   orb.Geometry
	Attributes map[string]interface{}
}

// Layer is a named collection of features sharing one geometry type and
// schema inside a source collection.
type Layer interface {
	Name() string
	// GeomType is the GeoJSON-style geometry type name shared by the
	// layer's features ("Point", "Polygon", ...).
	GeomType() string
	SRID() int
	// Extent returns the layer's bounding extent as (minX, maxX, minY,
	// maxY). An empty layer returns four zeros.
	Extent() (minX, maxX, minY, maxY float64)
	FeatureCount() int
	Feature(i int) (*Feature, error)
	Schema() []Field
}

// Source is an open feature collection.
type Source interface {
	Path() string
	LayerCount() int
	Layer(i int) Layer
	Close() error
}

// Open opens a feature collection, dispatching on the file extension.
// Unknown extensions and unreadable or corrupt files yield ErrInvalidSource.
func Open(path string) (Source, error) {
	switch filepath.Ext(path) {
	case ".shp":
		return openShapefile(path)
	case ".fgb":
		return openFGC(path)
	default:
		return nil, &ErrInvalidSource{Path: path, Reason: "unsupported extension"}
	}
}
