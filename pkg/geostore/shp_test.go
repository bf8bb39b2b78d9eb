package geostore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

// buildPointSHP assembles a minimal shapefile with the given point shapes.
// A NaN X marks a null shape record.
func buildPointSHP(points []orb.Point) []byte {
	var body bytes.Buffer
	for i, p := range points {
		var content bytes.Buffer
		if math.IsNaN(p[0]) {
			binary.Write(&content, binary.LittleEndian, uint32(shpNull))
		} else {
			binary.Write(&content, binary.LittleEndian, uint32(shpPoint))
			binary.Write(&content, binary.LittleEndian, p[0])
			binary.Write(&content, binary.LittleEndian, p[1])
		}
		binary.Write(&body, binary.BigEndian, uint32(i+1))
		binary.Write(&body, binary.BigEndian, uint32(content.Len()/2))
		body.Write(content.Bytes())
	}

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(shpFileCode))
	buf.Write(make([]byte, 20)) // unused
	binary.Write(&buf, binary.BigEndian, uint32((100+body.Len())/2))
	binary.Write(&buf, binary.LittleEndian, uint32(1000)) // version
	binary.Write(&buf, binary.LittleEndian, uint32(shpPoint))
	for _, v := range []float64{1, 2, 3, 4} { // minX, minY, maxX, maxY
		binary.Write(&buf, binary.LittleEndian, v)
	}
	buf.Write(make([]byte, 32)) // Z/M ranges
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// buildDBF assembles a dBASE table with a single 8-byte character field
// named NAME and one row per value.
func buildDBF(values []string) []byte {
	const fieldLen = 8
	headerSize := 32 + 32 + 1
	recordSize := 1 + fieldLen

	var buf bytes.Buffer
	buf.WriteByte(0x03)
	buf.Write([]byte{24, 1, 1}) // last update
	binary.Write(&buf, binary.LittleEndian, uint32(len(values)))
	binary.Write(&buf, binary.LittleEndian, uint16(headerSize))
	binary.Write(&buf, binary.LittleEndian, uint16(recordSize))
	buf.Write(make([]byte, 20)) // reserved

	var desc [32]byte
	copy(desc[:11], "NAME")
	desc[11] = 'C'
	desc[16] = fieldLen
	buf.Write(desc[:])
	buf.WriteByte(0x0D)

	for _, v := range values {
		buf.WriteByte(' ')
		rec := make([]byte, fieldLen)
		for i := range rec {
			rec[i] = ' '
		}
		copy(rec, v)
		buf.Write(rec)
	}
	return buf.Bytes()
}

// TestOpenShapefile tests reading a handcrafted point shapefile with its
// DBF sidecar, including a null shape record.
func TestOpenShapefile(t *testing.T) {
	dir := t.TempDir()
	nan := math.NaN()
	shp := buildPointSHP([]orb.Point{{1, 2}, {3, 4}, {nan, nan}})
	dbf := buildDBF([]string{"first", "second", "third"})

	if err := os.WriteFile(filepath.Join(dir, "towns.shp"), shp, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "towns.dbf"), dbf, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(filepath.Join(dir, "towns.shp"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	layer := src.Layer(0)
	if layer.Name() != "towns" {
		t.Errorf("Name = %q, want towns", layer.Name())
	}
	if layer.GeomType() != "Point" {
		t.Errorf("GeomType = %q, want Point", layer.GeomType())
	}
	minX, maxX, minY, maxY := layer.Extent()
	if minX != 1 || maxX != 3 || minY != 2 || maxY != 4 {
		t.Errorf("extent = (%v,%v,%v,%v), want (1,3,2,4)", minX, maxX, minY, maxY)
	}
	if diff := cmp.Diff([]Field{{Name: "NAME", Type: FieldString}}, layer.Schema()); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
	if layer.FeatureCount() != 3 {
		t.Fatalf("FeatureCount = %d, want 3", layer.FeatureCount())
	}

	want := []*Feature{
		{Geometry: orb.Point{1, 2}, Attributes: map[string]interface{}{"NAME": "first"}},
		{Geometry: orb.Point{3, 4}, Attributes: map[string]interface{}{"NAME": "second"}},
		{Geometry: nil, Attributes: map[string]interface{}{"NAME": "third"}},
	}
	for i, w := range want {
		got, err := layer.Feature(i)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("feature %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// TestOpenShapefileWithoutDBF tests that a missing attribute table is not
// an error: features come back with empty attributes.
func TestOpenShapefileWithoutDBF(t *testing.T) {
	dir := t.TempDir()
	shp := buildPointSHP([]orb.Point{{5, 6}})
	if err := os.WriteFile(filepath.Join(dir, "bare.shp"), shp, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(filepath.Join(dir, "bare.shp"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	layer := src.Layer(0)
	if layer.Schema() != nil {
		t.Errorf("Schema = %v, want nil", layer.Schema())
	}
	ft, err := layer.Feature(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ft.Attributes) != 0 {
		t.Errorf("Attributes = %v, want empty", ft.Attributes)
	}
}

// TestOpenShapefileCorruptDBF tests that a sidecar whose descriptors claim
// more bytes than a record holds is treated like a missing table instead
// of crashing on the first row.
func TestOpenShapefileCorruptDBF(t *testing.T) {
	dir := t.TempDir()
	shp := buildPointSHP([]orb.Point{{1, 2}})
	dbf := buildDBF([]string{"ok"})
	dbf[48] = 200 // NAME now claims 200 bytes inside a 9-byte record

	if err := os.WriteFile(filepath.Join(dir, "towns.shp"), shp, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "towns.dbf"), dbf, 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(filepath.Join(dir, "towns.shp"))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	layer := src.Layer(0)
	if layer.Schema() != nil {
		t.Errorf("Schema = %v, want nil", layer.Schema())
	}
	ft, err := layer.Feature(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ft.Attributes) != 0 {
		t.Errorf("Attributes = %v, want empty", ft.Attributes)
	}
}

// TestReadDBFOversizedField pins the record-width guard: a table whose
// field lengths overrun the declared record size yields no schema and no
// rows, whatever the file length.
func TestReadDBFOversizedField(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x03)
	buf.Write([]byte{24, 1, 1}) // last update
	binary.Write(&buf, binary.LittleEndian, uint32(1))  // record count
	binary.Write(&buf, binary.LittleEndian, uint16(65)) // header size
	binary.Write(&buf, binary.LittleEndian, uint16(2))  // record size
	buf.Write(make([]byte, 20)) // reserved

	var desc [32]byte
	copy(desc[:11], "NAME")
	desc[11] = 'C'
	desc[16] = 200
	buf.Write(desc[:])
	buf.WriteByte(0x0D)
	buf.Write([]byte{' ', 'x'}) // the single 2-byte record

	path := filepath.Join(t.TempDir(), "broken.dbf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	schema, rows := readDBF(path)
	if schema != nil || rows != nil {
		t.Errorf("readDBF = (%v, %v), want (nil, nil)", schema, rows)
	}
}

// TestOpenShapefileSRID tests spatial reference detection from the .prj
// sidecar for the WKT flavors commonly written next to shapefiles.
func TestOpenShapefileSRID(t *testing.T) {
	tests := []struct {
		name string
		wkt  string
		want int
	}{
		{
			name: "esri web mercator",
			wkt:  `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],UNIT["Meter",1.0]]`,
			want: 3857,
		},
		{
			name: "epsg authority",
			wkt:  `PROJCS["ETRS89 / UTM zone 32N",GEOGCS["ETRS89",AUTHORITY["EPSG","4258"]],AUTHORITY["EPSG","25832"]]`,
			want: 25832,
		},
		{
			name: "esri geographic",
			wkt:  `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`,
			want: 4326,
		},
		{
			name: "missing sidecar",
			wkt:  "",
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			shp := buildPointSHP([]orb.Point{{1, 2}})
			if err := os.WriteFile(filepath.Join(dir, "a.shp"), shp, 0o644); err != nil {
				t.Fatal(err)
			}
			if tt.wkt != "" {
				if err := os.WriteFile(filepath.Join(dir, "a.prj"), []byte(tt.wkt), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			src, err := Open(filepath.Join(dir, "a.shp"))
			if err != nil {
				t.Fatal(err)
			}
			defer src.Close()

			if got := src.Layer(0).SRID(); got != tt.want {
				t.Errorf("SRID = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOpenShapefileBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.shp")
	data := make([]byte, 120) // wrong file code
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var invalid *ErrInvalidSource
	if _, err := Open(path); !errors.As(err, &invalid) {
		t.Errorf("want ErrInvalidSource, got %v", err)
	}
}

func TestParsePolygonShape(t *testing.T) {
	var rec bytes.Buffer
	binary.Write(&rec, binary.LittleEndian, uint32(shpPolygon))
	for i := 0; i < 4; i++ { // box, ignored by the parser
		binary.Write(&rec, binary.LittleEndian, float64(0))
	}
	binary.Write(&rec, binary.LittleEndian, uint32(1)) // numParts
	binary.Write(&rec, binary.LittleEndian, uint32(4)) // numPoints
	binary.Write(&rec, binary.LittleEndian, uint32(0)) // part offset
	for _, p := range [][2]float64{{0, 0}, {10, 0}, {10, 10}, {0, 0}} {
		binary.Write(&rec, binary.LittleEndian, p[0])
		binary.Write(&rec, binary.LittleEndian, p[1])
	}

	geom, err := parseShape(rec.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}}
	if diff := cmp.Diff(want, geom); diff != "" {
		t.Errorf("polygon mismatch (-want +got):\n%s", diff)
	}
}
