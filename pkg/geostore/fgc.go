package geostore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// FGC ("flat geometry container") is the output format of the partitioning
// pipeline: a single-layer feature collection with a fixed header followed
// by length-prefixed records. It is not FlatGeobuf; files are written with
// the .fgb extension only because that is the extension the rest of the
// pipeline discovers and ingests.
//
// Layout (all integers little endian):
//
//	magic "FGC1"
//	u16 version (currently 1)
//	u16 name length, name bytes
//	u8 geometry type length, geometry type bytes
//	u32 SRID
//	u16 field count, then per field: u8 name length, name bytes, u8 type
//	records until EOF:
//	  u32 geometry length (0 = null geometry), WKB bytes
//	  u32 attribute block length, attribute block
//
// The attribute block holds one entry per schema field in schema order:
// u8 presence flag, then the value (string: u32 length + bytes; int: u64
// two's complement; float: u64 IEEE 754 bits; bool: u8).

var fgcMagic = [4]byte{'F', 'G', 'C', '1'}

const fgcVersion = 1

// fgcSource is a fully loaded FGC file.
type fgcSource struct {
	path  string
	layer *memLayer
}

func (s *fgcSource) Path() string      { return s.path }
func (s *fgcSource) LayerCount() int   { return 1 }
func (s *fgcSource) Layer(i int) Layer { return s.layer }
func (s *fgcSource) Close() error      { return nil }

// openFGC reads an FGC file fully into memory. The layer extent is the
// union of all feature envelopes; null-geometry features contribute nothing.
func openFGC(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ErrInvalidSource{Path: path, Reason: err.Error()}
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != fgcMagic {
		return nil, &ErrInvalidSource{Path: path, Reason: "not an FGC file"}
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil || version != fgcVersion {
		return nil, &ErrInvalidSource{Path: path, Reason: "unsupported FGC version"}
	}

	name, err := readString16(r)
	if err != nil {
		return nil, &ErrInvalidSource{Path: path, Reason: "truncated header"}
	}
	geomType, err := readString8(r)
	if err != nil {
		return nil, &ErrInvalidSource{Path: path, Reason: "truncated header"}
	}
	var srid uint32
	if err := binary.Read(r, binary.LittleEndian, &srid); err != nil {
		return nil, &ErrInvalidSource{Path: path, Reason: "truncated header"}
	}

	var fieldCount uint16
	if err := binary.Read(r, binary.LittleEndian, &fieldCount); err != nil {
		return nil, &ErrInvalidSource{Path: path, Reason: "truncated header"}
	}
	schema := make([]Field, fieldCount)
	for i := range schema {
		fname, err := readString8(r)
		if err != nil {
			return nil, &ErrInvalidSource{Path: path, Reason: "truncated field table"}
		}
		ftype, err := r.ReadByte()
		if err != nil {
			return nil, &ErrInvalidSource{Path: path, Reason: "truncated field table"}
		}
		schema[i] = Field{Name: fname, Type: FieldType(ftype)}
	}

	var features []*Feature
	var extent [4]float64
	haveExtent := false
	for {
		geomBuf, err := readBlock(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ErrInvalidSource{Path: path, Reason: "truncated record"}
		}
		attrBuf, err := readBlock(r)
		if err != nil {
			return nil, &ErrInvalidSource{Path: path, Reason: "truncated record"}
		}

		var geom orb.Geometry
		if len(geomBuf) > 0 {
			geom, err = wkb.Unmarshal(geomBuf)
			if err != nil {
				return nil, &ErrInvalidSource{Path: path, Reason: fmt.Sprintf("bad geometry: %v", err)}
			}
			b := geom.Bound()
			fe := [4]float64{b.Min[0], b.Max[0], b.Min[1], b.Max[1]}
			if !haveExtent {
				extent = fe
				haveExtent = true
			} else {
				extent[0] = math.Min(extent[0], fe[0])
				extent[1] = math.Max(extent[1], fe[1])
				extent[2] = math.Min(extent[2], fe[2])
				extent[3] = math.Max(extent[3], fe[3])
			}
		}

		attrs, err := decodeAttributes(attrBuf, schema)
		if err != nil {
			return nil, &ErrInvalidSource{Path: path, Reason: err.Error()}
		}
		features = append(features, &Feature{Geometry: geom, Attributes: attrs})
	}

	return &fgcSource{
		path: path,
		layer: &memLayer{
			name:     name,
			geomType: geomType,
			srid:     int(srid),
			extent:   extent,
			schema:   schema,
			features: features,
		},
	}, nil
}

// Writer appends features to a new FGC output collection. Close flushes
// and fsyncs; a Writer that is not closed leaves no durable guarantee.
type Writer struct {
	f      *os.File
	w      *bufio.Writer
	schema []Field
}

// Create creates a new FGC output collection at path, overwriting any
// pre-existing file, with the given layer name, geometry type, spatial
// reference and field schema (copied verbatim, order preserved).
func Create(path, layerName, geomType string, srid int, schema []Field) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output collection: %w", err)
	}

	w := bufio.NewWriter(f)
	w.Write(fgcMagic[:])
	binary.Write(w, binary.LittleEndian, uint16(fgcVersion))
	writeString16(w, layerName)
	writeString8(w, geomType)
	binary.Write(w, binary.LittleEndian, uint32(srid))
	binary.Write(w, binary.LittleEndian, uint16(len(schema)))
	for _, fld := range schema {
		writeString8(w, fld.Name)
		w.WriteByte(byte(fld.Type))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	return &Writer{f: f, w: w, schema: schema}, nil
}

// Append writes one feature record. The feature content is not mutated;
// attribute values outside the schema are ignored, values of the wrong
// type are written as absent.
func (w *Writer) Append(ft *Feature) error {
	var geomBuf []byte
	if ft.Geometry != nil {
		var err error
		geomBuf, err = wkb.Marshal(ft.Geometry)
		if err != nil {
			return fmt.Errorf("encode geometry: %w", err)
		}
	}
	if err := writeBlock(w.w, geomBuf); err != nil {
		return err
	}
	return writeBlock(w.w, encodeAttributes(ft.Attributes, w.schema))
}

// Close flushes buffered records and syncs the file to durable storage.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func encodeAttributes(attrs map[string]interface{}, schema []Field) []byte {
	buf := make([]byte, 0, 16*len(schema))
	u64 := func(v uint64) {
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}
	u32 := func(v uint32) {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		buf = append(buf, tmp[:]...)
	}

	for _, fld := range schema {
		v, ok := attrs[fld.Name]
		if !ok {
			buf = append(buf, 0)
			continue
		}
		switch fld.Type {
		case FieldString:
			s, good := v.(string)
			if !good {
				buf = append(buf, 0)
				continue
			}
			buf = append(buf, 1)
			u32(uint32(len(s)))
			buf = append(buf, s...)
		case FieldInt:
			var n int64
			switch t := v.(type) {
			case int64:
				n = t
			case int:
				n = int64(t)
			default:
				buf = append(buf, 0)
				continue
			}
			buf = append(buf, 1)
			u64(uint64(n))
		case FieldFloat:
			f, good := v.(float64)
			if !good {
				buf = append(buf, 0)
				continue
			}
			buf = append(buf, 1)
			u64(math.Float64bits(f))
		case FieldBool:
			bv, good := v.(bool)
			if !good {
				buf = append(buf, 0)
				continue
			}
			buf = append(buf, 1)
			if bv {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
	}
	return buf
}

func decodeAttributes(data []byte, schema []Field) (map[string]interface{}, error) {
	attrs := make(map[string]interface{}, len(schema))
	pos := 0
	need := func(n int) bool { return pos+n <= len(data) }

	for _, fld := range schema {
		if !need(1) {
			return nil, fmt.Errorf("truncated attribute block")
		}
		present := data[pos]
		pos++
		if present == 0 {
			continue
		}
		switch fld.Type {
		case FieldString:
			if !need(4) {
				return nil, fmt.Errorf("truncated attribute block")
			}
			n := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
			pos += 4
			if !need(n) {
				return nil, fmt.Errorf("truncated attribute block")
			}
			attrs[fld.Name] = string(data[pos : pos+n])
			pos += n
		case FieldInt:
			if !need(8) {
				return nil, fmt.Errorf("truncated attribute block")
			}
			attrs[fld.Name] = int64(binary.LittleEndian.Uint64(data[pos : pos+8]))
			pos += 8
		case FieldFloat:
			if !need(8) {
				return nil, fmt.Errorf("truncated attribute block")
			}
			attrs[fld.Name] = math.Float64frombits(binary.LittleEndian.Uint64(data[pos : pos+8]))
			pos += 8
		case FieldBool:
			if !need(1) {
				return nil, fmt.Errorf("truncated attribute block")
			}
			attrs[fld.Name] = data[pos] != 0
			pos++
		default:
			return nil, fmt.Errorf("unknown field type %d", fld.Type)
		}
	}
	return attrs, nil
}

func readBlock(r *bufio.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBlock(w *bufio.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readString8(r *bufio.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readString16(r *bufio.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString8(w *bufio.Writer, s string) {
	w.WriteByte(byte(len(s)))
	w.WriteString(s)
}

func writeString16(w *bufio.Writer, s string) {
	binary.Write(w, binary.LittleEndian, uint16(len(s)))
	w.WriteString(s)
}
