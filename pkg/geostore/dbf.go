package geostore

import (
	"encoding/binary"
	"os"
	"strconv"
	"strings"
)

// dbfField is one 32-byte field descriptor from a dBASE III header.
type dbfField struct {
	name     string
	kind     byte // 'C', 'N', 'F', 'L', 'D'
	length   int
	decimals int
}

func dbfPath(shpPath string) string {
	return strings.TrimSuffix(shpPath, ".shp") + ".dbf"
}

// readDBF reads the attribute table next to a shapefile. A missing,
// unreadable or corrupt sidecar is not an error: shapefiles without
// attributes are valid, so the result is an empty schema and no rows.
// Deleted rows keep their position (shp records pair with dbf rows by
// index) but carry nil attributes.
func readDBF(path string) ([]Field, []map[string]interface{}) {
	data, err := os.ReadFile(path)
	if err != nil || len(data) < 32 {
		return nil, nil
	}

	// Header layout:
	//   Byte 0:      version
	//   Bytes 1-3:   last update date
	//   Bytes 4-7:   record count (uint32 LE)
	//   Bytes 8-9:   header size (uint16 LE)
	//   Bytes 10-11: record size (uint16 LE)
	recordCount := int(binary.LittleEndian.Uint32(data[4:8]))
	headerSize := int(binary.LittleEndian.Uint16(data[8:10]))
	recordSize := int(binary.LittleEndian.Uint16(data[10:12]))

	// Field descriptors: 32 bytes each from offset 32, terminated by 0x0D.
	var fields []dbfField
	for off := 32; off+32 <= headerSize && off+32 <= len(data); off += 32 {
		if data[off] == 0x0D {
			break
		}
		name := strings.TrimRight(string(data[off:off+11]), "\x00 ")
		fields = append(fields, dbfField{
			name:     name,
			kind:     data[off+11],
			length:   int(data[off+16]),
			decimals: int(data[off+17]),
		})
	}

	// The declared field lengths plus the deletion flag must fit inside a
	// record. A header that violates this is corrupt, and none of it can be
	// trusted, so treat the sidecar as missing.
	width := 1
	for _, f := range fields {
		width += f.length
	}
	if width > recordSize {
		return nil, nil
	}

	schema := make([]Field, len(fields))
	for i, f := range fields {
		schema[i] = Field{Name: f.name, Type: f.fieldType()}
	}

	rows := make([]map[string]interface{}, 0, recordCount)
	for i := 0; i < recordCount; i++ {
		off := headerSize + i*recordSize
		if off+recordSize > len(data) {
			break
		}
		rec := data[off : off+recordSize]
		if rec[0] == '*' { // deleted
			rows = append(rows, nil)
			continue
		}

		row := make(map[string]interface{}, len(fields))
		pos := 1
		for _, f := range fields {
			raw := strings.TrimSpace(string(rec[pos : pos+f.length]))
			pos += f.length
			if raw == "" {
				continue
			}
			if v, ok := f.parse(raw); ok {
				row[f.name] = v
			}
		}
		rows = append(rows, row)
	}

	return schema, rows
}

func (f dbfField) fieldType() FieldType {
	switch f.kind {
	case 'N':
		if f.decimals == 0 {
			return FieldInt
		}
		return FieldFloat
	case 'F':
		return FieldFloat
	case 'L':
		return FieldBool
	default: // 'C', 'D' and anything exotic stay textual
		return FieldString
	}
}

func (f dbfField) parse(raw string) (interface{}, bool) {
	switch f.fieldType() {
	case FieldInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	case FieldFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		return v, true
	case FieldBool:
		switch raw[0] {
		case 'T', 't', 'Y', 'y':
			return true, true
		case 'F', 'f', 'N', 'n':
			return false, true
		}
		return nil, false // '?' = uninitialized
	default:
		return raw, true
	}
}
