// Package project assembles the output descriptor that references every
// tile collection produced by a partitioning run.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ecogy/ecogis/pkg/geostore"
)

// DefaultCRS is the EPSG id assigned to new projects (Web Mercator).
const DefaultCRS = 3857

// Project is a single descriptor tying a partitioning run together: a
// coordinate reference system plus an ordered list of tile references.
type Project struct {
	CRS    string     `json:"crs"`
	Layers []LayerRef `json:"layers"`
}

// LayerRef references one tile collection on disk. Bounds are captured
// from the file at validation time, ordered (minX, maxX, minY, maxY).
type LayerRef struct {
	Name   string     `json:"name"`
	Path   string     `json:"path"`
	Bounds [4]float64 `json:"bounds"`
}

func New() *Project {
	return &Project{}
}

// SetCRS sets the project coordinate reference system by EPSG id.
func (p *Project) SetCRS(epsg int) {
	p.CRS = fmt.Sprintf("EPSG:%d", epsg)
}

// AddLayer validates the tile file at path by opening it and, on success,
// appends a reference with the layer's recorded extent. A file that fails
// to open is logged and skipped; the rest of the project is unaffected.
// Reports whether the reference was added.
func (p *Project) AddLayer(path, name string, log *zap.Logger) bool {
	if log == nil {
		log = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	src, err := geostore.Open(abs)
	if err != nil {
		log.Error("invalid layer",
			zap.String("name", name),
			zap.String("path", abs),
			zap.Error(err))
		return false
	}
	defer src.Close()

	minX, maxX, minY, maxY := src.Layer(0).Extent()
	p.Layers = append(p.Layers, LayerRef{
		Name:   name,
		Path:   abs,
		Bounds: [4]float64{minX, maxX, minY, maxY},
	})
	return true
}

// Write serializes the project to a descriptor file.
func (p *Project) Write(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	return nil
}

// Read loads a previously written descriptor.
func Read(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &p, nil
}
