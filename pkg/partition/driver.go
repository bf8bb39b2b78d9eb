package partition

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ecogy/ecogis/pkg/geostore"
)

// Driver partitions the layers of source collections into per-tile output
// collections on disk.
//
// Processing is two-phase per layer: every feature is classified into an
// in-memory bucket first, then each declared tile is written as one output
// collection. Buckets preserve input iteration order, so output is
// deterministic. A Driver owns no shared state across layers and never
// mutates source collections.
type Driver struct {
	strategy Strategy
	opts     Options
	log      *zap.Logger
}

func NewDriver(strategy Strategy, opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{strategy: strategy, opts: opts, log: log}
}

// DirResult describes the outcome of acquiring an output directory.
type DirResult int

const (
	DirCreated DirResult = iota
	DirAlreadyExists
	DirPermissionDenied
)

// AcquireDir prepares an output directory under the given overwrite
// policy. Under PolicyAbort a pre-existing directory yields
// (DirAlreadyExists, ErrOutputConflict) with its contents untouched; under
// PolicyReplace it is removed and recreated empty.
func AcquireDir(path string, policy OverwritePolicy) (DirResult, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		if policy == PolicyAbort {
			return DirAlreadyExists, &ErrOutputConflict{Path: path}
		}
		if err := os.RemoveAll(path); err != nil {
			if os.IsPermission(err) {
				return DirPermissionDenied, fmt.Errorf("replace output directory: %w", err)
			}
			return DirAlreadyExists, fmt.Errorf("replace output directory: %w", err)
		}
	case os.IsPermission(err):
		return DirPermissionDenied, fmt.Errorf("probe output directory: %w", err)
	case !os.IsNotExist(err):
		return DirAlreadyExists, fmt.Errorf("probe output directory: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		if os.IsPermission(err) {
			return DirPermissionDenied, fmt.Errorf("create output directory: %w", err)
		}
		return DirAlreadyExists, fmt.Errorf("create output directory: %w", err)
	}
	return DirCreated, nil
}

// PartitionSource partitions every layer of src into outDir and returns
// the tile identifiers written across all layers.
//
// The output directory is acquired once for the whole source, so
// multi-layer sources share it. A layer that fails with an output conflict
// is skipped with an error log; any other failure aborts the source.
func (d *Driver) PartitionSource(src geostore.Source, outDir string) ([]string, error) {
	if _, err := AcquireDir(outDir, d.opts.Overwrite); err != nil {
		return nil, err
	}

	var written []string
	for i := 0; i < src.LayerCount(); i++ {
		layer := src.Layer(i)
		ids, err := d.partitionLayer(layer, outDir)
		if err != nil {
			return written, fmt.Errorf("partition layer %s: %w", layer.Name(), err)
		}
		written = append(written, ids...)
	}
	return written, nil
}

// PartitionLayer partitions a single layer into outDir and returns the
// tile identifiers written. The output directory is acquired under the
// configured overwrite policy; under PolicyAbort a pre-existing directory
// fails the layer with ErrOutputConflict before any classification starts.
func (d *Driver) PartitionLayer(layer geostore.Layer, outDir string) ([]string, error) {
	if _, err := AcquireDir(outDir, d.opts.Overwrite); err != nil {
		return nil, err
	}
	return d.partitionLayer(layer, outDir)
}

// partitionLayer runs the classify-then-write pipeline assuming outDir has
// been acquired.
func (d *Driver) partitionLayer(layer geostore.Layer, outDir string) ([]string, error) {
	total := layer.FeatureCount()
	if total == 0 {
		d.log.Info("skipping empty layer", zap.String("layer", layer.Name()))
		return nil, nil
	}

	minX, maxX, minY, maxY := layer.Extent()
	extent := Extent{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY}

	scheme, err := d.strategy.BuildTiles(layer.Name(), extent)
	if err != nil {
		return nil, err
	}
	d.log.Debug("built tile scheme",
		zap.String("layer", layer.Name()),
		zap.String("strategy", d.strategy.Name()),
		zap.Int("tiles", len(scheme.Tiles)))

	// Phase one: classify every feature into an ordered bucket.
	classifier := NewClassifier(scheme, d.log)
	buckets := make(map[string][]*geostore.Feature, len(scheme.Tiles))
	dropped := 0
	for i := 0; i < total; i++ {
		ft, err := layer.Feature(i)
		if err != nil {
			return nil, fmt.Errorf("read feature %d: %w", i, err)
		}
		if id, ok := classifier.Classify(ft); ok {
			buckets[id] = append(buckets[id], ft)
		} else {
			dropped++
		}
		if d.opts.Progress != nil {
			d.opts.Progress(i+1, total)
		}
	}
	if dropped > 0 || classifier.Fallbacks > 0 {
		d.log.Info("classification finished with irregular features",
			zap.String("layer", layer.Name()),
			zap.Int("dropped", dropped),
			zap.Int("fallbacks", classifier.Fallbacks))
	}

	// Phase two: materialize every declared tile, empty ones included,
	// with the source schema copied verbatim. A failure mid-way leaves the
	// tiles already written in place.
	written := make([]string, 0, len(scheme.Tiles))
	for _, tile := range scheme.Tiles {
		path := filepath.Join(outDir, tile.ID+".fgb")
		w, err := geostore.Create(path, tile.ID, layer.GeomType(), layer.SRID(), layer.Schema())
		if err != nil {
			return written, err
		}
		for _, ft := range buckets[tile.ID] {
			if err := w.Append(ft); err != nil {
				w.Close()
				return written, fmt.Errorf("write tile %s: %w", tile.ID, err)
			}
		}
		if err := w.Close(); err != nil {
			return written, fmt.Errorf("sync tile %s: %w", tile.ID, err)
		}
		written = append(written, tile.ID)
	}

	d.log.Info("partitioned layer",
		zap.String("layer", layer.Name()),
		zap.Int("features", total),
		zap.Int("tiles", len(written)))
	return written, nil
}
