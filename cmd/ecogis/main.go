package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecogy/ecogis/pkg/geostore"
	"github.com/ecogy/ecogis/pkg/partition"
	"github.com/ecogy/ecogis/pkg/project"
)

var (
	// Flags
	output     string
	layers     int
	strategy   string
	format     string
	logLevel   string
	quiet      int
	noProgress bool
	overwrite  bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ecogis [input-dir]",
	Short: "Ecogy GIS tools - partition vector collections into spatial tiles",
	Long: `ecogis scans a directory tree for vector feature collections, splits
every layer into disjoint spatial tiles, writes each tile as an independent
collection, and assembles the results into a single project descriptor.`,
	Args: cobra.ExactArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		if quiet > 1 {
			lvl = zapcore.ErrorLevel
		}
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&output, "output", "o", "out",
		"directory to place all output files")
	rootCmd.Flags().IntVarP(&layers, "layers", "l", 4,
		"number of tiles to partition an input layer into")
	rootCmd.Flags().StringVar(&strategy, "strategy", "auto",
		"tiling strategy: auto, single, half, grid or quadrant")
	rootCmd.Flags().StringVar(&format, "format", "any",
		"restrict source discovery to one format: any, shp or fgb")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "debug",
		"log level: debug, info, warn or error")
	rootCmd.Flags().CountVarP(&quiet, "quiet", "q",
		"lower the amount of information displayed (-qq stops almost all output)")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false,
		"don't display any progress bars")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"replace pre-existing per-source output directories instead of skipping them")
}

func run(cmd *cobra.Command, args []string) error {
	indir := args[0]

	if layers < 1 {
		return errors.New("you must have at least 1 output layer")
	}
	strat, err := pickStrategy()
	if err != nil {
		return err
	}
	exts, err := formatExtensions()
	if err != nil {
		return err
	}

	if info, err := os.Stat(indir); err != nil || !info.IsDir() {
		logger.Error("input directory does not exist", zap.String("path", indir))
		return nil
	}

	// The top-level output directory is always reset, file or directory.
	if err := os.RemoveAll(output); err != nil {
		return fmt.Errorf("reset output directory: %w", err)
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger.Info("finding source collections", zap.String("input", indir))
	paths, err := geostore.Discover(indir, exts)
	if err != nil {
		return err
	}
	logger.Info("done", zap.Int("sources", len(paths)))

	opts := partition.DefaultOptions()
	opts.Logger = logger
	if overwrite {
		opts.Overwrite = partition.PolicyReplace
	}
	if !noProgress && quiet == 0 {
		opts.Progress = progressFn()
	}
	driver := partition.NewDriver(strat, opts)

	type tileRef struct{ dir, id string }
	var tiles []tileRef

	for _, path := range paths {
		src, err := geostore.Open(path)
		if err != nil {
			logger.Error("invalid source", zap.String("path", path), zap.Error(err))
			continue
		}

		dir := outputDirFor(indir, path)
		ids, err := driver.PartitionSource(src, dir)
		src.Close()
		if err != nil {
			var conflict *partition.ErrOutputConflict
			if errors.As(err, &conflict) {
				logger.Error("output directory already exists",
					zap.String("path", conflict.Path))
				continue
			}
			return err
		}

		for _, id := range ids {
			tiles = append(tiles, tileRef{dir: dir, id: id})
		}
		logger.Info("partitioned source",
			zap.String("source", path),
			zap.Int("tiles", len(ids)))
	}

	logger.Info("partitioning finished, creating project")

	proj := project.New()
	proj.SetCRS(project.DefaultCRS)
	for _, t := range tiles {
		proj.AddLayer(filepath.Join(t.dir, t.id+".fgb"), t.id, logger)
	}

	descriptor := filepath.Join(output, "ecogis.json")
	if err := proj.Write(descriptor); err != nil {
		return err
	}

	catalog := project.BuildCatalog(proj)
	minX, maxX, minY, maxY := catalog.Bounds()
	logger.Info("project created",
		zap.String("path", descriptor),
		zap.Int("tiles", catalog.Count()),
		zap.Float64s("bounds", []float64{minX, maxX, minY, maxY}))
	return nil
}

func pickStrategy() (partition.Strategy, error) {
	switch strategy {
	case "auto":
		return partition.ForCount(layers)
	case "single":
		return partition.SingleTile{}, nil
	case "half":
		return partition.HalfSplit{}, nil
	case "grid":
		// Reject undersized grids here so a bad invocation fails before
		// run resets the output directory.
		if layers < 3 {
			return nil, &partition.ErrInvalidConfiguration{Count: layers, Reason: "grid split needs at least 3 tiles"}
		}
		return partition.GridSplit{Count: layers}, nil
	case "quadrant":
		return partition.QuadrantSplit{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

func formatExtensions() ([]string, error) {
	switch format {
	case "any":
		return nil, nil // geostore defaults to .shp and .fgb
	case "shp":
		return []string{".shp"}, nil
	case "fgb":
		return []string{".fgb"}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// outputDirFor maps a source path to its per-source output directory,
// preserving the input-relative path with the extension stripped.
func outputDirFor(indir, srcPath string) string {
	rel, err := filepath.Rel(indir, srcPath)
	if err != nil {
		rel = filepath.Base(srcPath)
	}
	stem := strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(output, stem)
}

// progressFn bridges the driver's per-feature callback to a terminal
// progress bar, recreating the bar whenever a new layer (new total) starts.
func progressFn() func(done, total int) {
	var bar *progressbar.ProgressBar
	barTotal := -1
	return func(done, total int) {
		if bar == nil || total != barTotal {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Partitioning features"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			barTotal = total
		}
		_ = bar.Set(done)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
