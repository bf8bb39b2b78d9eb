package main

import (
	"fmt"
	"log"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ecogy/ecogis/pkg/geostore"
	"github.com/ecogy/ecogis/pkg/partition"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Find every source collection under the input tree
	paths, err := geostore.Discover("input", nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Found %d source collections\n", len(paths))

	// Partition each layer into 4 tiles
	strategy, err := partition.ForCount(4)
	if err != nil {
		log.Fatal(err)
	}

	opts := partition.DefaultOptions()
	opts.Logger = logger
	driver := partition.NewDriver(strategy, opts)

	for _, path := range paths {
		src, err := geostore.Open(path)
		if err != nil {
			logger.Error("invalid source", zap.String("path", path), zap.Error(err))
			continue
		}

		stem := filepath.Base(path[:len(path)-len(filepath.Ext(path))])
		tiles, err := driver.PartitionSource(src, filepath.Join("out", stem))
		src.Close()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s: %d tiles\n", path, len(tiles))
	}
}
