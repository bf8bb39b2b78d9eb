package main

import (
	"fmt"
	"log"

	"github.com/ecogy/ecogis/pkg/project"
)

func main() {
	// Load a descriptor written by a partitioning run
	proj, err := project.Read("out/ecogis.json")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Project CRS: %s\n", proj.CRS)
	fmt.Printf("Tiles: %d\n", len(proj.Layers))

	// Build the spatial catalog and look up tiles covering an area
	catalog := project.BuildCatalog(proj)
	minX, maxX, minY, maxY := catalog.Bounds()
	fmt.Printf("Coverage: [%.1f,%.1f] to [%.1f,%.1f]\n", minX, minY, maxX, maxY)

	for _, tile := range catalog.Intersecting(0, 50, 0, 50) {
		fmt.Printf("  %s -> %s\n", tile.Name, tile.Path)
	}
}
