package project

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/ecogy/ecogis/pkg/geostore"
)

// writeTile writes a small valid tile collection and returns its path.
func writeTile(t *testing.T, dir, name string, points []orb.Point) string {
	t.Helper()
	path := filepath.Join(dir, name+".fgb")
	w, err := geostore.Create(path, name, "Point", DefaultCRS, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range points {
		if err := w.Append(&geostore.Feature{Geometry: p, Attributes: map[string]interface{}{}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestProjectAddLayer tests that valid tiles are referenced with their
// extents and invalid ones are skipped without failing the project.
func TestProjectAddLayer(t *testing.T) {
	dir := t.TempDir()
	tile := writeTile(t, dir, "zone-a", []orb.Point{{10, 20}, {30, 40}})

	p := New()
	p.SetCRS(DefaultCRS)

	if !p.AddLayer(tile, "zone-a", nil) {
		t.Fatal("valid tile was rejected")
	}
	if p.AddLayer(filepath.Join(dir, "missing.fgb"), "ghost", nil) {
		t.Error("missing tile was accepted")
	}

	if p.CRS != "EPSG:3857" {
		t.Errorf("CRS = %q, want EPSG:3857", p.CRS)
	}
	if len(p.Layers) != 1 {
		t.Fatalf("got %d layer refs, want 1", len(p.Layers))
	}
	ref := p.Layers[0]
	if ref.Name != "zone-a" {
		t.Errorf("Name = %q, want zone-a", ref.Name)
	}
	if want := [4]float64{10, 30, 20, 40}; ref.Bounds != want {
		t.Errorf("Bounds = %v, want %v", ref.Bounds, want)
	}
}

// TestProjectWriteRead tests descriptor serialization round trip.
func TestProjectWriteRead(t *testing.T) {
	dir := t.TempDir()
	tile := writeTile(t, dir, "zone-a", []orb.Point{{1, 1}})

	p := New()
	p.SetCRS(DefaultCRS)
	p.AddLayer(tile, "zone-a", nil)

	path := filepath.Join(dir, "ecogis.json")
	if err := p.Write(path); err != nil {
		t.Fatal(err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestTileCatalog tests the R-tree backed lookups over a project's tiles.
func TestTileCatalog(t *testing.T) {
	p := &Project{
		CRS: "EPSG:3857",
		Layers: []LayerRef{
			{Name: "left", Path: "/tiles/left.fgb", Bounds: [4]float64{0, 50, 0, 50}},
			{Name: "right", Path: "/tiles/right.fgb", Bounds: [4]float64{50, 100, 0, 50}},
		},
	}
	c := BuildCatalog(p)

	if c.Count() != 2 {
		t.Fatalf("Count = %d, want 2", c.Count())
	}

	minX, maxX, minY, maxY := c.Bounds()
	if minX != 0 || maxX != 100 || minY != 0 || maxY != 50 {
		t.Errorf("Bounds = (%v,%v,%v,%v), want (0,100,0,50)", minX, maxX, minY, maxY)
	}

	hits := c.Intersecting(10, 20, 10, 20)
	if len(hits) != 1 || hits[0].Name != "left" {
		t.Errorf("Intersecting = %+v, want the left tile only", hits)
	}

	both := c.Intersecting(0, 100, 0, 50)
	if len(both) != 2 {
		t.Errorf("Intersecting full area = %d hits, want 2", len(both))
	}
}

func TestTileCatalogEmpty(t *testing.T) {
	c := BuildCatalog(New())
	if c.Count() != 0 {
		t.Errorf("Count = %d, want 0", c.Count())
	}
	minX, maxX, minY, maxY := c.Bounds()
	if minX != 0 || maxX != 0 || minY != 0 || maxY != 0 {
		t.Error("empty catalog bounds should be zero")
	}
	if hits := c.Intersecting(0, 1, 0, 1); len(hits) != 0 {
		t.Errorf("Intersecting on empty catalog = %d hits", len(hits))
	}
}
