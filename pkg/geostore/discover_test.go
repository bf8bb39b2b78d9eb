package geostore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestDiscover tests recursive discovery with case-sensitive extension
// matching.
func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch := func(rel string) {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	touch("a.shp")
	touch("b.fgb")
	touch("c.SHP") // wrong case, never matched
	touch("notes.txt")
	touch("sub/d.shp")

	t.Run("default extensions", func(t *testing.T) {
		got, err := Discover(root, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := []string{
			filepath.Join(root, "a.shp"),
			filepath.Join(root, "b.fgb"),
			filepath.Join(root, "sub", "d.shp"),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("paths mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("restricted to fgb", func(t *testing.T) {
		got, err := Discover(root, []string{".fgb"})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{filepath.Join(root, "b.fgb")}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("paths mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDiscoverMissingRoot(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("want error for missing root")
	}
}
