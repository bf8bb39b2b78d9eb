package geostore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions is the extension set Discover matches when the caller
// does not restrict the format.
var DefaultExtensions = []string{".shp", ".fgb"}

// Discover walks a directory tree and returns every file whose name ends
// with one of the given extensions. Matching is case sensitive; ".SHP" is
// not a source. Paths come back in walk (lexical) order so runs are
// reproducible.
func Discover(root string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(info.Name(), ext) {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	return paths, nil
}
