// Package manifest discovers content-package manifests and the convertible
// resources they list.
package manifest

import (
	"io/fs"
	"iter"
	"path/filepath"
)

// FileName is the exact name of a content-package manifest.
const FileName = "imsmanifest.xml"

// Location identifies one directory holding a manifest.
type Location struct {
	// Dir is the directory containing the manifest.
	Dir string
	// RelativePath is Dir relative to the walk root ("." for the root itself).
	RelativePath string
}

// ManifestPath returns the path of the manifest file.
func (l Location) ManifestPath() string {
	return filepath.Join(l.Dir, FileName)
}

// Walk lazily yields every directory under root that contains a manifest, in
// lexical order. A directory is yielded once. Walk errors are yielded with a
// zero Location and iteration continues where possible.
func Walk(root string) iter.Seq2[Location, error] {
	return func(yield func(Location, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				if !yield(Location{}, err) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || d.Name() != FileName {
				return nil
			}

			dir := filepath.Dir(path)
			rel, relErr := filepath.Rel(root, dir)
			if relErr != nil {
				rel = dir
			}
			if !yield(Location{Dir: dir, RelativePath: rel}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(Location{}, err)
		}
	}
}

// Find returns the manifest locations under root, or ErrNoManifest when there
// are none.
func Find(root string) ([]Location, error) {
	var locations []Location
	for loc, err := range Walk(root) {
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	if len(locations) == 0 {
		return nil, ErrNoManifest
	}
	return locations, nil
}

// Exists reports whether at least one manifest exists under root.
func Exists(root string) bool {
	for _, err := range Walk(root) {
		if err == nil {
			return true
		}
	}
	return false
}
