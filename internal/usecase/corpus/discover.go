package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches the image and PDF formats the recognizer reads.
var DefaultInclude = []string{"**/*.{pdf,png,jpg,jpeg,tif,tiff,bmp}"}

// Source is one labeled corpus file.
type Source struct {
	Label string
	Path  string
	Rel   string // path relative to the corpus root, used as the source reference
}

// Discover lists files under root/<label>/ that match include and not exclude.
// Matching is case-insensitive on the path relative to the label directory.
// Results are sorted by label then path so builds are reproducible.
func Discover(root string, include, exclude []string) ([]Source, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read corpus root: %w", err)
	}

	var out []Source
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		label := e.Name()
		labelDir := filepath.Join(root, label)

		err := filepath.WalkDir(labelDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != labelDir && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(labelDir, path)
			if err != nil {
				return err
			}
			rel = strings.ToLower(filepath.ToSlash(rel))
			if !matchAny(include, rel) || matchAny(exclude, rel) {
				return nil
			}
			relRoot, _ := filepath.Rel(root, path)
			out = append(out, Source{Label: label, Path: path, Rel: filepath.ToSlash(relRoot)})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", labelDir, err)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Rel < out[j].Rel
	})
	return out, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.ToLower(p), rel); ok {
			return true
		}
	}
	return false
}
