package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// walker selects files under a root by include/exclude glob patterns.
// Patterns match the slash-separated path relative to the walked root.
type walker struct {
	includes []string
	excludes []string
}

func newWalker(includes, excludes []string) *walker {
	if len(includes) == 0 {
		includes = []string{"**/*.txt"}
	}
	return &walker{includes: includes, excludes: excludes}
}

// Walk returns the files under root passing the patterns, in walk order.
// Excluded directories are skipped whole.
func (w *walker) Walk(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && w.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.included(rel) && !w.excluded(rel) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func (w *walker) included(path string) bool {
	for _, pattern := range w.includes {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

func (w *walker) excluded(path string) bool {
	for _, pattern := range w.excludes {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

// collectFiles expands the given paths into files to index. Files named
// directly are taken as-is; directories are walked with the patterns.
func collectFiles(paths []string, includes, excludes []string) ([]string, error) {
	w := newWalker(includes, excludes)

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		walked, err := w.Walk(path)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
		files = append(files, walked...)
	}

	return files, nil
}
