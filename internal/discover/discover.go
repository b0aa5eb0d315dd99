// Package discover expands command-line paths into the Python source files to scan.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SourceExt is the extension of files picked up from directories.
const SourceExt = ".py"

// Options controls which files are returned.
type Options struct {
	ExcludeDirs  []string // Directory base names to skip
	ExcludeGlobs []string // filepath.Match patterns tested against base names and relative paths
}

// Files expands paths into a sorted, duplicate-free list of source files.
//
// Directories are walked recursively; hidden and excluded directories are
// skipped and only files ending in SourceExt are kept. Explicit file paths
// are returned as given, even if they do not exist, so that the scan reports
// the failure. Exclude globs apply to both.
func Files(paths []string, opts Options) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			if !opts.ExcludesFile(root, filepath.Base(root)) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			name := d.Name()
			if d.IsDir() {
				if path != root && (strings.HasPrefix(name, ".") || slices.Contains(opts.ExcludeDirs, name)) {
					return filepath.SkipDir
				}
				return nil
			}

			if filepath.Ext(name) != SourceExt {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			if opts.ExcludesFile(rel, name) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

// ExcludesFile reports whether a file matches one of the exclude globs.
// rel is the path relative to the walked root and name its base name.
func (o Options) ExcludesFile(rel, name string) bool {
	for _, pattern := range o.ExcludeGlobs {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}
