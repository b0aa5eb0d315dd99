package docstring

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/matsen/r2t2/internal/doi"
	"github.com/matsen/r2t2/internal/reference"
	"golang.org/x/sync/errgroup"
)

// FileError reports a source file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("reading source file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// References returns the canonical reference URLs cited in a docstring, in
// the order they appear.
func References(docstring string) []string {
	dois := doi.FindAll(docstring)
	if len(dois) == 0 {
		return nil
	}
	return doi.CanonicalizeAll(dois)
}

// FunctionReferences yields a FunctionReference for every function in src
// whose docstring cites at least one reference. source is recorded verbatim.
func FunctionReferences(source, src string) iter.Seq[reference.FunctionReference] {
	return func(yield func(reference.FunctionReference) bool) {
		for fn := range Scan(src) {
			refs := References(fn.Docstring)
			if len(refs) == 0 {
				continue
			}
			ref := reference.FunctionReference{
				Name:         fn.Name,
				Source:       source,
				Line:         fn.Line,
				ShortPurpose: []string{reference.DocstringShortPurpose},
				References:   refs,
			}
			if !yield(ref) {
				return
			}
		}
	}
}

// AddDocstringReferences merges the docstring references found in src into
// biblio. Keys already present are left untouched. Returns the number of
// entries added.
func AddDocstringReferences(source, src string, biblio *reference.Biblio) int {
	added := 0
	for ref := range FunctionReferences(source, src) {
		if biblio.AddIfAbsent(ref.Key(), ref) {
			added++
		}
	}
	return added
}

// ParseAndAddDocstringReferencesFromFiles scans each file in order and merges
// the references found in function docstrings into biblio.
//
// A file that cannot be read aborts the call with a *FileError; entries from
// files processed before it remain in biblio.
func ParseAndAddDocstringReferencesFromFiles(filePaths []string, biblio *reference.Biblio) error {
	for _, path := range filePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return &FileError{Path: path, Err: err}
		}

		added := AddDocstringReferences(path, string(data), biblio)
		slog.Debug("scanned docstrings",
			"path", path,
			"size", humanize.Bytes(uint64(len(data))),
			"added", added)
	}
	return nil
}

// ParseAndAddDocstringReferencesFromFilesConcurrently reads and scans up to
// jobs files at a time, then merges the results into biblio in input order,
// so the outcome matches ParseAndAddDocstringReferencesFromFiles.
//
// If any file cannot be read, biblio is left unchanged.
func ParseAndAddDocstringReferencesFromFilesConcurrently(ctx context.Context, filePaths []string, biblio *reference.Biblio, jobs int) error {
	scanned := make([][]reference.FunctionReference, len(filePaths))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for i, path := range filePaths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return &FileError{Path: path, Err: err}
			}
			scanned[i] = slices.Collect(FunctionReferences(path, string(data)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, refs := range scanned {
		added := 0
		for _, ref := range refs {
			if biblio.AddIfAbsent(ref.Key(), ref) {
				added++
			}
		}
		slog.Debug("merged docstring references", "path", filePaths[i], "found", len(refs), "added", added)
	}
	return nil
}
