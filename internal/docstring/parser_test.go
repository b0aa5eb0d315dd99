package docstring

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matsen/r2t2/internal/reference"
)

const (
	doiURLPrefix = "https://doi.org/"
	doi1         = "10.1234/zenodo.1234567"
	doi2         = "10.5281/zenodo.42"
)

// writeSource writes lines to test.py in a temp dir and returns its path.
func writeSource(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.py")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

func TestParseAndAdd_DocstringReference(t *testing.T) {
	path := writeSource(t,
		`def some_function():    """`,
		`    `+doi1,
		`    """`,
	)
	biblio := reference.NewBiblio()

	if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, biblio); err != nil {
		t.Fatalf("ParseAndAddDocstringReferencesFromFiles() error = %v", err)
	}

	key := reference.Key(path, 1)
	if got := biblio.Keys(); !slices.Equal(got, []string{key}) {
		t.Fatalf("Keys() = %v, want [%s]", got, key)
	}

	ref, _ := biblio.Get(key)
	if ref.Name != "some_function" {
		t.Errorf("Name = %q, want some_function", ref.Name)
	}
	if ref.Source != path {
		t.Errorf("Source = %q, want %q", ref.Source, path)
	}
	if ref.Line != 1 {
		t.Errorf("Line = %d, want 1", ref.Line)
	}
	if want := []string{doiURLPrefix + doi1}; !slices.Equal(ref.References, want) {
		t.Errorf("References = %v, want %v", ref.References, want)
	}
	if want := []string{reference.DocstringShortPurpose}; !slices.Equal(ref.ShortPurpose, want) {
		t.Errorf("ShortPurpose = %v, want %v", ref.ShortPurpose, want)
	}
}

func TestParseAndAdd_OneLineDocstring(t *testing.T) {
	path := writeSource(t, `def f(): """`+doi1+`"""`)
	biblio := reference.NewBiblio()

	if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, biblio); err != nil {
		t.Fatalf("ParseAndAddDocstringReferencesFromFiles() error = %v", err)
	}

	ref, ok := biblio.Get(path + ":1")
	if !ok {
		t.Fatalf("entry %s:1 missing, keys = %v", path, biblio.Keys())
	}
	if ref.Name != "f" || !slices.Equal(ref.References, []string{doiURLPrefix + doi1}) {
		t.Errorf("entry = %+v", ref)
	}
}

func TestParseAndAdd_DoesNotOverrideExistingReference(t *testing.T) {
	path := writeSource(t,
		`def some_function():    """`,
		`    `+doi1,
		`    """`,
	)
	key := reference.Key(path, 1)
	existing := reference.FunctionReference{
		Name:         "other",
		Source:       "other.py",
		Line:         -1,
		ShortPurpose: []string{"For testing"},
		References:   []string{"test/123"},
	}
	biblio := reference.NewBiblio()
	biblio.Set(key, existing)

	if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, biblio); err != nil {
		t.Fatalf("ParseAndAddDocstringReferencesFromFiles() error = %v", err)
	}

	want := reference.NewBiblio()
	want.Set(key, existing)
	if !biblio.Equal(want) {
		t.Errorf("biblio = %+v, want only the pre-existing entry", biblio.Entries())
	}
}

func TestParseAndAdd_NoReferencesNoEntry(t *testing.T) {
	path := writeSource(t,
		`def some_function():    """`,
		`    some docstring`,
		`    """`,
	)
	biblio := reference.NewBiblio()

	if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, biblio); err != nil {
		t.Fatalf("ParseAndAddDocstringReferencesFromFiles() error = %v", err)
	}
	if biblio.Len() != 0 {
		t.Errorf("Len() = %d, want 0", biblio.Len())
	}
}

func TestParseAndAdd_MultipleDOIsPreserveOrder(t *testing.T) {
	path := writeSource(t,
		`def f():`,
		`    """Uses two methods.`,
		``,
		`    See `+doi2+` and https://doi.org/`+doi1+`.`,
		`    Again: `+doi2,
		`    """`,
	)
	biblio := reference.NewBiblio()

	if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, biblio); err != nil {
		t.Fatalf("ParseAndAddDocstringReferencesFromFiles() error = %v", err)
	}

	ref, ok := biblio.Get(reference.Key(path, 2))
	if !ok {
		t.Fatalf("entry missing, keys = %v", biblio.Keys())
	}
	want := []string{doiURLPrefix + doi2, doiURLPrefix + doi1, doiURLPrefix + doi2}
	if !slices.Equal(ref.References, want) {
		t.Errorf("References = %v, want %v", ref.References, want)
	}
}

func TestReferences_SeparatorJoinedDOIs(t *testing.T) {
	for _, sep := range []string{",", ";"} {
		got := References("Cite " + doi1 + sep + doi2 + ".")
		want := []string{doiURLPrefix + doi1, doiURLPrefix + doi2}
		if !slices.Equal(got, want) {
			t.Errorf("References(%q joined) = %v, want %v", sep, got, want)
		}
	}
}

func TestParseAndAdd_MultipleFunctionsAndFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "b.py")
	writeFile(t, a, "def one():\n    '"+doi1+"'\n\ndef two():\n    'nothing'\n\ndef three():\n    '"+doi2+"'\n")
	writeFile(t, b, "class K:\n    def m(self):\n        \"\"\""+doi1+"\"\"\"\n")

	biblio := reference.NewBiblio()
	if err := ParseAndAddDocstringReferencesFromFiles([]string{a, b}, biblio); err != nil {
		t.Fatalf("ParseAndAddDocstringReferencesFromFiles() error = %v", err)
	}

	want := []string{a + ":2", a + ":8", b + ":3"}
	slices.Sort(want)
	if got := biblio.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestParseAndAdd_Idempotent(t *testing.T) {
	path := writeSource(t, "def f():\n    '"+doi1+"'\n")

	once := reference.NewBiblio()
	if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, once); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	twice := reference.NewBiblio()
	for i := 0; i < 2; i++ {
		if err := ParseAndAddDocstringReferencesFromFiles([]string{path}, twice); err != nil {
			t.Fatalf("run %d error = %v", i, err)
		}
	}

	if !once.Equal(twice) {
		t.Errorf("two runs = %+v, want %+v", twice.Entries(), once.Entries())
	}
}

func TestParseAndAdd_MissingFileFails(t *testing.T) {
	good := writeSource(t, "def f():\n    '"+doi1+"'\n")
	missing := filepath.Join(t.TempDir(), "missing.py")

	biblio := reference.NewBiblio()
	err := ParseAndAddDocstringReferencesFromFiles([]string{good, missing}, biblio)
	if err == nil {
		t.Fatal("ParseAndAddDocstringReferencesFromFiles() error = nil, want error")
	}

	var fileErr *FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("error type = %T, want *FileError", err)
	}
	if fileErr.Path != missing {
		t.Errorf("FileError.Path = %q, want %q", fileErr.Path, missing)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("errors.Is(err, fs.ErrNotExist) = false, want true")
	}
	if biblio.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (files before the failure stay merged)", biblio.Len())
	}
}

func TestAddDocstringReferences_ReturnsAddedCount(t *testing.T) {
	src := "def a():\n    '" + doi1 + "'\ndef b():\n    '" + doi2 + "'\n"
	biblio := reference.NewBiblio()

	if got := AddDocstringReferences("mod.py", src, biblio); got != 2 {
		t.Errorf("first AddDocstringReferences() = %d, want 2", got)
	}
	if got := AddDocstringReferences("mod.py", src, biblio); got != 0 {
		t.Errorf("second AddDocstringReferences() = %d, want 0", got)
	}
}

func TestConcurrently_MatchesSequential(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"a.py", "b.py", "c.py", "d.py"} {
		path := filepath.Join(dir, name)
		body := "def f():\n    'see " + doi1 + "'\n"
		if i%2 == 1 {
			body += "def g():\n    '" + doi2 + "'\n"
		}
		writeFile(t, path, body)
		paths = append(paths, path)
	}
	// Repeating a path must not change the outcome.
	paths = append(paths, paths[0])

	seq := reference.NewBiblio()
	if err := ParseAndAddDocstringReferencesFromFiles(paths, seq); err != nil {
		t.Fatalf("sequential error = %v", err)
	}

	conc := reference.NewBiblio()
	if err := ParseAndAddDocstringReferencesFromFilesConcurrently(context.Background(), paths, conc, 2); err != nil {
		t.Fatalf("concurrent error = %v", err)
	}

	if !seq.Equal(conc) {
		t.Errorf("concurrent = %+v, want %+v", conc.Entries(), seq.Entries())
	}
}

func TestConcurrently_MissingFileLeavesBiblioUnchanged(t *testing.T) {
	good := writeSource(t, "def f():\n    '"+doi1+"'\n")
	missing := filepath.Join(t.TempDir(), "missing.py")

	biblio := reference.NewBiblio()
	err := ParseAndAddDocstringReferencesFromFilesConcurrently(context.Background(), []string{good, missing}, biblio, 0)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want fs.ErrNotExist", err)
	}
	if biblio.Len() != 0 {
		t.Errorf("Len() = %d, want 0", biblio.Len())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
