package storage

import (
	"path/filepath"
	"testing"

	"github.com/matsen/r2t2/internal/reference"
)

// setupTestDB creates a test database indexed from a JSONL bibliography.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir := t.TempDir()
	jsonlPath := filepath.Join(tmpDir, "biblio.jsonl")
	if err := Save(jsonlPath, testBiblio()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	db, err := OpenDB(filepath.Join(tmpDir, "biblio.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result, err := db.RebuildFromJSONL(jsonlPath)
	if err != nil {
		t.Fatalf("RebuildFromJSONL() error = %v", err)
	}
	if result.Entries != 2 || result.References != 3 {
		t.Fatalf("RebuildFromJSONL() = %+v, want 2 entries, 3 references", result)
	}
	return db
}

func TestRebuild_Count(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestRebuild_ReplacesContents(t *testing.T) {
	db := setupTestDB(t)

	result, err := db.Rebuild([]reference.Entry{{
		Key:       "only.py:1",
		Reference: reference.FunctionReference{Name: "only", Source: "only.py", Line: 1, References: []string{"u"}},
	}})
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if result.Entries != 1 {
		t.Errorf("Rebuild() entries = %d, want 1", result.Entries)
	}

	n, _ := db.Count()
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestGetByKey(t *testing.T) {
	db := setupTestDB(t)

	ref, err := db.GetByKey("pkg/model.py:12")
	if err != nil {
		t.Fatalf("GetByKey() error = %v", err)
	}
	if ref == nil {
		t.Fatal("GetByKey() returned nil")
	}
	want, _ := testBiblio().Get("pkg/model.py:12")
	if !ref.Equal(want) {
		t.Errorf("GetByKey() = %+v, want %+v", *ref, want)
	}

	missing, err := db.GetByKey("nope.py:1")
	if err != nil {
		t.Fatalf("GetByKey(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByKey(missing) = %+v, want nil", missing)
	}
}

func TestFindByURL(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		url      string
		wantKeys []string
	}{
		{"https://doi.org/10.1234/a", []string{"pkg/io.py:3", "pkg/model.py:12"}},
		{"https://doi.org/10.1234/b", []string{"pkg/model.py:12"}},
		{"https://doi.org/10.1234/none", nil},
	}

	for _, tt := range tests {
		entries, err := db.FindByURL(tt.url)
		if err != nil {
			t.Fatalf("FindByURL(%q) error = %v", tt.url, err)
		}
		if len(entries) != len(tt.wantKeys) {
			t.Fatalf("FindByURL(%q) returned %d entries, want %d", tt.url, len(entries), len(tt.wantKeys))
		}
		for i, e := range entries {
			if e.Key != tt.wantKeys[i] {
				t.Errorf("FindByURL(%q)[%d] = %q, want %q", tt.url, i, e.Key, tt.wantKeys[i])
			}
		}
	}
}

func TestFindBySource(t *testing.T) {
	db := setupTestDB(t)

	entries, err := db.FindBySource("pkg/io.py")
	if err != nil {
		t.Fatalf("FindBySource() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Reference.Name != "load" {
		t.Errorf("FindBySource() = %+v, want [load]", entries)
	}
}
