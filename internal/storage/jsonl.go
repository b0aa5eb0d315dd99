// Package storage handles bibliography persistence in JSONL and SQLite formats.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/r2t2/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// ReadAll reads all bibliography entries from a JSONL file.
func ReadAll(path string) ([]reference.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing file is an empty bibliography
		}
		return nil, fmt.Errorf("opening biblio file: %w", err)
	}
	defer f.Close()

	var entries []reference.Entry
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}

		var entry reference.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		if entry.Key == "" {
			return nil, fmt.Errorf("parsing line %d: missing key", lineNum)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading biblio file: %w", err)
	}

	return entries, nil
}

// Load reads a bibliography from a JSONL file. A missing file yields an
// empty bibliography. If a key appears more than once the first line wins.
func Load(path string) (*reference.Biblio, error) {
	entries, err := ReadAll(path)
	if err != nil {
		return nil, err
	}

	biblio := reference.NewBiblio()
	for _, e := range entries {
		biblio.AddIfAbsent(e.Key, e.Reference)
	}
	return biblio, nil
}

// WriteAll writes entries to a JSONL file, replacing existing content.
// Entries go to a temporary file in the same directory which is renamed
// over path, so readers never see a partly written file.
func WriteAll(path string, entries []reference.Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating biblio directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp biblio file: %w", err)
	}
	tmpPath := f.Name()
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	w := bufio.NewWriter(f)
	for i, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding entry %d: %w", i, err)
		}

		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing biblio file: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		return fmt.Errorf("setting biblio file mode: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing biblio file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing biblio file: %w", err)
	}
	return nil
}

// Save writes the whole bibliography, sorted by key.
func Save(path string, biblio *reference.Biblio) error {
	return WriteAll(path, biblio.Entries())
}
