// Package export renders a bibliography in the supported report formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/r2t2/internal/reference"
)

// Supported formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatText     = "text"
	FormatBibTeX   = "bibtex"
)

// Write renders entries to w in the given format.
// Entries are written in the order given; Biblio.Entries sorts them by key.
func Write(w io.Writer, format string, entries []reference.Entry) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatMarkdown:
		_, err := io.WriteString(w, ToMarkdown(entries))
		return err
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatText:
		_, err := io.WriteString(w, ToText(entries))
		return err
	case FormatBibTeX:
		_, err := io.WriteString(w, ToBibTeXList(entries))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteJSON writes entries as an indented JSON array.
func WriteJSON(w io.Writer, entries []reference.Entry) error {
	if entries == nil {
		entries = []reference.Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// ToText renders entries for a terminal.
func ToText(entries []reference.Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		name := e.Reference.Name
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(&b, "%s  %s\n", e.Key, name)
		if len(e.Reference.ShortPurpose) > 0 {
			fmt.Fprintf(&b, "    [%s]\n", strings.Join(e.Reference.ShortPurpose, "; "))
		}
		for _, ref := range e.Reference.References {
			fmt.Fprintf(&b, "    %s\n", ref)
		}
	}
	return b.String()
}
