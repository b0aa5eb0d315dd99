package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matsen/r2t2/internal/reference"
)

// CSVHeader is the column layout of WriteCSV.
var CSVHeader = []string{"key", "name", "source", "line", "short_purpose", "position", "reference"}

// WriteCSV writes one row per reference, so a function citing three works
// produces three rows sharing the same key.
func WriteCSV(w io.Writer, entries []reference.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range entries {
		ref := e.Reference
		purpose := strings.Join(ref.ShortPurpose, "; ")
		for i, url := range ref.References {
			row := []string{e.Key, ref.Name, ref.Source, strconv.Itoa(ref.Line), purpose, strconv.Itoa(i + 1), url}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing csv row for %s: %w", e.Key, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
