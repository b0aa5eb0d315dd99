// Package reference defines the core domain types for function references.
package reference

import (
	"fmt"
	"slices"
)

// DocstringShortPurpose tags references discovered in a function's docstring.
const DocstringShortPurpose = "Reference found in docstring"

// FunctionReference records the references cited by one documented function.
type FunctionReference struct {
	Name         string   `json:"name"`          // Function identifier as written in source
	Source       string   `json:"source"`        // Path of the containing file, as supplied
	Line         int      `json:"line"`          // 1-based line of the docstring
	ShortPurpose []string `json:"short_purpose"` // How each reference was discovered
	References   []string `json:"references"`    // Canonical reference URLs, discovery order
}

// Key returns the identity of a function site: "{source}:{line}".
//
// The key is not stable across edits that shift line numbers.
func Key(source string, line int) string {
	return fmt.Sprintf("%s:%d", source, line)
}

// Key returns the identity derived from the reference's own source and line.
func (r FunctionReference) Key() string {
	return Key(r.Source, r.Line)
}

// Equal reports whether two function references hold the same values.
func (r FunctionReference) Equal(other FunctionReference) bool {
	return r.Name == other.Name &&
		r.Source == other.Source &&
		r.Line == other.Line &&
		slices.Equal(r.ShortPurpose, other.ShortPurpose) &&
		slices.Equal(r.References, other.References)
}

// clone returns a copy that shares no slices with r.
func (r FunctionReference) clone() FunctionReference {
	r.ShortPurpose = slices.Clone(r.ShortPurpose)
	r.References = slices.Clone(r.References)
	return r
}
