package export

import (
	"fmt"
	"strings"

	"github.com/matsen/r2t2/internal/doi"
	"github.com/matsen/r2t2/internal/reference"
)

// citation is one cited work and the functions that cite it.
type citation struct {
	ref     string
	citedBy []string
}

// ToBibTeXList renders each distinct cited work once, in order of first
// citation, noting the functions that cite it.
func ToBibTeXList(entries []reference.Entry) string {
	var order []string
	byRef := make(map[string]*citation)

	for _, e := range entries {
		site := fmt.Sprintf("%s (%s)", e.Reference.Name, e.Key)
		for _, r := range e.Reference.References {
			c, ok := byRef[r]
			if !ok {
				c = &citation{ref: r}
				byRef[r] = c
				order = append(order, r)
			}
			c.citedBy = append(c.citedBy, site)
		}
	}

	var out []string
	for _, r := range order {
		out = append(out, toBibTeX(byRef[r]))
	}
	return strings.Join(out, "\n")
}

// toBibTeX converts one cited work to a @misc entry.
func toBibTeX(c *citation) string {
	var b strings.Builder

	bare := doi.Strip(c.ref)
	isDOI := doi.IsValid(bare)

	b.WriteString(fmt.Sprintf("@misc{%s,\n", citeKey(c.ref, bare, isDOI)))
	if isDOI {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", bare))
		b.WriteString(fmt.Sprintf("  url = {%s},\n", doi.Canonicalize(bare)))
	} else {
		b.WriteString(fmt.Sprintf("  howpublished = {%s},\n", escapeLatex(c.ref)))
	}
	b.WriteString(fmt.Sprintf("  note = {Cited by %s},\n", escapeLatex(strings.Join(c.citedBy, ", "))))
	b.WriteString("}\n")

	return b.String()
}

// citeKey derives a BibTeX key from a reference.
func citeKey(ref, bare string, isDOI bool) string {
	src := ref
	prefix := "ref"
	if isDOI {
		src = bare
		prefix = "doi"
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, r := range src {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
