package export

import (
	"fmt"
	"strings"

	"github.com/matsen/r2t2/internal/reference"
)

// ToMarkdown renders entries as a Markdown document with one section per
// source file.
func ToMarkdown(entries []reference.Entry) string {
	var b strings.Builder
	b.WriteString("# Referenced functions\n")

	if len(entries) == 0 {
		b.WriteString("\nNo references found.\n")
		return b.String()
	}

	source := ""
	for i, e := range entries {
		ref := e.Reference
		if i == 0 || ref.Source != source {
			source = ref.Source
			fmt.Fprintf(&b, "\n## %s\n\n", escapeMarkdown(source))
			b.WriteString("| Function | Line | Purpose | References |\n")
			b.WriteString("|---|---|---|---|\n")
		}

		links := make([]string, 0, len(ref.References))
		for _, r := range ref.References {
			links = append(links, markdownLink(r))
		}
		fmt.Fprintf(&b, "| `%s` | %d | %s | %s |\n",
			strings.ReplaceAll(ref.Name, "`", ""),
			ref.Line,
			escapeMarkdown(strings.Join(ref.ShortPurpose, "; ")),
			strings.Join(links, "<br>"))
	}
	return b.String()
}

// markdownLink renders URLs as autolinks and anything else as escaped text.
func markdownLink(ref string) string {
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return "<" + ref + ">"
	}
	return escapeMarkdown(ref)
}

// escapeMarkdown escapes characters that break table cells or inline markup.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		"|", `\|`,
		"*", `\*`,
		"_", `\_`,
		"\n", " ",
	)
	return replacer.Replace(s)
}
