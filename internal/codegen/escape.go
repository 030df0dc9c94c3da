// Package codegen holds the escaping and naming rules for text interpolated
// into generated Go source and documentation.
package codegen

import (
	"strconv"
	"strings"
	"unicode"
)

// Quote renders s as a Go interpreted string literal.
func Quote(s string) string {
	return strconv.Quote(s)
}

// Comment makes s safe to place after a // marker: line breaks of any kind
// collapse into single spaces. Byte order marks, which Go rejects outside
// the start of a file, are treated the same way.
func Comment(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '\uFEFF' {
			space = true
			continue
		}
		if space && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return strings.ReplaceAll(sb.String(), "*/", "* /")
}

var markdownSpecial = "\\`*_{}[]<>()#+!|~"

// Markdown escapes s for inline use in Markdown, including table cells.
func Markdown(s string) string {
	s = Comment(s)
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(markdownSpecial, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
