package codegen

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/module"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Namer hands out unique Go identifiers derived from arbitrary ids. The same
// sequence of calls always yields the same names.
type Namer struct {
	used map[string]bool
}

// NewNamer creates a Namer with the given identifiers already taken.
func NewNamer(reserved ...string) *Namer {
	n := &Namer{used: make(map[string]bool, len(reserved))}
	for _, r := range reserved {
		n.used[r] = true
	}
	return n
}

// Name returns prefix followed by the CamelCase form of id, suffixed with a
// counter when that identifier is already taken.
func (n *Namer) Name(prefix, id string) string {
	base := prefix + Camel(id)
	if base == prefix {
		base += "Step"
	}
	name := base
	for i := 2; n.used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	n.used[name] = true
	return name
}

// Camel converts id to an ASCII CamelCase fragment. Runs of characters that
// are not ASCII letters or digits act as word breaks and are dropped.
func Camel(id string) string {
	var sb strings.Builder
	upper := true
	for _, r := range fold(id) {
		isWord := r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
		if !isWord {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// fold strips diacritics so "Menú" and "Menu" yield the same fragment.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Slug derives a file-system friendly name from a project name: lower-cased,
// diacritics folded, whitespace turned into hyphens and anything outside
// [a-z0-9._-] dropped.
func Slug(name string) string {
	var sb strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(fold(strings.TrimSpace(name))) {
		switch {
		case unicode.IsSpace(r) || r == '-':
			hyphen = sb.Len() > 0
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_'):
			if hyphen {
				sb.WriteByte('-')
				hyphen = false
			}
			sb.WriteRune(r)
		}
	}
	return strings.Trim(sb.String(), "._")
}

// DefaultSlug is used when a project name yields an empty slug.
const DefaultSlug = "ussd-app"

// ModulePath returns a valid Go module path for the project.
func ModulePath(name string) string {
	slug := Slug(name)
	if slug == "" || module.CheckImportPath(slug) != nil {
		return DefaultSlug
	}
	return slug
}
