package codegen

import (
	"sort"
	"strconv"
	"strings"
)

// Struct builds a Go composite literal field by field. Zero values are
// omitted so the emitted literal stays minimal; gofmt aligns the result.
type Struct struct {
	typ    string
	fields []string
}

// NewStruct starts a literal of the named type. An empty type produces an
// elided single-line literal for use inside slices.
func NewStruct(typ string) *Struct {
	return &Struct{typ: typ}
}

// String sets a string field when v is non-empty.
func (s *Struct) String(name, v string) *Struct {
	if v != "" {
		s.fields = append(s.fields, name+": "+Quote(v))
	}
	return s
}

// Bool sets a boolean field when v is true.
func (s *Struct) Bool(name string, v bool) *Struct {
	if v {
		s.fields = append(s.fields, name+": true")
	}
	return s
}

// Int sets an integer field when v is non-zero.
func (s *Struct) Int(name string, v int) *Struct {
	if v != 0 {
		s.fields = append(s.fields, name+": "+strconv.Itoa(v))
	}
	return s
}

// Float sets a float field when v is non-zero.
func (s *Struct) Float(name string, v float64) *Struct {
	if v != 0 {
		s.fields = append(s.fields, name+": "+Float(v))
	}
	return s
}

// Raw sets a field to an already rendered expression when expr is non-empty.
func (s *Struct) Raw(name, expr string) *Struct {
	if expr != "" {
		s.fields = append(s.fields, name+": "+expr)
	}
	return s
}

// StringMap sets a map[string]string field when m is non-empty. Keys are
// emitted in sorted order.
func (s *Struct) StringMap(name string, m map[string]string) *Struct {
	if len(m) == 0 {
		return s
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString("map[string]string{\n")
	for _, k := range keys {
		sb.WriteString(Quote(k) + ": " + Quote(m[k]) + ",\n")
	}
	sb.WriteString("}")
	return s.Raw(name, sb.String())
}

// Strings sets a []string field when v is non-empty.
func (s *Struct) Strings(name string, v []string) *Struct {
	if len(v) == 0 {
		return s
	}
	quoted := make([]string, len(v))
	for i, e := range v {
		quoted[i] = Quote(e)
	}
	return s.Raw(name, "[]string{"+strings.Join(quoted, ", ")+"}")
}

// Render returns the literal source.
func (s *Struct) Render() string {
	if len(s.fields) == 0 {
		return s.typ + "{}"
	}
	if s.typ == "" {
		return "{" + strings.Join(s.fields, ", ") + "}"
	}
	var sb strings.Builder
	sb.WriteString(s.typ + "{\n")
	for _, f := range s.fields {
		sb.WriteString(f + ",\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// Slice renders a slice literal from already rendered elements.
func Slice(typ string, elems []string) string {
	if len(elems) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(typ + "{\n")
	for _, e := range elems {
		sb.WriteString(e + ",\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// Float renders v as a Go float constant.
func Float(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Empty reports whether no field has been set.
func (s *Struct) Empty() bool { return len(s.fields) == 0 }
