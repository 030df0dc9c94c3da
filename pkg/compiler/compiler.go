// Package compiler turns a validated flow graph into the source of a
// standalone Go USSD service.
//
// Every node is lowered into a handler that calls the step runtime with its
// configuration baked in as a Go literal, and a dispatch switch keyed by the
// session's current step ties the handlers together. The graph itself does
// not survive compilation.
package compiler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"go/format"
	"maps"
	"path"
	"slices"
	"strings"
	"text/template"

	"github.com/aretw0/ussdflow/internal/codegen"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/aretw0/ussdflow/pkg/ussdrt"
)

// ErrEmptyGraph is returned when the graph has no nodes to compile.
var ErrEmptyGraph = errors.New("graph has no nodes")

// ErrDuplicateNode is returned when two nodes share an id.
var ErrDuplicateNode = errors.New("duplicate node id")

// LoweringError reports a node that could not be translated.
type LoweringError struct {
	NodeID string
	Type   flow.NodeType
	Err    error
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("lower node %q (%s): %v", e.NodeID, e.Type, e.Err)
}

func (e *LoweringError) Unwrap() error { return e.Err }

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"quote": codegen.Quote,
	"md":    codegen.Markdown,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Program is the generated source tree: relative path to file content.
// A Program is never modified after Generate returns it.
type Program struct {
	name   string
	module string
	files  map[string]string
}

// Name returns the project name the program was generated for.
func (p *Program) Name() string { return p.name }

// Module returns the Go module path of the program.
func (p *Program) Module() string { return p.module }

// Paths lists the file paths in sorted order.
func (p *Program) Paths() []string {
	return slices.Sorted(maps.Keys(p.files))
}

// File returns the content at path.
func (p *Program) File(path string) (string, bool) {
	s, ok := p.files[path]
	return s, ok
}

// Files returns a copy of the tree.
func (p *Program) Files() map[string]string {
	return maps.Clone(p.files)
}

// Len reports the number of files.
func (p *Program) Len() int { return len(p.files) }

type group struct {
	Title     string
	Fragments []Fragment
}

var groupTitles = []struct {
	typ   flow.NodeType
	title string
}{
	{flow.TypeMenuScreen, "Menus"},
	{flow.TypeInputField, "Inputs"},
	{flow.TypePaymentOption, "Payments"},
	{flow.TypeConditionalBranch, "Branches"},
	{flow.TypeAPIIntegration, "API calls"},
	{flow.TypeValidation, "Validations"},
	{flow.TypeEndScreen, "End screens"},
}

// Generate compiles g into a program named projectName. The graph is
// expected to have passed validation; Generate only refuses what it cannot
// translate. The output depends on nothing but its inputs.
func Generate(g *flow.Graph, projectName string) (*Program, error) {
	if len(g.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	start, _ := g.Start()

	lw := NewLowerer(g)
	seen := make(map[string]bool, len(g.Nodes))
	frags := make([]Fragment, 0, len(g.Nodes))
	var startFrag Fragment
	for _, n := range g.Nodes {
		if seen[n.ID] {
			return nil, &LoweringError{NodeID: n.ID, Type: n.Type, Err: ErrDuplicateNode}
		}
		seen[n.ID] = true

		step, err := flow.DecodeStep(n)
		if err != nil {
			return nil, &LoweringError{NodeID: n.ID, Type: n.Type, Err: err}
		}
		frag, err := lw.Lower(step)
		if err != nil {
			return nil, &LoweringError{NodeID: n.ID, Type: n.Type, Err: err}
		}
		if n.ID == start.ID {
			startFrag = frag
		}
		frags = append(frags, frag)
	}

	groups := make([]group, 0, len(groupTitles))
	for _, gt := range groupTitles {
		var members []Fragment
		for _, f := range frags {
			if f.Type.Canonical() == gt.typ {
				members = append(members, f)
			}
		}
		if len(members) > 0 {
			groups = append(groups, group{Title: gt.title, Fragments: members})
		}
	}

	files := make(map[string]string)
	render := func(file, tmpl string, data any) error {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
			return fmt.Errorf("render %s: %w", file, err)
		}
		files[file] = buf.String()
		return nil
	}

	if err := render("main.go", "main.go.tmpl", map[string]any{"Service": projectName}); err != nil {
		return nil, err
	}
	if err := render("routes.go", "routes.go.tmpl", map[string]any{"Start": startFrag, "Fragments": frags}); err != nil {
		return nil, err
	}
	if err := render("handlers.go", "handlers.go.tmpl", map[string]any{"Groups": groups}); err != nil {
		return nil, err
	}
	for _, name := range ussdrt.SourceFiles {
		src, err := ussdrt.Source(name, "main")
		if err != nil {
			return nil, err
		}
		files[name] = src
	}

	modulePath := codegen.ModulePath(projectName)
	gomod, err := renderGoMod(modulePath)
	if err != nil {
		return nil, err
	}
	files["go.mod"] = gomod

	readme, err := buildReadme(g, projectName)
	if err != nil {
		return nil, err
	}
	if err := render("README.md", "README.md.tmpl", readme); err != nil {
		return nil, err
	}

	for name, src := range files {
		if path.Ext(name) != ".go" {
			continue
		}
		out, err := format.Source([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		files[name] = string(out)
	}

	return &Program{name: strings.TrimSpace(projectName), module: modulePath, files: files}, nil
}
