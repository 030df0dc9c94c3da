package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/export"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/aretw0/ussdflow/pkg/validator"
)

// ErrFlowInvalid reports that validate found blocking problems.
var ErrFlowInvalid = errors.New("flow is invalid")

// ValidateOptions configure Validate.
type ValidateOptions struct {
	Strict bool
	JSON   bool
}

// Validate loads the flow at path and writes a report of its findings to w.
// It returns ErrFlowInvalid when the flow cannot be compiled.
func Validate(w io.Writer, path string, opts ValidateOptions) error {
	g, err := flow.Load(path)
	var se *flow.SchemaError
	if errors.As(err, &se) {
		res := validator.Result{Errors: se.Problems, Warnings: []string{}}
		if err := report(w, res, opts.JSON); err != nil {
			return err
		}
		return ErrFlowInvalid
	}
	if err != nil {
		return err
	}

	var vopts []validator.Option
	if opts.Strict {
		vopts = append(vopts, validator.WithStrict())
	}
	res := validator.Validate(g, vopts...)
	if err := report(w, res, opts.JSON); err != nil {
		return err
	}
	if !res.Valid {
		return ErrFlowInvalid
	}
	return nil
}

func report(w io.Writer, res validator.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "error: %s\n", e)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if res.Valid {
		fmt.Fprintf(w, "Flow is valid (%d nodes, %d edges)\n", res.NodeCount, res.EdgeCount)
	}
	return nil
}

// GenerateOptions configure Generate. With neither OutDir nor ZipPath set
// the files stay in memory.
type GenerateOptions struct {
	Name    string
	OutDir  string
	ZipPath string
}

// Generate compiles the flow at path with b and writes the program where
// opts ask for it. The flow file itself is bundled next to the sources.
func Generate(b *ussdflow.Builder, path string, opts GenerateOptions) (*compiler.Program, error) {
	g, err := flow.Load(path)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = baseName(path)
	}

	prog, err := b.Generate(g, name)
	if err != nil {
		return nil, err
	}

	flowJSON, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	files, err := export.Bundle(prog, flowJSON)
	if err != nil {
		return nil, err
	}

	if opts.OutDir != "" {
		if err := export.WriteDir(opts.OutDir, files); err != nil {
			return nil, fmt.Errorf("write %s: %w", opts.OutDir, err)
		}
	}
	if opts.ZipPath != "" {
		if err := writeZipFile(opts.ZipPath, files); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func writeZipFile(path string, files map[string]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return export.WriteZip(f, files)
}

func baseName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Graph writes the Mermaid chart of the flow at path, highlighting current
// when it is set.
func Graph(w io.Writer, path, current string) error {
	g, err := flow.Load(path)
	if err != nil {
		return err
	}
	var overlay *graph.Overlay
	if current != "" {
		overlay = &graph.Overlay{Current: current}
	}
	_, err = io.WriteString(w, graph.Mermaid(g, overlay))
	return err
}

// Docs writes the README of the program generated from the flow at path.
// render formats the markdown for a terminal; nil writes it raw.
func Docs(w io.Writer, b *ussdflow.Builder, path, name string, render func(string) (string, error)) error {
	prog, err := Generate(b, path, GenerateOptions{Name: name})
	if err != nil {
		return err
	}
	readme, _ := prog.File("README.md")
	if render != nil {
		if out, err := render(readme); err == nil {
			readme = out
		}
	}
	_, err = io.WriteString(w, readme)
	return err
}
