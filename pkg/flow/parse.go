package flow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed graph.schema.json
var graphSchemaSource string

const graphSchemaURL = "https://ussdflow.dev/schemas/graph.json"

var (
	graphSchemaOnce sync.Once
	graphSchema     *jsonschema.Schema
	graphSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	graphSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(graphSchemaURL, strings.NewReader(graphSchemaSource)); err != nil {
			graphSchemaErr = fmt.Errorf("load graph schema: %w", err)
			return
		}
		graphSchema, graphSchemaErr = c.Compile(graphSchemaURL)
	})
	return graphSchema, graphSchemaErr
}

// SchemaDocument returns the JSON Schema raw graphs are checked against.
func SchemaDocument() string {
	return graphSchemaSource
}

// ParseJSON checks data against the graph schema and decodes it. Shape
// violations are reported as a *SchemaError.
func ParseJSON(data []byte) (*Graph, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Problems: []string{"(root): " + err.Error()}}
	}
	return fromDocument(doc)
}

// ParseYAML accepts the same shape as ParseJSON written in YAML.
func ParseYAML(data []byte) (*Graph, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Problems: []string{"(root): " + err.Error()}}
	}
	// Round-trip through JSON so both formats share one schema and one
	// decoder.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &SchemaError{Problems: []string{"(root): " + err.Error()}}
	}
	return ParseJSON(raw)
}

// Load reads a graph file. Files ending in .yaml or .yml are parsed as YAML,
// everything else as JSON.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// Check validates an already decoded graph against the schema, for graphs
// that did not arrive through ParseJSON.
func Check(g *Graph) error {
	c := *g
	if c.Nodes == nil {
		c.Nodes = []Node{}
	}
	if c.Edges == nil {
		c.Edges = []Edge{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	_, err = ParseJSON(raw)
	return err
}

func fromDocument(doc any) (*Graph, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &SchemaError{Problems: schemaProblems(ve)}
		}
		return nil, &SchemaError{Problems: []string{"(root): " + err.Error()}}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode graph: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	var g Graph
	if err := dec.Decode(&g); err != nil {
		return nil, &SchemaError{Problems: []string{"(root): " + err.Error()}}
	}
	return &g, nil
}

// schemaProblems flattens the validation tree into "path: message" lines,
// keeping only the leaves that carry the actual complaint.
func schemaProblems(ve *jsonschema.ValidationError) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			line := fieldPath(e.InstanceLocation) + ": " + e.Message
			if !seen[line] {
				seen[line] = true
				out = append(out, line)
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}

// fieldPath turns a JSON pointer such as /nodes/0/id into nodes.0.id.
func fieldPath(pointer string) string {
	p := strings.Trim(pointer, "/")
	if p == "" {
		return "(root)"
	}
	p = strings.ReplaceAll(p, "/", ".")
	p = strings.ReplaceAll(p, "~1", "/")
	return strings.ReplaceAll(p, "~0", "~")
}
