package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/pkg/export"
	"github.com/aretw0/ussdflow/pkg/validator"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFlow = `{
  "nodes": [
    {"id": "main", "type": "menu-screen", "position": {"x": 0, "y": 0},
     "data": {"label": "Main Menu", "properties": {"title": "Welcome", "options": [{"text": "Leave", "nextStep": "bye"}]}}},
    {"id": "bye", "type": "end-screen", "position": {"x": 0, "y": 100},
     "data": {"label": "Goodbye", "properties": {"message": "Bye"}}}
  ],
  "edges": [{"id": "e1", "source": "main", "target": "bye"}]
}`

const orphanFlow = `{
  "nodes": [
    {"id": "main", "type": "menu-screen", "position": {"x": 0, "y": 0},
     "data": {"label": "Main Menu", "properties": {"title": "Welcome", "options": [{"text": "Leave", "nextStep": "bye"}]}}},
    {"id": "bye", "type": "end-screen", "position": {"x": 0, "y": 100},
     "data": {"label": "Goodbye", "properties": {"message": "Bye"}}},
    {"id": "lost", "type": "input-field", "position": {"x": 0, "y": 200},
     "data": {"label": "Lost", "properties": {"variableName": "pin"}}}
  ],
  "edges": [{"id": "e1", "source": "main", "target": "bye"}]
}`

func writeFlow(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Validate(&out, writeFlow(t, "flow.json", validFlow), ValidateOptions{}))
		assert.Contains(t, out.String(), "Flow is valid (2 nodes, 1 edges)")
	})

	t.Run("warnings pass unless strict", func(t *testing.T) {
		path := writeFlow(t, "flow.json", orphanFlow)

		var out bytes.Buffer
		require.NoError(t, Validate(&out, path, ValidateOptions{}))
		assert.Contains(t, out.String(), "warning:")

		out.Reset()
		err := Validate(&out, path, ValidateOptions{Strict: true})
		assert.ErrorIs(t, err, ErrFlowInvalid)
		assert.Contains(t, out.String(), "error:")
	})

	t.Run("schema problems", func(t *testing.T) {
		var out bytes.Buffer
		err := Validate(&out, writeFlow(t, "flow.json", `{"nodes": []}`), ValidateOptions{JSON: true})
		assert.ErrorIs(t, err, ErrFlowInvalid)

		var res validator.Result
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.False(t, res.Valid)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "edges")
	})

	t.Run("missing file", func(t *testing.T) {
		err := Validate(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.json"), ValidateOptions{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrFlowInvalid)
	})
}

func TestGenerate_OutDir(t *testing.T) {
	b := ussdflow.New(nil)
	out := t.TempDir()

	prog, err := Generate(b, writeFlow(t, "hello.json", validFlow), GenerateOptions{OutDir: out})
	require.NoError(t, err)
	assert.Equal(t, "hello", prog.Module())

	for _, name := range []string{"main.go", "go.mod", "Dockerfile", export.FlowFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestGenerate_Zip(t *testing.T) {
	b := ussdflow.New(nil)
	zipPath := filepath.Join(t.TempDir(), "out.zip")

	_, err := Generate(b, writeFlow(t, "flow.json", validFlow), GenerateOptions{Name: "Shop", ZipPath: zipPath})
	require.NoError(t, err)

	zr, err := zip.OpenReader(zipPath)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "main.go")
	assert.Contains(t, names, export.FlowFile)
}

func TestGenerate_RefusesInvalidFlow(t *testing.T) {
	b := ussdflow.New(nil, ussdflow.WithStrict())
	_, err := Generate(b, writeFlow(t, "flow.json", orphanFlow), GenerateOptions{OutDir: t.TempDir()})
	assert.ErrorIs(t, err, ussdflow.ErrInvalidFlow)
}

func TestGraph(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Graph(&out, writeFlow(t, "flow.json", validFlow), "bye"))
	assert.True(t, strings.HasPrefix(out.String(), "graph TD\n"))
	assert.Contains(t, out.String(), "Goodbye")
}

func TestDocs(t *testing.T) {
	b := ussdflow.New(nil)
	path := writeFlow(t, "flow.json", validFlow)

	var raw bytes.Buffer
	require.NoError(t, Docs(&raw, b, path, "Hello USSD", nil))
	assert.Contains(t, raw.String(), "#")

	var rendered bytes.Buffer
	render := func(md string) (string, error) { return "RENDERED\n" + md, nil }
	require.NoError(t, Docs(&rendered, b, path, "Hello USSD", render))
	assert.True(t, strings.HasPrefix(rendered.String(), "RENDERED\n"))
}
