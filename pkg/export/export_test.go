package export

import (
	"bytes"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/ussdflow/pkg/compiler"
	"github.com/aretw0/ussdflow/pkg/dsl"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func program(t *testing.T) *compiler.Program {
	t.Helper()
	b := dsl.New()
	b.Menu("main", "Main").Option("Leave", "bye").Go("bye")
	b.End("bye", "Bye")
	p, err := compiler.Generate(b.Graph(), "Demo App")
	require.NoError(t, err)
	return p
}

func TestBundle(t *testing.T) {
	p := program(t)
	files, err := Bundle(p, []byte(`{"nodes":[],"edges":[]}`))
	require.NoError(t, err)

	assert.Len(t, files, p.Len()+5)
	assert.Contains(t, files[".env.example"], "MPESA_PASSKEY=")
	assert.Regexp(t, `(?m)^REDIS_URL=$`, files[".env.example"], "the quickstart keeps sessions in memory")
	assert.Contains(t, files["Dockerfile"], "HEALTHCHECK")
	assert.Equal(t, "{\n  \"nodes\": [],\n  \"edges\": []\n}\n", files[FlowFile])

	hc, err := parser.ParseFile(token.NewFileSet(), "main.go", files["healthcheck/main.go"], 0)
	require.NoError(t, err)
	assert.Equal(t, "main", hc.Name.Name)

	// Bundling never writes back into the program.
	_, ok := p.File(".env.example")
	assert.False(t, ok)
}

func TestBundle_WithoutFlow(t *testing.T) {
	files, err := Bundle(program(t), nil)
	require.NoError(t, err)
	assert.NotContains(t, files, FlowFile)

	_, err = Bundle(program(t), []byte("{broken"))
	assert.Error(t, err)
}

func TestBundleFiles(t *testing.T) {
	stored := map[string]string{"main.go": "package main\n"}
	files, err := BundleFiles(stored, nil)
	require.NoError(t, err)
	assert.Len(t, files, 5)
	assert.Len(t, stored, 1)

	files, err = BundleFiles(nil, nil)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestArchiveName(t *testing.T) {
	assert.Equal(t, "my-ussd-app.zip", ArchiveName("My USSD App"))
	assert.Equal(t, "ussd-app.zip", ArchiveName("   "))
}

func TestWriteZip(t *testing.T) {
	files := map[string]string{
		"main.go":             "package main\n",
		"README.md":           "# Demo\n",
		"healthcheck/main.go": "package main\n",
	}

	first, sum1, err := Archive(files)
	require.NoError(t, err)
	second, sum2, err := Archive(files)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, sum1, sum2)
	assert.Len(t, sum1, 64)

	zr, err := zip.NewReader(bytes.NewReader(first), int64(len(first)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method)
		assert.True(t, f.Modified.Equal(epoch), f.Name)

		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, files[f.Name], string(data))
	}
	assert.Equal(t, []string{"README.md", "healthcheck/main.go", "main.go"}, names)
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"main.go":             "package main\n",
		"healthcheck/main.go": "package main\n",
	}
	require.NoError(t, WriteDir(dir, files))

	data, err := os.ReadFile(filepath.Join(dir, "healthcheck", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))

	info, err := os.Stat(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWriteDir_RefusesEscapes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"../evil.go", "/etc/passwd", ""} {
		err := WriteDir(dir, map[string]string{"ok.go": "x", name: "x"})
		assert.ErrorIs(t, err, ErrUnsafePath, name)
	}
	_, err := os.Stat(filepath.Join(dir, "ok.go"))
	assert.True(t, os.IsNotExist(err))
}
