// Package export packages a generated program for download or for writing
// to disk.
package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/aretw0/ussdflow/internal/codegen"
	"github.com/aretw0/ussdflow/pkg/compiler"
)

// ErrUnsafePath is returned when a file path would escape the target
// directory.
var ErrUnsafePath = errors.New("unsafe file path")

//go:embed files
var static embed.FS

// staticFiles maps bundle paths to their embedded source. None of them
// depend on the graph.
var staticFiles = map[string]string{
	".env.example":        "files/env.example",
	".dockerignore":       "files/dockerignore",
	"Dockerfile":          "files/Dockerfile",
	"healthcheck/main.go": "files/healthcheck.go.txt",
}

// FlowFile is the bundle path of the flow graph the program was built from.
const FlowFile = "flow-data.json"

// Bundle returns the program's files plus the deployment files and, when
// flowJSON is non-empty, an indented copy of the source graph.
func Bundle(p *compiler.Program, flowJSON []byte) (map[string]string, error) {
	return BundleFiles(p.Files(), flowJSON)
}

// BundleFiles is Bundle for files that were generated earlier, such as the
// code stored with a project. generated is not modified.
func BundleFiles(generated map[string]string, flowJSON []byte) (map[string]string, error) {
	files := maps.Clone(generated)
	if files == nil {
		files = make(map[string]string, len(staticFiles)+1)
	}
	for name, src := range staticFiles {
		data, err := static.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		files[name] = string(data)
	}

	if len(bytes.TrimSpace(flowJSON)) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, flowJSON, "", "  "); err != nil {
			return nil, fmt.Errorf("indent flow: %w", err)
		}
		buf.WriteByte('\n')
		files[FlowFile] = buf.String()
	}
	return files, nil
}

// ArchiveName returns the download file name for a project.
func ArchiveName(projectName string) string {
	slug := codegen.Slug(projectName)
	if slug == "" {
		slug = codegen.DefaultSlug
	}
	return slug + ".zip"
}

// WriteDir writes files below dir, creating directories as needed. Paths
// must be local; an absolute path or one that climbs out of dir is refused
// before anything is written.
func WriteDir(dir string, files map[string]string) error {
	names := slices.Sorted(maps.Keys(files))
	for _, name := range names {
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			return fmt.Errorf("%w: %q", ErrUnsafePath, name)
		}
	}
	for _, name := range names {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(target, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
