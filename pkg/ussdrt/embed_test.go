package ussdrt

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_RewritesPackage(t *testing.T) {
	for _, name := range SourceFiles {
		t.Run(name, func(t *testing.T) {
			src, err := Source(name, "main")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(src, "package main\n"))

			f, err := parser.ParseFile(token.NewFileSet(), name, src, parser.ImportsOnly)
			require.NoError(t, err)
			for _, imp := range f.Imports {
				path := strings.Trim(imp.Path.Value, `"`)
				if strings.Contains(path, ".") {
					assert.Contains(t, []string{"github.com/go-chi/chi/v5", "github.com/redis/go-redis/v9"}, path)
				}
			}
		})
	}
}

func TestSource_Unknown(t *testing.T) {
	_, err := Source("missing.go", "main")
	assert.Error(t, err)
}
