package ussdrt

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed app.go call.go reply.go runtime.go session.go steps.go
var sources embed.FS

// SourceFiles lists the runtime files copied into every generated program.
var SourceFiles = []string{"app.go", "call.go", "reply.go", "runtime.go", "session.go", "steps.go"}

// Source returns the runtime file name with its package clause rewritten to
// pkg.
func Source(name, pkg string) (string, error) {
	data, err := sources.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("runtime source %s: %w", name, err)
	}
	src := string(data)
	const clause = "package ussdrt\n"
	if !strings.HasPrefix(src, clause) {
		return "", fmt.Errorf("runtime source %s: unexpected package clause", name)
	}
	return "package " + pkg + "\n" + strings.TrimPrefix(src, clause), nil
}
