package compiler

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/mod/modfile"
)

// GoVersion is the language version generated modules declare.
const GoVersion = "1.22"

// Dependency is a module the generated program requires.
type Dependency struct {
	Path     string
	Version  string
	Purpose  string
	Indirect bool
}

// RuntimeDependencies are pinned to the versions the step runtime is built
// and tested against.
var RuntimeDependencies = []Dependency{
	{Path: "github.com/go-chi/chi/v5", Version: "v5.2.3", Purpose: "HTTP routing"},
	{Path: "github.com/joho/godotenv", Version: "v1.5.1", Purpose: "loading `.env` files"},
	{Path: "github.com/redis/go-redis/v9", Version: "v9.17.2", Purpose: "Redis session store"},
	{Path: "github.com/cespare/xxhash/v2", Version: "v2.3.0", Indirect: true},
	{Path: "github.com/dgryski/go-rendezvous", Version: "v0.0.0-20200823014737-9f7001d12a5f", Indirect: true},
}

// Range returns the caret range of versions compatible with d.
func (d Dependency) Range() (string, error) {
	v, err := semver.NewVersion(d.Version)
	if err != nil {
		return "", fmt.Errorf("dependency %s: %w", d.Path, err)
	}
	r := fmt.Sprintf("^%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	c, err := semver.NewConstraint(r)
	if err != nil {
		return "", fmt.Errorf("dependency %s: %w", d.Path, err)
	}
	if !c.Check(v) {
		return "", fmt.Errorf("dependency %s: %s does not satisfy %s", d.Path, d.Version, r)
	}
	return r, nil
}

func renderGoMod(modulePath string) (string, error) {
	f := new(modfile.File)
	if err := f.AddModuleStmt(modulePath); err != nil {
		return "", fmt.Errorf("go.mod: %w", err)
	}
	if err := f.AddGoStmt(GoVersion); err != nil {
		return "", fmt.Errorf("go.mod: %w", err)
	}
	for _, d := range RuntimeDependencies {
		f.AddNewRequire(d.Path, d.Version, d.Indirect)
	}
	f.Cleanup()
	data, err := f.Format()
	if err != nil {
		return "", fmt.Errorf("go.mod: %w", err)
	}
	return string(data), nil
}
