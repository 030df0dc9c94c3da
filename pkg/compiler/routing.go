package compiler

import (
	"slices"

	"github.com/aretw0/ussdflow/pkg/flow"
)

// routes resolves the step a node hands control to. A next-step property
// always wins; edges are consulted only when it is empty.
type routes struct {
	out map[string][]flow.Edge
}

func newRoutes(g *flow.Graph) *routes {
	r := &routes{out: make(map[string][]flow.Edge, len(g.Nodes))}
	for _, e := range g.Edges {
		r.out[e.Source] = append(r.out[e.Source], e)
	}
	return r
}

// via returns the target of the first edge leaving id through one of the
// given handles.
func (r *routes) via(id string, handles ...string) string {
	for _, e := range r.out[id] {
		if slices.Contains(handles, e.SourceHandle) {
			return e.Target
		}
	}
	return ""
}

// first returns the target of the first edge leaving id whose handle is not
// excluded.
func (r *routes) first(id string, exclude ...string) string {
	for _, e := range r.out[id] {
		if e.SourceHandle == "" || !slices.Contains(exclude, e.SourceHandle) {
			return e.Target
		}
	}
	return ""
}

// nth returns the target of the i-th edge without a handle leaving id.
func (r *routes) nth(id string, i int) string {
	for _, e := range r.out[id] {
		if e.SourceHandle != "" {
			continue
		}
		if i == 0 {
			return e.Target
		}
		i--
	}
	return ""
}

func pick(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
