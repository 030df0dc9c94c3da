package domain

import (
	"encoding/json"
	"maps"
	"strings"
	"time"

	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/google/uuid"
)

// Project is a named USSD flow and the program generated from it.
type Project struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Flow        *flow.Graph       `json:"flowData,omitempty"`
	Generated   map[string]string `json:"generatedCode,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`

	// Sealed carries the encrypted Flow and Generated when a store encrypts
	// at rest. Plain projects leave it empty.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewProject creates a project with a fresh UUIDv4 id.
func NewProject(name, description string, g *flow.Graph, now time.Time) *Project {
	now = now.UTC()
	return &Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Flow:        g,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Flow = cloneGraph(p.Flow)
	c.Generated = maps.Clone(p.Generated)
	if p.Sealed != nil {
		c.Sealed = append([]byte(nil), p.Sealed...)
	}
	return &c
}

// cloneGraph copies g through JSON, which also detaches the property maps.
func cloneGraph(g *flow.Graph) *flow.Graph {
	if g == nil {
		return nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return g
	}
	var c flow.Graph
	if err := json.Unmarshal(data, &c); err != nil {
		return g
	}
	return &c
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Flow        *flow.Graph       `json:"flowData,omitempty"`
	Generated   map[string]string `json:"generatedCode,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Flow == nil && p.Generated == nil
}

// Apply writes the patch onto proj and returns the flow changes it caused.
// A changed flow discards the previously generated code unless the patch
// supplies new code.
func (p Patch) Apply(proj *Project, now time.Time) *FlowDiff {
	if p.Name != nil {
		proj.Name = *p.Name
	}
	if p.Description != nil {
		proj.Description = *p.Description
	}
	var diff *FlowDiff
	if p.Flow != nil {
		diff = Diff(proj.Flow, p.Flow)
		proj.Flow = cloneGraph(p.Flow)
		if diff != nil {
			proj.Generated = nil
		}
	}
	if p.Generated != nil {
		proj.Generated = maps.Clone(p.Generated)
	}
	proj.UpdatedAt = now.UTC()
	return diff
}

// CompareCreated orders projects by creation time, then id.
func CompareCreated(a, b *Project) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
