package compiler

import (
	"github.com/aretw0/ussdflow/internal/presentation/graph"
	"github.com/aretw0/ussdflow/pkg/flow"
)

type readmeStep struct {
	Index       int
	Label       string
	Type        flow.NodeType
	Description string
	Unreachable bool
}

type readmeDependency struct {
	Path    string
	Range   string
	Purpose string
}

type readme struct {
	Name         string
	Start        string
	Steps        []readmeStep
	Diagram      string
	Dependencies []readmeDependency
}

// buildReadme lists the steps breadth-first from the start node, followed by
// the unreachable ones in declaration order.
func buildReadme(g *flow.Graph, projectName string) (readme, error) {
	start, _ := g.Start()
	targets := func(id string) []string {
		n, ok := g.Node(id)
		if !ok {
			return nil
		}
		s, err := flow.DecodeStep(n)
		if err != nil {
			return nil
		}
		return s.Targets()
	}

	order := g.Walk(targets, start.ID)
	reached := make(map[string]bool, len(order))
	for _, id := range order {
		reached[id] = true
	}

	r := readme{
		Name:    pick(projectName, "USSD service"),
		Start:   pick(start.Data.Label, start.ID),
		Diagram: graph.Mermaid(g, nil),
	}
	add := func(n flow.Node, unreachable bool) {
		r.Steps = append(r.Steps, readmeStep{
			Index:       len(r.Steps) + 1,
			Label:       pick(n.Data.Label, n.ID),
			Type:        n.Type,
			Description: n.Data.Description,
			Unreachable: unreachable,
		})
	}
	for _, id := range order {
		n, _ := g.Node(id)
		add(n, false)
	}
	for _, n := range g.Nodes {
		if !reached[n.ID] {
			add(n, true)
		}
	}

	for _, d := range RuntimeDependencies {
		if d.Indirect {
			continue
		}
		rng, err := d.Range()
		if err != nil {
			return readme{}, err
		}
		r.Dependencies = append(r.Dependencies, readmeDependency{Path: d.Path, Range: rng, Purpose: d.Purpose})
	}
	return r, nil
}
