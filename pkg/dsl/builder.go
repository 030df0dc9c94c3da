package dsl

import (
	"fmt"

	"github.com/aretw0/ussdflow/pkg/flow"
)

// Builder manages the graph construction. Nodes and edges keep the order in
// which they were added.
type Builder struct {
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
	edges []flow.Edge
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string, typ flow.NodeType, label string) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: flow.Node{
			ID:   id,
			Type: typ,
			Data: flow.NodeData{
				Label:      label,
				Properties: map[string]any{},
			},
		},
		builder: b,
	}
	b.nodes = append(b.nodes, nb)
	b.index[id] = nb
	return nb
}

// Menu adds a menu-screen node.
func (b *Builder) Menu(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypeMenuScreen, label)
}

// Input adds an input-field node.
func (b *Builder) Input(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypeInputField, label)
}

// Payment adds a payment-option node.
func (b *Builder) Payment(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypePaymentOption, label)
}

// Conditional adds a conditional-branch node.
func (b *Builder) Conditional(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypeConditionalBranch, label)
}

// API adds an api-integration node.
func (b *Builder) API(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypeAPIIntegration, label)
}

// Validation adds a validation node.
func (b *Builder) Validation(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypeValidation, label)
}

// End adds an end-screen node.
func (b *Builder) End(id, label string) *NodeBuilder {
	return b.Add(id, flow.TypeEndScreen, label)
}

// Edge connects two nodes without a handle.
func (b *Builder) Edge(source, target string) *Builder {
	return b.HandleEdge(source, "", target)
}

// HandleEdge connects two nodes through a named source handle.
func (b *Builder) HandleEdge(source, handle, target string) *Builder {
	b.edges = append(b.edges, flow.Edge{
		ID:           fmt.Sprintf("e%d-%s-%s", len(b.edges)+1, source, target),
		Source:       source,
		Target:       target,
		SourceHandle: handle,
	})
	return b
}

// Graph returns the assembled graph.
func (b *Builder) Graph() *flow.Graph {
	g := &flow.Graph{
		Nodes: make([]flow.Node, 0, len(b.nodes)),
		Edges: append([]flow.Edge{}, b.edges...),
	}
	for i, nb := range b.nodes {
		n := nb.Build()
		n.Position = flow.Position{X: float64(i%4) * 250, Y: float64(i/4) * 150}
		g.Nodes = append(g.Nodes, n)
	}
	return g
}
