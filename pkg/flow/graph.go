package flow

// Position is the editor canvas coordinate of a node. It has no effect on
// compilation.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NodeData carries the human-facing fields and the type-specific properties.
type NodeData struct {
	Label       string         `json:"label" yaml:"label"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Node is a step in the USSD flow.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Type     NodeType `json:"type" yaml:"type"`
	Position Position `json:"position" yaml:"position"`
	Data     NodeData `json:"data" yaml:"data"`
}

// Edge is a directed transition between two nodes. SourceHandle
// disambiguates the exits of multi-exit nodes ("true"/"false", "option-2",
// "error").
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// Viewport is the persisted editor camera.
type Viewport struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
}

// Graph is a complete flow as authored in the editor.
type Graph struct {
	Nodes    []Node    `json:"nodes" yaml:"nodes"`
	Edges    []Edge    `json:"edges" yaml:"edges"`
	Viewport *Viewport `json:"viewport,omitempty" yaml:"viewport,omitempty"`
}

// Node returns the first node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Outgoing returns the edges leaving id, in declaration order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// InDegree counts the edges entering each node id.
func (g *Graph) InDegree() map[string]int {
	in := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		in[e.Target]++
	}
	return in
}

// EntryPoints returns the menu screens that no edge enters, in declaration
// order. A sound graph has at least one.
func (g *Graph) EntryPoints() []Node {
	in := g.InDegree()
	var entries []Node
	for _, n := range g.Nodes {
		if n.Type.Canonical() == TypeMenuScreen && in[n.ID] == 0 {
			entries = append(entries, n)
		}
	}
	return entries
}

// Start picks the node a fresh session begins at: the first entry point,
// else the first menu screen, else the first node.
func (g *Graph) Start() (Node, bool) {
	if entries := g.EntryPoints(); len(entries) > 0 {
		return entries[0], true
	}
	for _, n := range g.Nodes {
		if n.Type.Canonical() == TypeMenuScreen {
			return n, true
		}
	}
	if len(g.Nodes) > 0 {
		return g.Nodes[0], true
	}
	return Node{}, false
}

// Walk visits nodes breadth-first from roots and returns their ids in visit
// order. Edges are followed in declaration order, then the ids returned by
// extra (which may be nil). Ids that name no node are not visited.
func (g *Graph) Walk(extra func(id string) []string, roots ...string) []string {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	seen := make(map[string]bool, len(g.Nodes))
	var order []string
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if known[r] && !seen[r] {
			seen[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		next := adj[id]
		if extra != nil {
			next = append(append([]string(nil), next...), extra(id)...)
		}
		for _, t := range next {
			if known[t] && !seen[t] {
				seen[t] = true
				queue = append(queue, t)
			}
		}
	}
	return order
}
