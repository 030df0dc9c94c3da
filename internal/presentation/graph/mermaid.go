// Package graph renders flow graphs as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/ussdflow/pkg/flow"
)

// Overlay contains state to highlight on the graph, such as the steps a
// session has gone through.
type Overlay struct {
	Visited []string
	Current string
}

// Mermaid produces a Mermaid flowchart of g. Shapes follow the node type:
//   - Start: ((Circle))
//   - Input and payment: [/Parallelogram/]
//   - API calls: [[Subroutine]]
//   - Conditional and validation: {Rhombus}
//   - End screens: ([Stadium])
//   - Menus: [Rectangle]
//
// Edges leaving through a named handle carry it as their label, and error
// paths are dotted.
func Mermaid(g *flow.Graph, overlay *Overlay) string {
	ids := newIDs()
	start, _ := g.Start()

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range g.Nodes {
		opener, closer := shape(n.Type.Canonical())
		if n.ID == start.ID {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", ids.get(n.ID), opener, Label(n), closer)
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if e.SourceHandle == "error" {
			arrow = "-.->"
		}
		if e.SourceHandle != "" {
			arrow += "|\"" + escape(e.SourceHandle) + "\"|"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", ids.get(e.Source), arrow, ids.get(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Visited {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", ids.get(id))
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", ids.get(overlay.Current))
		}
	}

	return sb.String()
}

// Label is the text shown for a node: its label, else its id.
func Label(n flow.Node) string {
	text := n.Data.Label
	if strings.TrimSpace(text) == "" {
		text = n.ID
	}
	return escape(text)
}

func shape(t flow.NodeType) (string, string) {
	switch t {
	case flow.TypeInputField, flow.TypePaymentOption:
		return "[/", "/]"
	case flow.TypeAPIIntegration:
		return "[[", "]]"
	case flow.TypeConditionalBranch, flow.TypeValidation:
		return "{", "}"
	case flow.TypeEndScreen:
		return "([", "])"
	default:
		return "[", "]"
	}
}

// escape makes text safe inside a quoted Mermaid label.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "`", "#96;")
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return s
}

// ids maps node ids onto unique Mermaid identifiers. Mermaid reserves words
// such as "end", so every identifier is prefixed.
type ids struct {
	byID map[string]string
	used map[string]bool
}

func newIDs() *ids {
	return &ids{byID: make(map[string]string), used: make(map[string]bool)}
}

func (m *ids) get(id string) string {
	if s, ok := m.byID[id]; ok {
		return s
	}
	base := "n_" + sanitizeMermaidID(id)
	s := base
	for i := 2; m.used[s]; i++ {
		s = fmt.Sprintf("%s_%d", base, i)
	}
	m.used[s] = true
	m.byID[id] = s
	return s
}

func sanitizeMermaidID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
