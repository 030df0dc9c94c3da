// Package validator checks a flow graph for structural soundness before it
// is compiled.
package validator

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/aretw0/ussdflow/pkg/flow"
)

// Severity ranks a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	CodeDuplicateID       = "duplicate-id"
	CodeDanglingEdge      = "dangling-edge"
	CodeUnknownType       = "unknown-type"
	CodeInvalidProperties = "invalid-properties"
	CodeUnknownTarget     = "unknown-target"
	CodeInvalidPattern    = "invalid-pattern"
	CodeOrphan            = "orphan"
	CodeNoStart           = "no-start"
	CodeNoEnd             = "no-end"
	CodeNoExit            = "no-exit"
	CodeUnreachable       = "unreachable"
	CodeUnknownProvider   = "unknown-provider"
	CodeUnknownOperator   = "unknown-operator"
)

// Diagnostic is a single finding. NodeID is empty for graph-level findings.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	NodeID   string   `json:"nodeId,omitempty"`
	Message  string   `json:"message"`
}

// Result is the outcome of Validate. Errors and Warnings hold the messages
// of Diagnostics split by severity.
type Result struct {
	Valid       bool         `json:"valid"`
	Errors      []string     `json:"errors"`
	Warnings    []string     `json:"warnings"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	NodeCount   int          `json:"nodeCount"`
	EdgeCount   int          `json:"edgeCount"`
}

type config struct {
	strict bool
}

// Option configures Validate.
type Option func(*config)

// WithStrict promotes every warning to an error, so any finding makes the
// graph invalid.
func WithStrict() Option {
	return func(c *config) { c.strict = true }
}

// Validate checks g and reports every finding. It never mutates g.
func Validate(g *flow.Graph, opts ...Option) Result {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &checker{g: g, ids: make(map[string]bool, len(g.Nodes)), steps: make(map[string]flow.Step, len(g.Nodes))}
	c.checkNodes()
	c.checkEdges()
	c.checkConnectivity()
	c.checkEntryAndExit()
	c.checkExits()
	c.checkReachability()

	res := Result{
		Errors:    []string{},
		Warnings:  []string{},
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}
	for _, d := range c.diags {
		if cfg.strict {
			d.Severity = SeverityError
		}
		res.Diagnostics = append(res.Diagnostics, d)
		if d.Severity == SeverityError {
			res.Errors = append(res.Errors, d.Message)
		} else {
			res.Warnings = append(res.Warnings, d.Message)
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}

type checker struct {
	g       *flow.Graph
	ids     map[string]bool
	steps   map[string]flow.Step
	linked  map[string]bool
	orphans map[string]bool
	diags   []Diagnostic
}

func (c *checker) report(sev Severity, code, nodeID, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Severity: sev,
		Code:     code,
		NodeID:   nodeID,
		Message:  fmt.Sprintf(format, args...),
	})
}

func label(n flow.Node) string {
	if n.Data.Label != "" {
		return n.Data.Label
	}
	return n.ID
}

func (c *checker) checkNodes() {
	for _, n := range c.g.Nodes {
		if c.ids[n.ID] {
			c.report(SeverityError, CodeDuplicateID, n.ID, "Duplicate node id %q", n.ID)
			continue
		}
		c.ids[n.ID] = true

		if !n.Type.Known() {
			c.report(SeverityError, CodeUnknownType, n.ID, "Node %q has unsupported type %q", label(n), n.Type)
			continue
		}
		if errs := checkProperties(n); len(errs) > 0 {
			for _, err := range errs {
				c.report(SeverityError, CodeInvalidProperties, n.ID, "Node %q: %v", label(n), err)
			}
			continue
		}
		step, err := flow.DecodeStep(n)
		if err != nil {
			c.report(SeverityError, CodeInvalidProperties, n.ID, "Node %q: %v", label(n), err)
			continue
		}
		c.steps[n.ID] = step
		c.checkStep(n, step)
	}

	for _, n := range c.g.Nodes {
		step, ok := c.steps[n.ID]
		if !ok {
			continue
		}
		for _, t := range step.Targets() {
			if !c.ids[t] {
				c.report(SeverityError, CodeUnknownTarget, n.ID, "Node %q routes to unknown step %q", label(n), t)
			}
		}
	}
}

func (c *checker) checkStep(n flow.Node, step flow.Step) {
	switch s := step.(type) {
	case *flow.InputStep:
		if s.Validation.Pattern != "" {
			if _, err := regexp.Compile(s.Validation.Pattern); err != nil {
				c.report(SeverityError, CodeInvalidPattern, n.ID, "Node %q has an invalid input pattern: %v", label(n), err)
			}
		}
	case *flow.ValidationStep:
		for _, r := range s.Rules {
			if r.Type != "pattern" {
				continue
			}
			if _, err := regexp.Compile(r.Pattern); err != nil {
				c.report(SeverityError, CodeInvalidPattern, n.ID, "Node %q has an invalid pattern for %q: %v", label(n), r.Field, err)
			}
		}
	case *flow.PaymentStep:
		if !slices.Contains(flow.Providers, s.Provider) {
			c.report(SeverityWarning, CodeUnknownProvider, n.ID, "Node %q uses unsupported payment provider %q", label(n), s.Provider)
		}
	case *flow.ConditionalStep:
		for _, cond := range s.Conditions {
			if !slices.Contains(flow.Operators, cond.Operator) {
				c.report(SeverityWarning, CodeUnknownOperator, n.ID, "Node %q uses unknown operator %q", label(n), cond.Operator)
			}
		}
	}
}

func (c *checker) checkEdges() {
	for _, e := range c.g.Edges {
		if !c.ids[e.Source] {
			c.report(SeverityError, CodeDanglingEdge, "", "Edge %q references missing source node %q", e.ID, e.Source)
		}
		if !c.ids[e.Target] {
			c.report(SeverityError, CodeDanglingEdge, "", "Edge %q references missing target node %q", e.ID, e.Target)
		}
	}
}

// checkConnectivity flags nodes that no edge touches. End screens are exempt.
func (c *checker) checkConnectivity() {
	c.linked = make(map[string]bool, len(c.g.Nodes))
	for _, e := range c.g.Edges {
		c.linked[e.Source] = true
		c.linked[e.Target] = true
	}
	c.orphans = make(map[string]bool)
	for _, n := range c.g.Nodes {
		if c.linked[n.ID] || n.Type.Canonical() == flow.TypeEndScreen {
			continue
		}
		c.orphans[n.ID] = true
		c.report(SeverityWarning, CodeOrphan, n.ID, "Node %q is not connected to the flow", label(n))
	}
}

func (c *checker) checkEntryAndExit() {
	if len(c.g.EntryPoints()) == 0 {
		c.report(SeverityError, CodeNoStart, "", "Flow must have a starting menu screen")
	}
	hasEnd := slices.ContainsFunc(c.g.Nodes, func(n flow.Node) bool {
		return n.Type.Canonical() == flow.TypeEndScreen
	})
	if !hasEnd {
		c.report(SeverityError, CodeNoEnd, "", "Flow must have at least one end screen")
	}
}

// checkExits flags connected non-terminal nodes with neither an outgoing
// edge nor a next-step property.
func (c *checker) checkExits() {
	out := make(map[string]bool, len(c.g.Nodes))
	for _, e := range c.g.Edges {
		out[e.Source] = true
	}
	for _, n := range c.g.Nodes {
		if out[n.ID] || c.orphans[n.ID] || n.Type.Canonical() == flow.TypeEndScreen {
			continue
		}
		step, ok := c.steps[n.ID]
		if !ok || len(step.Targets()) > 0 {
			continue
		}
		c.report(SeverityWarning, CodeNoExit, n.ID, "Node %q has no next step", label(n))
	}
}

// checkReachability flags connected nodes that no entry point leads to.
// Standalone end screens are left alone.
func (c *checker) checkReachability() {
	entries := c.g.EntryPoints()
	if len(entries) == 0 {
		return
	}
	roots := make([]string, len(entries))
	for i, n := range entries {
		roots[i] = n.ID
	}
	reached := make(map[string]bool, len(c.g.Nodes))
	for _, id := range c.g.Walk(c.targets, roots...) {
		reached[id] = true
	}
	for _, n := range c.g.Nodes {
		if reached[n.ID] || !c.linked[n.ID] {
			continue
		}
		c.report(SeverityWarning, CodeUnreachable, n.ID, "Node %q is unreachable from the starting menu screen", label(n))
	}
}

func (c *checker) targets(id string) []string {
	if s, ok := c.steps[id]; ok {
		return s.Targets()
	}
	return nil
}
