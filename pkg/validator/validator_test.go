package validator

import (
	"testing"

	"github.com/aretw0/ussdflow/pkg/dsl"
	"github.com/aretw0/ussdflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func soundFlow() *dsl.Builder {
	b := dsl.New()
	b.Menu("main", "Main Menu").Title("Welcome").Option("Pay", "amount").Go("amount")
	b.Input("amount", "Amount").Variable("amount").Required().Numeric().Go("bye")
	b.End("bye", "Goodbye").Summary()
	return b
}

func codes(r Result) []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func TestValidate_SoundFlow(t *testing.T) {
	res := Validate(soundFlow().Graph())

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 3, res.NodeCount)
	assert.Equal(t, 2, res.EdgeCount)
}

func TestValidate_MissingStart(t *testing.T) {
	b := dsl.New()
	b.Menu("main", "Main Menu").Option("Pay", "amount").Go("amount")
	b.Input("amount", "Amount").Go("main").Go("bye")
	b.End("bye", "Bye")

	res := Validate(b.Graph())

	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Flow must have a starting menu screen")
}

func TestValidate_MissingEnd(t *testing.T) {
	b := dsl.New()
	b.Menu("main", "Main Menu").Option("Pay", "amount").Go("amount")
	b.Input("amount", "Amount")

	res := Validate(b.Graph())

	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, "Flow must have at least one end screen")
	assert.Contains(t, res.Warnings, `Node "Amount" has no next step`)
}

func TestValidate_OrphanIsWarningUnlessStrict(t *testing.T) {
	b := soundFlow()
	b.Input("lost", "Lost Input")
	b.End("spare", "Spare End")
	g := b.Graph()

	res := Validate(g)
	assert.True(t, res.Valid)
	assert.Equal(t, []string{`Node "Lost Input" is not connected to the flow`}, res.Warnings)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, "lost", res.Diagnostics[0].NodeID)
	assert.Equal(t, SeverityWarning, res.Diagnostics[0].Severity)

	strict := Validate(g, WithStrict())
	assert.False(t, strict.Valid)
	assert.Equal(t, []string{`Node "Lost Input" is not connected to the flow`}, strict.Errors)
	assert.Empty(t, strict.Warnings)
}

func TestValidate_StructuralErrors(t *testing.T) {
	g := soundFlow().Graph()
	g.Nodes = append(g.Nodes,
		flow.Node{ID: "bye", Type: flow.TypeEndScreen, Data: flow.NodeData{Label: "Copy"}},
		flow.Node{ID: "odd", Type: flow.NodeType("carousel"), Data: flow.NodeData{Label: "Odd"}},
	)
	g.Edges = append(g.Edges,
		flow.Edge{ID: "ghost", Source: "main", Target: "nowhere"},
		flow.Edge{ID: "odd-edge", Source: "odd", Target: "bye"},
	)

	res := Validate(g)

	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, `Duplicate node id "bye"`)
	assert.Contains(t, res.Errors, `Node "Odd" has unsupported type "carousel"`)
	assert.Contains(t, res.Errors, `Edge "ghost" references missing target node "nowhere"`)
	assert.Contains(t, codes(res), CodeDanglingEdge)
}

func TestValidate_PropertyProblems(t *testing.T) {
	b := soundFlow()
	b.Menu("main", "Main Menu").Set("options", []any{map[string]any{"nextStep": "amount"}})
	g := b.Graph()

	res := Validate(g)

	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `Node "Main Menu"`)
	assert.Contains(t, res.Errors[0], "options.0.text")
	assert.Equal(t, []string{CodeInvalidProperties}, codes(res))
}

func TestValidate_StepChecks(t *testing.T) {
	b := dsl.New()
	b.Menu("main", "Main").Option("Pin", "pin").Option("Pay", "pay").Option("Ghost", "ghost").
		Go("pin").Go("pay")
	b.Input("pin", "PIN").Pattern("([0-9]", "bad").Go("check")
	b.Conditional("check", "Check").When("pin", "between", 1, "bye").Otherwise("bye", "")
	b.Payment("pay", "Pay").Provider("tkash").Amount(10).Go("bye")
	b.End("bye", "Bye")

	res := Validate(b.Graph())

	assert.False(t, res.Valid)
	assert.Contains(t, res.Errors, `Node "Main" routes to unknown step "ghost"`)
	assert.Contains(t, codes(res), CodeInvalidPattern)
	assert.Contains(t, res.Warnings, `Node "Pay" uses unsupported payment provider "tkash"`)
	assert.Contains(t, res.Warnings, `Node "Check" uses unknown operator "between"`)
}

func TestValidate_Unreachable(t *testing.T) {
	b := soundFlow()
	b.Input("island", "Island").Go("bye")

	res := Validate(b.Graph())

	assert.True(t, res.Valid)
	assert.Equal(t, []string{`Node "Island" is unreachable from the starting menu screen`}, res.Warnings)
}

func TestValidate_PropertyTargetsCountAsExits(t *testing.T) {
	b := soundFlow()
	b.Input("amount", "Amount").Next("bye")
	g := b.Graph()
	g.Edges = g.Edges[:1]

	res := Validate(g)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Warnings)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	g := soundFlow().Graph()
	before := len(g.Nodes[0].Data.Properties)
	Validate(g, WithStrict())
	assert.Len(t, g.Nodes[0].Data.Properties, before)
}
