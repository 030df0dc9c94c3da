package dsl

import "github.com/aretw0/ussdflow/pkg/flow"

// NodeBuilder provides a fluent API for configuring a node's properties.
type NodeBuilder struct {
	node    flow.Node
	builder *Builder
}

// Set writes a raw property.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	n.node.Data.Properties[key] = value
	return n
}

// Describe sets the node description.
func (n *NodeBuilder) Describe(text string) *NodeBuilder {
	n.node.Data.Description = text
	return n
}

// Title sets a menu title.
func (n *NodeBuilder) Title(title string) *NodeBuilder {
	return n.Set("title", title)
}

// Option appends a menu option routing to next. An empty next leaves the
// route to the edges.
func (n *NodeBuilder) Option(text, next string) *NodeBuilder {
	return n.OptionMessage(text, next, "")
}

// OptionMessage appends a menu option with the message shown on selection.
func (n *NodeBuilder) OptionMessage(text, next, message string) *NodeBuilder {
	opts, _ := n.node.Data.Properties["options"].([]any)
	n.node.Data.Properties["options"] = append(opts, map[string]any{
		"text":     text,
		"nextStep": next,
		"message":  message,
	})
	return n
}

// Variable sets the session variable an input is stored under.
func (n *NodeBuilder) Variable(name string) *NodeBuilder {
	return n.Set("variableName", name)
}

func (n *NodeBuilder) validation() map[string]any {
	v, ok := n.node.Data.Properties["validation"].(map[string]any)
	if !ok {
		v = map[string]any{}
		n.node.Data.Properties["validation"] = v
	}
	return v
}

// Required rejects empty input.
func (n *NodeBuilder) Required() *NodeBuilder {
	n.validation()["required"] = true
	return n
}

// Numeric rejects input that is not a number.
func (n *NodeBuilder) Numeric() *NodeBuilder {
	n.validation()["type"] = "numeric"
	return n
}

// Min sets the lower numeric bound.
func (n *NodeBuilder) Min(v float64) *NodeBuilder {
	n.validation()["min"] = v
	return n
}

// Max sets the upper numeric bound.
func (n *NodeBuilder) Max(v float64) *NodeBuilder {
	n.validation()["max"] = v
	return n
}

// Pattern sets the regular expression input must match.
func (n *NodeBuilder) Pattern(expr, message string) *NodeBuilder {
	v := n.validation()
	v["pattern"] = expr
	v["errorMessage"] = message
	return n
}

// Success sets the message emitted when the step succeeds.
func (n *NodeBuilder) Success(message string) *NodeBuilder {
	return n.Set("successMessage", message)
}

// Failure sets the message emitted when the step fails.
func (n *NodeBuilder) Failure(message string) *NodeBuilder {
	return n.Set("errorMessage", message)
}

// Provider sets the payment provider.
func (n *NodeBuilder) Provider(name string) *NodeBuilder {
	return n.Set("provider", name)
}

// Amount sets a static payment amount.
func (n *NodeBuilder) Amount(v float64) *NodeBuilder {
	return n.Set("amount", v)
}

// When appends a condition.
func (n *NodeBuilder) When(field, operator string, value any, next string) *NodeBuilder {
	conds, _ := n.node.Data.Properties["conditions"].([]any)
	n.node.Data.Properties["conditions"] = append(conds, map[string]any{
		"field":    field,
		"operator": operator,
		"value":    value,
		"nextStep": next,
	})
	return n
}

// Otherwise sets the default route of a conditional.
func (n *NodeBuilder) Otherwise(next, message string) *NodeBuilder {
	n.Set("defaultNextStep", next)
	if message != "" {
		n.Set("defaultMessage", message)
	}
	return n
}

// Call sets the method and URL of an API step.
func (n *NodeBuilder) Call(method, url string) *NodeBuilder {
	n.Set("method", method)
	return n.Set("url", url)
}

// Header appends a request header in the editor's key/value form.
func (n *NodeBuilder) Header(key, value string) *NodeBuilder {
	hs, _ := n.node.Data.Properties["headers"].([]any)
	n.node.Data.Properties["headers"] = append(hs, map[string]any{"key": key, "value": value})
	return n
}

// Result sets the variable an API response is stored under.
func (n *NodeBuilder) Result(name string) *NodeBuilder {
	return n.Set("resultVariable", name)
}

// OnError sets the step an API failure routes to.
func (n *NodeBuilder) OnError(next string) *NodeBuilder {
	return n.Set("errorNextStep", next)
}

// Message sets an end-screen message.
func (n *NodeBuilder) Message(text string) *NodeBuilder {
	return n.Set("message", text)
}

// Summary makes an end screen list the captured values.
func (n *NodeBuilder) Summary() *NodeBuilder {
	return n.Set("showSummary", true)
}

// Next sets the nextStep property.
func (n *NodeBuilder) Next(target string) *NodeBuilder {
	return n.Set("nextStep", target)
}

// Go adds an unconditional edge to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.Edge(n.node.ID, target)
	return n
}

// GoVia adds an edge leaving through the given source handle.
func (n *NodeBuilder) GoVia(handle, target string) *NodeBuilder {
	n.builder.HandleEdge(n.node.ID, handle, target)
	return n
}

// Build returns the underlying flow.Node.
func (n *NodeBuilder) Build() flow.Node {
	return n.node
}
