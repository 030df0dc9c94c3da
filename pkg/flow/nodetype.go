package flow

// NodeType is the discriminator of a node.
type NodeType string

// Canonical node types.
const (
	TypeMenuScreen        NodeType = "menu-screen"
	TypeInputField        NodeType = "input-field"
	TypePaymentOption     NodeType = "payment-option"
	TypeConditionalBranch NodeType = "conditional-branch"
	TypeAPIIntegration    NodeType = "api-integration"
	TypeValidation        NodeType = "validation"
	TypeEndScreen         NodeType = "end-screen"
)

// Aliases accepted on input and mapped onto a canonical handling.
const (
	TypeAPICall       NodeType = "api-call"
	TypeDatabaseQuery NodeType = "database-query"
	TypeSwitch        NodeType = "switch"
)

var canonical = map[NodeType]NodeType{
	TypeMenuScreen:        TypeMenuScreen,
	TypeInputField:        TypeInputField,
	TypePaymentOption:     TypePaymentOption,
	TypeConditionalBranch: TypeConditionalBranch,
	TypeAPIIntegration:    TypeAPIIntegration,
	TypeValidation:        TypeValidation,
	TypeEndScreen:         TypeEndScreen,
	TypeAPICall:           TypeAPIIntegration,
	TypeDatabaseQuery:     TypeAPIIntegration,
	TypeSwitch:            TypeConditionalBranch,
}

// Canonical maps aliases onto the type whose handling they share. Unknown
// types map to themselves.
func (t NodeType) Canonical() NodeType {
	if c, ok := canonical[t]; ok {
		return c
	}
	return t
}

// Known reports whether t is a canonical type or an accepted alias.
func (t NodeType) Known() bool {
	_, ok := canonical[t]
	return ok
}

// KnownTypes lists every accepted type in a stable order.
func KnownTypes() []NodeType {
	return []NodeType{
		TypeMenuScreen, TypeInputField, TypePaymentOption, TypeConditionalBranch,
		TypeAPIIntegration, TypeValidation, TypeEndScreen,
		TypeAPICall, TypeDatabaseQuery, TypeSwitch,
	}
}

// TypeInfo describes a canonical node type for catalogs and tooling.
type TypeInfo struct {
	Type        NodeType   `json:"type"`
	Description string     `json:"description"`
	Aliases     []NodeType `json:"aliases,omitempty"`
}

var descriptions = map[NodeType]string{
	TypeMenuScreen:        "Numbered list of options; the reply selects the next step.",
	TypeInputField:        "Captures one value into a variable after optional validation.",
	TypePaymentOption:     "Initiates a mobile-money payment and ends the session with its reference.",
	TypeConditionalBranch: "Routes on the first matching condition over captured values.",
	TypeAPIIntegration:    "Calls an HTTP endpoint and stores the decoded response.",
	TypeValidation:        "Checks captured values against rules before moving on.",
	TypeEndScreen:         "Final message; optionally lists the captured values.",
}

// Catalog lists the canonical node types with their accepted aliases.
func Catalog() []TypeInfo {
	var out []TypeInfo
	for _, t := range KnownTypes() {
		if t.Canonical() != t {
			continue
		}
		info := TypeInfo{Type: t, Description: descriptions[t]}
		for _, alias := range KnownTypes() {
			if alias != t && alias.Canonical() == t {
				info.Aliases = append(info.Aliases, alias)
			}
		}
		out = append(out, info)
	}
	return out
}
