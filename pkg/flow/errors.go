package flow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownNodeType is returned when a node's type is outside the closed set.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrInvalidProperties is returned when a node's properties cannot be decoded
// into its typed step.
var ErrInvalidProperties = errors.New("invalid node properties")

// SchemaError reports raw input that does not match the graph shape. Each
// problem is formatted as "path: message".
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("flow schema violation: %s", e.Problems[0])
	}
	return fmt.Sprintf("flow schema violation (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// DecodeError wraps a failure to decode a node's properties.
type DecodeError struct {
	NodeID string
	Type   NodeType
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("node %q (%s): %v", e.NodeID, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
