/*
Package flow contains the data contract of a USSD flow graph.

A graph is a list of typed nodes and the directed edges between them, exactly
as the visual editor persists it. This package owns three things:

  - The wire shapes (Graph, Node, Edge) with their JSON and YAML tags.
  - The schema check applied to raw input before anything else looks at it
    (see ParseJSON, ParseYAML and Load).
  - The typed step variants (MenuStep, InputStep, PaymentStep,
    ConditionalStep, APIStep, ValidationStep, EndStep) decoded from a node's
    loosely typed properties bag. Step is a closed sum type: the node's type
    field is the only discriminator, the label is never consulted.

The package performs no I/O apart from Load and has no knowledge of
validation policy or code generation.
*/
package flow
