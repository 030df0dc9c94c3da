/*
Package domain contains the builder's persistent entities.

A Project pairs a flow graph with the source most recently generated from it.
Projects are stored through ports.ProjectStore; this package holds no I/O.

# Key Entities

  - Project: a named flow graph plus its generated program.
  - Patch: a partial update applied by the builder.
  - FlowDiff: the node and edge changes between two versions of a flow.
*/
package domain
