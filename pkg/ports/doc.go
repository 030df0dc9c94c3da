/*
Package ports defines the driven ports (interfaces) of the flow builder.

These interfaces decouple the builder from concrete storage backends.

# Key Interfaces

  - ProjectStore: persists and loads projects.
  - DistributedLocker: coordinates project updates across replicas.
*/
package ports
