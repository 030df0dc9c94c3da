/*
Package observability exposes the builder's Prometheus metrics.

Metrics are registered on a caller-supplied prometheus.Registerer so tests
and embedders can keep them isolated from the default registry.
*/
package observability
