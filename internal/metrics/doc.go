// Package metrics owns the Prometheus collectors for segment ingestion and
// product scheduling. Collectors register on a private registry so tests and
// multiple daemons in one process never collide. Every recording method is
// safe on a nil *Collectors.
package metrics
