// Package graph defines the design graph types for carve.
// The design graph is an immutable DAG of primitives, transforms, boolean
// operations and groups that describes a solid model.
package graph
