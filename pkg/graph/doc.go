// Package graph defines the design graph produced by script evaluation.
// The design graph is an immutable DAG of gears, racks, transforms, mesh
// declarations and groups that represents a geared mechanism.
package graph
