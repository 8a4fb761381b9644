// Package loom provides the core data model for the Loom pipeline
// orchestrator: the Tool contract, the typed execution Context threaded
// through a pipeline, the per-kind tool Input variants, and the uniform
// Result returned by every tool and by the orchestrator itself.
//
// The execution engine lives in the orchestrator subpackage; tool lookup
// in registry; pipeline tables in config; concrete tools in tools.
package loom

// Version is the library version, set via ldflags at release time.
var Version = "dev"
