// Package world defines the accessor the transaction engine uses to apply
// and undo mutations, and Memory, an in-memory implementation used by the
// reference pipeline, the scenario harness and the CLI.
//
// The engine never reads or writes world storage except through Accessor.
package world
