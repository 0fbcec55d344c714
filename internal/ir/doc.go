// Package ir provides the value types shared by every layer of the
// transaction engine: world keys, block positions and states, tile entity
// and entity snapshots, and the sealed Value family used for their data
// compounds.
//
// This package imports nothing internal. All other internal packages import
// ir, which keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types in data compounds - use Int for numbers
//   - Snapshots are values; Clone before handing them to another owner
//   - All JSON tags use snake_case
//   - Canonical JSON (RFC 8785) is the only encoding used for digests
package ir
