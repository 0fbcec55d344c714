// Package store provides the SQLite-backed journal of processed capture
// windows.
//
// Each window is written once, in one transaction, with:
//   - capture_windows: one row per window (operation, outcome, restore order, digest)
//   - event_groups: the batch plan and what happened to each group
//   - window_nodes: every node with its chain, group, flags and payload
//
// # Ordering
//
// Windows are ordered by seq, the engine's logical clock, never by wall
// time. Reads always ORDER BY seq ASC, id ASC COLLATE BINARY so listings
// are identical across runs.
//
// # Payloads
//
// Node details and ID lists are stored as RFC 8785 canonical JSON (see
// internal/ir). The window digest is computed by the engine from the same
// canonical form.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
