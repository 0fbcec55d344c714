// Package engine runs world operations one capture window at a time.
//
// ARCHITECTURE:
//
// Single-Writer Window Loop:
// Operations are enqueued from any goroutine and executed by Run in a
// single goroutine. Each operation gets a fresh capture log, so every
// window is batched, dispatched and rolled back in isolation:
// 1. Operation enqueued to FIFO queue
// 2. Engine.Run() dequeues operations one at a time
// 3. Step() opens a window: window ID, seq from the logical clock, new log
// 4. The operation mutates the world through a pipeline bound to that log
// 5. The log is processed (or aborted on failure or quota overflow)
// 6. The window is journaled to the store, if one is configured
//
// WINDOW OUTCOMES:
//
//   - committed: every group's event stood
//   - rolled_back: something was rejected and restored
//   - aborted: the window grew past the node quota and was undone
//   - failed: the operation returned an error or panicked, or a restore
//     failed and the world may be inconsistent
//
// Seq numbers come from a monotonic logical clock, never wall time. A
// journaled engine resumes its clock from the last journaled seq.
package engine
