// Package event defines the domain events the transaction engine
// synthesizes from batched mutations and the synchronous bus that delivers
// them to subscribers.
//
// Events are plain structs. Subscribers observe them through Bus.Post and
// may cancel a Cancellable event or adjust its mutable parts (invalidate a
// block transaction, set a custom final state, filter spawned entities).
// The engine reads those adjustments back after Post returns.
package event
