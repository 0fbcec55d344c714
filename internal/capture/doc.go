// Package capture records world mutations as transactions, batches them
// into events, dispatches the events and rolls back whatever subscribers
// rejected.
//
// A capture window uses one Log. Producers call the Log* entry points while
// they mutate the world; mutations caused by applying another mutation are
// recorded inside an EffectScope, which nests them under the node that
// caused them. Process then runs the pipeline exactly once:
//
//	Batch    partition every chain into EventGroups, nested groups right
//	         after the group they hang from
//	Dispatch for each group in order, synthesize one event from its decider,
//	         post it, and mark rejected nodes cancelled
//	Rollback if anything was cancelled, restore cancelled nodes walking the
//	         groups and their nodes in reverse
//	Post     post one aggregate event per transaction type
//
// Nodes live in an arena addressed by NodeID. Chains are addressed by
// ChainID; chain 0 is the top-level chain.
//
// Contract violations by producers (pushing a scope with nothing to hang it
// from, closing scopes out of order, logging into a processed log) panic
// with *InvariantError. A restore that fails is a fatal *InconsistencyError.
package capture
