// Package pipeline is a reference producer for the capture log. It performs
// block, tile entity and entity mutations against a world.Accessor and logs
// each one, including the processing side effects a block change triggers,
// in the scopes a real game would open for them.
//
// A block change runs its effects in order, each in its own side-effect
// scope under the change:
//
//	old_block_on_replace  removes the old tile entity when the block type changes
//	tile_entity_setup     installs the new block's tile entity
//	notify_neighbors      notifies all six neighbors (when the flag is set)
//
// Pipelines are not safe for concurrent use; the engine drives one from its
// run loop.
package pipeline
