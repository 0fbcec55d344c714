// Package harness runs world transaction scenarios as executable tests.
//
// A scenario prepares a world, runs a sequence of operations, each in its
// own capture window, and checks what the engine decided and what the world
// looks like afterwards.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	worlds: [minecraft:overworld]
//	policies:
//	  - policies/no_tnt.cue
//	policy: |
//	  rule: "no-chests": {event: "change_block", action: "cancel", block: "minecraft:chest"}
//	max_nodes: 64
//	setup:
//	  - pos: [0, 64, 0]
//	    state: minecraft:stone
//	  - entity: {id: cow-1, type: minecraft:cow, pos: [2, 64, 2]}
//	flow:
//	  - window: build
//	    cause: "player:alex"
//	    ops:
//	      - op: set_block
//	        pos: [1, 64, 0]
//	        state: minecraft:tnt
//	    expect:
//	      outcome: rolled_back
//	      groups: 2
//	      restored: [6, 5, 4, 3, 2, 1, 0]
//	assertions:
//	  - type: block_state
//	    pos: [1, 64, 0]
//	    state: minecraft:air
//
// Setup steps write straight to the world and are never captured. Policy
// paths are resolved relative to the scenario file.
//
// # Operations
//
//   - set_block: place state at pos; notify: false skips neighbour updates
//   - break_block: replace pos with air, spawning drops when drops is true
//   - explode: break every solid block within radius of pos, with drops
//   - set_tile_data: replace the data of the tile entity at pos
//   - spawn: add an entity with the given spawn_type (default custom)
//   - kill: remove entity id and spawn its loot
//   - block_event: queue and perform a block event action at pos
//
// # Assertion Types
//
//   - block_state: the block at pos is state
//   - tile_entity: the tile entity at pos has type tile, or "none"
//   - entity_count: a world holds exactly count entities
//   - window_outcome: a window ended with outcome
//   - group_outcomes: a window's event groups ended with outcomes, in order
//   - group_types: a window's event groups had types, in order
//   - restore_order: a window restored exactly these node IDs, in order
//   - rule_hits: a policy rule changed count events
//   - event_count: count events with the given name were posted
//
// # Determinism
//
// Every scenario runs against a fresh world and an in-memory journal, with
// a deterministic clock and sequential window and entity IDs. Two runs of
// the same scenario produce the same trace byte for byte, which is what
// golden snapshots compare.
package harness
