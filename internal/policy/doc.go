// Package policy compiles veto and rewrite rules authored in CUE into bus
// listeners.
//
// A policy file declares rules under the top-level "rule" field:
//
//	rule: "no-tnt": {
//		event:  "change_block"
//		action: "invalidate"
//		block:  "minecraft:tnt"
//	}
//
// Every rule is unified with the embedded #Rule schema before it is read, so
// unknown fields and misspelled enum values are reported with their source
// position. Cross-field rules (which actions apply to which events, which
// matchers a rule may use) are checked by Validate.
//
// Installed rules run synchronously inside Bus.Post like any other
// listener. A rule that adjusts an event records a hit; hits are how
// scenarios assert that a rule fired.
package policy
