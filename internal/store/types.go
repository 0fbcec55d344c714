package store

// Window is one processed capture window as journaled.
type Window struct {
	ID        string
	Seq       int64
	Operation string

	// Outcome is the engine's window outcome: committed, rolled_back,
	// aborted or failed.
	Outcome string

	NodeCount int

	// Restored lists restored node IDs in restore order.
	Restored []int

	// Error is the failure message for failed and aborted windows.
	Error string

	Digest         string
	EngineVersion  string
	JournalVersion string

	// Groups and Nodes are empty in ListWindows results.
	Groups []Group
	Nodes  []Node
}

// Group is one event group of a window.
type Group struct {
	Index   int
	Parent  int
	Chain   int
	Type    string
	World   string
	Decider int

	// Event is the dispatched event's name, or empty if nothing was
	// dispatched.
	Event   string
	Outcome string
	Nodes   []int
}

// Node is one node of a window.
type Node struct {
	ID          int
	Chain       int
	Parent      int
	Effect      string
	Group       int
	Type        string
	Variant     string
	World       string
	Description string
	Cancelled   bool
	Restored    bool

	// Detail is the canonical JSON payload of the mutation.
	Detail string
}
