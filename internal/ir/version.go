package ir

// Version constants for the journal schema and engine.
const (
	// JournalVersion is the version of the persisted window payloads.
	JournalVersion = "1"

	// EngineVersion is the worldtx engine version.
	EngineVersion = "0.1.0"
)
