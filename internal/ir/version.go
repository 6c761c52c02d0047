package ir

// Version constants.
const (
	// SchemaVersion is the version of the persisted snapshot format.
	SchemaVersion = "1"

	// EngineVersion is the navstate engine version.
	EngineVersion = "0.1.0"
)
