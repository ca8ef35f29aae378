package ir

// Version constants for the IR schema and the tool.
const (
	// IRVersion is the IR schema version stamped into recorded runs.
	IRVersion = "1"

	// ToolVersion is the bfc tool version.
	ToolVersion = "0.1.0"
)
