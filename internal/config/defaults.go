// Package config provides configuration loading and defaults for aireflect.
package config

// DefaultClaudeHome is the default location of Claude Code's data directory.
const DefaultClaudeHome = "~/.claude"

// DefaultCursorStorage selects the platform default when empty.
const DefaultCursorStorage = ""

// DefaultCopilotTraces is where the capture extension writes trace files.
const DefaultCopilotTraces = "~/.aireflect/copilot_traces"

// DefaultVSCodeLogs selects the platform default when empty.
const DefaultVSCodeLogs = ""

// DefaultConfigDir is the default location for aireflect configuration.
const DefaultConfigDir = "~/.config/aireflect"

// DefaultDBName is the filename for the SQLite history database.
const DefaultDBName = "aireflect.db"

// DefaultPreset is the analyzer preset used when none is requested.
const DefaultPreset = "full"

// DefaultLookbackDays bounds analysis when no --since is given.
const DefaultLookbackDays = 30

// DefaultLLMEnabled controls whether insight prose is generated via the
// Claude Code CLI.
const DefaultLLMEnabled = true

// DefaultOutput holds terminal rendering defaults.
var DefaultOutput = Output{Color: true, Width: 80}
