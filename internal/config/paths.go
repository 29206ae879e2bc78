package config

import "path/filepath"

// Fixed repo-relative layout. Every operation resolves the same paths from
// the project root; nothing else about the layout is configurable.
const (
	tracesDirName       = "traces"
	lowLevelDirName     = "low-level"
	configFileName      = "trace.config.json"
	settingsFileName    = "settings.yaml"
	historyFileName     = "history.db"
	coordinationDirName = ".coordination"
	readStateFileName   = "trace-reads.json"
)

// TracesDir returns the trace storage directory for a project root.
func TracesDir(projectRoot string) string {
	return filepath.Join(projectRoot, tracesDirName)
}

// ConfigPath returns the trace configuration file path.
func ConfigPath(projectRoot string) string {
	return filepath.Join(TracesDir(projectRoot), configFileName)
}

// SettingsPath returns the optional settings file path.
func SettingsPath(projectRoot string) string {
	return filepath.Join(TracesDir(projectRoot), settingsFileName)
}

// HighLevelJSONPath returns the canonical high-level trace path.
func HighLevelJSONPath(projectRoot string) string {
	return filepath.Join(TracesDir(projectRoot), "high-level.json")
}

// HighLevelMarkdownPath returns the editable high-level document path.
func HighLevelMarkdownPath(projectRoot string) string {
	return filepath.Join(TracesDir(projectRoot), "high-level.md")
}

// LowLevelDir returns the directory holding per-module low-level traces.
func LowLevelDir(projectRoot string) string {
	return filepath.Join(TracesDir(projectRoot), lowLevelDirName)
}

// LowLevelJSONPath returns the canonical low-level trace path for a module.
func LowLevelJSONPath(projectRoot, moduleID string) string {
	return filepath.Join(LowLevelDir(projectRoot), moduleID+".json")
}

// LowLevelMarkdownPath returns the editable low-level document path for a module.
func LowLevelMarkdownPath(projectRoot, moduleID string) string {
	return filepath.Join(LowLevelDir(projectRoot), moduleID+".md")
}

// HistoryDBPath returns the generation history database path.
func HistoryDBPath(projectRoot string) string {
	return filepath.Join(TracesDir(projectRoot), historyFileName)
}

// ReadStatePath returns the session read-tracking state path.
func ReadStatePath(projectRoot string) string {
	return filepath.Join(projectRoot, coordinationDirName, readStateFileName)
}
