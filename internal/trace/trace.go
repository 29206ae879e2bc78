// Package trace defines the canonical architecture trace model: the
// high-level module dependency graph and per-module low-level file
// inventories, plus structural validation for both.
package trace

import "time"

// GeneratedBy identifies the generator in trace metadata.
const GeneratedBy = "archtrace"

// RelationshipType classifies a high-level dependency edge.
type RelationshipType string

const (
	RelImports        RelationshipType = "imports"
	RelCalls          RelationshipType = "calls"
	RelPublishesTo    RelationshipType = "publishes-to"
	RelSubscribesFrom RelationshipType = "subscribes-from"
	RelReadsFrom      RelationshipType = "reads-from"
	RelWritesTo       RelationshipType = "writes-to"
	RelConfigures     RelationshipType = "configures"
)

// RelationshipTypes is the closed set of valid edge relationships.
var RelationshipTypes = []RelationshipType{
	RelImports, RelCalls, RelPublishesTo, RelSubscribesFrom,
	RelReadsFrom, RelWritesTo, RelConfigures,
}

// ExportType classifies an exported symbol.
type ExportType string

const (
	ExportFunction  ExportType = "function"
	ExportClass     ExportType = "class"
	ExportInterface ExportType = "interface"
	ExportTypeAlias ExportType = "type"
	ExportConst     ExportType = "const"
	ExportEnum      ExportType = "enum"
	ExportDefault   ExportType = "default"
)

// ExportTypes is the closed set of valid export types.
var ExportTypes = []ExportType{
	ExportFunction, ExportClass, ExportInterface, ExportTypeAlias,
	ExportConst, ExportEnum, ExportDefault,
}

// EventType classifies an event slot entry.
type EventType string

const (
	EventPublish   EventType = "publish"
	EventSubscribe EventType = "subscribe"
)

// Edge is a directed relationship between two modules.
type Edge struct {
	TargetID         string           `json:"targetId"`
	RelationshipType RelationshipType `json:"relationshipType"`
	Description      string           `json:"description"`
}

// ModuleNode is one module in the high-level graph.
type ModuleNode struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	FileGlobs    []string `json:"fileGlobs"`
	Dependencies []Edge   `json:"dependencies"`
	Dependents   []Edge   `json:"dependents"`
}

// HighLevelTrace is the module dependency graph snapshot.
type HighLevelTrace struct {
	Version       int          `json:"version"`
	LastGenerated string       `json:"lastGenerated"`
	GeneratedBy   string       `json:"generatedBy"`
	ProjectRoot   string       `json:"projectRoot"`
	Modules       []ModuleNode `json:"modules"`
}

// Export is one exported symbol of a source file.
type Export struct {
	Symbol string     `json:"symbol"`
	Type   ExportType `json:"type"`
}

// Import is one import statement of a source file. An empty Symbols list
// denotes a side-effect import.
type Import struct {
	Source  string   `json:"source"`
	Symbols []string `json:"symbols"`
}

// Call is a reserved inter-module call slot, currently always empty.
type Call struct {
	Target   string `json:"target"`
	Function string `json:"function"`
	Context  string `json:"context"`
}

// Event is a reserved publish/subscribe slot, currently always empty.
type Event struct {
	Type      EventType `json:"type"`
	EventName string    `json:"eventName"`
	Channel   string    `json:"channel"`
}

// FileEntry is the inventory of one source file.
type FileEntry struct {
	FilePath string    `json:"filePath"`
	Exports  []Export  `json:"exports"`
	Imports  []Import  `json:"imports"`
	Calls    []Call    `json:"calls"`
	Events   []Event   `json:"events"`
}

// LowLevelTrace is the per-module file inventory snapshot.
type LowLevelTrace struct {
	ModuleID      string      `json:"moduleId"`
	Version       int         `json:"version"`
	LastGenerated string      `json:"lastGenerated"`
	GeneratedBy   string      `json:"generatedBy"`
	Files         []FileEntry `json:"files"`
}

// ParseTimestamp parses a trace timestamp. The zero time with ok=false means
// the trace must be treated as absent or stale.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders a timestamp the way traces persist it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
