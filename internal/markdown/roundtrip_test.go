package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archtrace/internal/trace"
)

func sampleLowLevel() *trace.LowLevelTrace {
	return &trace.LowLevelTrace{
		ModuleID:      "app-core",
		Version:       2,
		LastGenerated: "2026-08-26T10:00:00Z",
		GeneratedBy:   "archtrace",
		Files: []trace.FileEntry{
			{
				FilePath: "src/core/service.ts",
				Exports: []trace.Export{
					{Symbol: "Service", Type: trace.ExportClass},
					{Symbol: "DEFAULT_TIMEOUT", Type: trace.ExportConst},
				},
				Imports: []trace.Import{
					{Source: "./db", Symbols: []string{"query", "exec"}},
					{Source: "./polyfill", Symbols: []string{}},
				},
				Calls:  []trace.Call{},
				Events: []trace.Event{},
			},
			{
				FilePath: "src/core/empty.ts",
				Exports:  []trace.Export{},
				Imports:  []trace.Import{},
				Calls:    []trace.Call{},
				Events:   []trace.Event{},
			},
		},
	}
}

func sampleHighLevel() *trace.HighLevelTrace {
	return &trace.HighLevelTrace{
		Version:       4,
		LastGenerated: "2026-08-26T10:00:00Z",
		GeneratedBy:   "archtrace",
		ProjectRoot:   ".",
		Modules: []trace.ModuleNode{
			{
				ID:          "dev-team",
				Name:        "Dev Team",
				Description: "Feature development",
				FileGlobs:   []string{"src/dev/**", "shared/dev/**"},
				Dependencies: []trace.Edge{
					{TargetID: "qa-team", RelationshipType: trace.RelImports, Description: "test fixtures"},
					{TargetID: "infra", RelationshipType: trace.RelConfigures},
				},
				Dependents: []trace.Edge{},
			},
			{
				ID:           "qa-team",
				Name:         "QA Team",
				FileGlobs:    []string{"src/qa/**"},
				Dependencies: []trace.Edge{},
				Dependents: []trace.Edge{
					{TargetID: "dev-team", RelationshipType: trace.RelImports},
				},
			},
		},
	}
}

func TestLowLevelRoundTrip(t *testing.T) {
	ll := sampleLowLevel()
	doc := RenderLowLevel(ll)

	parsed := ParseLowLevel(doc)
	assert.Empty(t, parsed.Errors)
	assert.Equal(t, ll.Files, parsed.Files)

	require.NotNil(t, parsed.Metadata.Version)
	assert.Equal(t, ll.Version, *parsed.Metadata.Version)
	assert.Equal(t, ll.LastGenerated, parsed.Metadata.LastGenerated)
	assert.Equal(t, "low-level/app-core", parsed.Metadata.TraceID)
}

func TestHighLevelRoundTrip(t *testing.T) {
	hl := sampleHighLevel()
	doc := RenderHighLevel(hl)

	parsed := ParseHighLevel(doc)
	assert.Empty(t, parsed.Errors)
	assert.Equal(t, hl.Modules, parsed.Modules)
	assert.Equal(t, "high-level", parsed.Metadata.TraceID)
	assert.Equal(t, hl.LastGenerated, parsed.Metadata.LastGenerated)
}

func TestRenderLowLevelSideEffectImport(t *testing.T) {
	doc := RenderLowLevel(sampleLowLevel())
	assert.Contains(t, doc, "| ./polyfill | (side-effect) |")
}

func TestRenderEmptyTablesUsePlaceholder(t *testing.T) {
	doc := RenderLowLevel(sampleLowLevel())
	assert.Contains(t, doc, "*None*")
}

func TestParseExcludesUnsyncedSections(t *testing.T) {
	doc := RenderLowLevel(sampleLowLevel())
	edited := doc + "\nhand-written note mentioning | pipes | that | are | not | data |\n"

	parsed := ParseLowLevel(edited)
	assert.Empty(t, parsed.Errors)
	assert.Len(t, parsed.Files, 2)
}

func TestParseLowLevelCollectsRowErrors(t *testing.T) {
	doc := RenderLowLevel(sampleLowLevel())
	// Corrupt one data row: drop a cell.
	edited := strings.Replace(doc, "| Service | class |", "| Service |", 1)

	parsed := ParseLowLevel(edited)
	require.Len(t, parsed.Errors, 1)
	// Well-formed rows still parse.
	assert.Equal(t, "DEFAULT_TIMEOUT", parsed.Files[0].Exports[0].Symbol)
}

func TestParseHighLevelEditedEdge(t *testing.T) {
	doc := RenderHighLevel(sampleHighLevel())
	edited := strings.Replace(doc,
		"| qa-team | imports | test fixtures |",
		"| knowledge-team | imports | test fixtures |", 1)

	parsed := ParseHighLevel(edited)
	require.Len(t, parsed.Modules, 2)
	assert.Equal(t, "knowledge-team", parsed.Modules[0].Dependencies[0].TargetID)
}
