package syncer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archtrace/internal/config"
	"archtrace/internal/markdown"
	"archtrace/internal/trace"
)

func highLevelFixture() *trace.HighLevelTrace {
	return &trace.HighLevelTrace{
		Version:       3,
		LastGenerated: "2026-08-26T10:00:00Z",
		GeneratedBy:   trace.GeneratedBy,
		ProjectRoot:   ".",
		Modules: []trace.ModuleNode{
			{
				ID:        "dev-team",
				Name:      "Dev Team",
				FileGlobs: []string{"apps/dev/**"},
				Dependencies: []trace.Edge{
					{TargetID: "qa-team", RelationshipType: trace.RelCalls, Description: "review requests"},
				},
				Dependents: []trace.Edge{},
			},
			{
				ID:           "qa-team",
				Name:         "QA Team",
				FileGlobs:    []string{"apps/qa/**"},
				Dependencies: []trace.Edge{},
				Dependents:   []trace.Edge{},
			},
		},
	}
}

func lowLevelFixture() *trace.LowLevelTrace {
	return &trace.LowLevelTrace{
		ModuleID:      "dev-team",
		Version:       2,
		LastGenerated: "2026-08-26T10:00:00Z",
		GeneratedBy:   trace.GeneratedBy,
		Files: []trace.FileEntry{
			{
				FilePath: "apps/dev/index.ts",
				Exports:  []trace.Export{{Symbol: "main", Type: trace.ExportFunction}},
				Imports:  []trace.Import{},
				Calls:    []trace.Call{},
				Events:   []trace.Event{},
			},
		},
	}
}

func writeHighLevel(t *testing.T, root string, hl *trace.HighLevelTrace, doc string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(config.TracesDir(root), 0755))
	data, err := json.MarshalIndent(hl, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(config.HighLevelJSONPath(root), data, 0644))
	require.NoError(t, os.WriteFile(config.HighLevelMarkdownPath(root), []byte(doc), 0644))
}

func writeLowLevel(t *testing.T, root string, ll *trace.LowLevelTrace, doc string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(config.LowLevelDir(root), 0755))
	data, err := json.MarshalIndent(ll, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(config.LowLevelJSONPath(root, ll.ModuleID), data, 0644))
	require.NoError(t, os.WriteFile(config.LowLevelMarkdownPath(root, ll.ModuleID), []byte(doc), 0644))
}

func readHighLevel(t *testing.T, root string) *trace.HighLevelTrace {
	t.Helper()
	data, err := os.ReadFile(config.HighLevelJSONPath(root))
	require.NoError(t, err)
	var hl trace.HighLevelTrace
	require.NoError(t, json.Unmarshal(data, &hl))
	return &hl
}

// Retarget dev-team's single dependency edge inside the rendered document.
func editEdge(doc string) string {
	return strings.Replace(doc,
		"| qa-team | calls | review requests |",
		"| knowledge-team | calls | shared docs |", 1)
}

func TestSyncAppliesDocumentEdit(t *testing.T) {
	root := t.TempDir()
	hl := highLevelFixture()
	writeHighLevel(t, root, hl, editEdge(markdown.RenderHighLevel(hl)))

	r, err := Sync(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, r.FilesUpdated)
	assert.Empty(t, r.Conflicts)
	require.Len(t, r.Changes, 1)
	assert.Equal(t, "Updated 1 dependencies in dev-team (was 1)", r.Changes[0].Message)
	assert.Equal(t, "dependencies", r.Changes[0].Field)
	assert.NotEmpty(t, r.Changes[0].Diff)

	synced := readHighLevel(t, root)
	require.Len(t, synced.Modules[0].Dependencies, 1)
	assert.Equal(t, "knowledge-team", synced.Modules[0].Dependencies[0].TargetID)
}

func TestSyncConflictOnStaleDocument(t *testing.T) {
	root := t.TempDir()
	hl := highLevelFixture()
	doc := editEdge(markdown.RenderHighLevel(hl))
	// Regenerated after the document snapshot was taken.
	hl.LastGenerated = "2026-08-26T11:00:00Z"
	writeHighLevel(t, root, hl, doc)

	r, err := Sync(root, Options{})
	require.NoError(t, err)

	assert.Zero(t, r.FilesUpdated)
	assert.Empty(t, r.Changes)
	require.Len(t, r.Conflicts, 1)
	assert.Equal(t, "dev-team", r.Conflicts[0].EntityID)
	assert.Equal(t, "dependencies", r.Conflicts[0].Field)
	assert.Contains(t, r.Conflicts[0].Canonical, "qa-team")
	assert.Contains(t, r.Conflicts[0].Document, "knowledge-team")

	// Canonical data stays untouched.
	assert.Equal(t, "qa-team", readHighLevel(t, root).Modules[0].Dependencies[0].TargetID)
}

func TestSyncForceBypassesConflicts(t *testing.T) {
	root := t.TempDir()
	hl := highLevelFixture()
	doc := editEdge(markdown.RenderHighLevel(hl))
	hl.LastGenerated = "2026-08-26T11:00:00Z"
	writeHighLevel(t, root, hl, doc)

	r, err := Sync(root, Options{Force: true})
	require.NoError(t, err)

	assert.Empty(t, r.Conflicts)
	assert.Equal(t, 1, r.FilesUpdated)
	assert.Equal(t, "knowledge-team", readHighLevel(t, root).Modules[0].Dependencies[0].TargetID)
}

func TestSyncDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	hl := highLevelFixture()
	writeHighLevel(t, root, hl, editEdge(markdown.RenderHighLevel(hl)))

	r, err := Sync(root, Options{DryRun: true})
	require.NoError(t, err)

	assert.Len(t, r.Changes, 1)
	assert.Zero(t, r.FilesUpdated)
	assert.True(t, strings.HasPrefix(r.Summary, "[dry-run] "))
	assert.Equal(t, "qa-team", readHighLevel(t, root).Modules[0].Dependencies[0].TargetID)
}

func TestSyncSkipsDocumentOnlyEntities(t *testing.T) {
	root := t.TempDir()
	hl := highLevelFixture()
	doc := markdown.RenderHighLevel(hl)
	doc += "\n## Ops Team\n\n**ID**: ops-team\n**Description**: added by hand\n**File Globs**: `ops/**`\n"
	writeHighLevel(t, root, hl, doc)

	r, err := Sync(root, Options{})
	require.NoError(t, err)

	assert.Empty(t, r.Changes)
	require.Len(t, r.Skipped, 1)
	assert.Contains(t, r.Skipped[0], `"ops-team"`)

	assert.Len(t, readHighLevel(t, root).Modules, 2)
}

func TestSyncLowLevelExportsEdit(t *testing.T) {
	root := t.TempDir()
	ll := lowLevelFixture()
	doc := strings.Replace(markdown.RenderLowLevel(ll),
		"| main | function |",
		"| main | function |\n| bootstrap | function |", 1)
	writeLowLevel(t, root, ll, doc)

	r, err := Sync(root, Options{})
	require.NoError(t, err)

	require.Len(t, r.Changes, 1)
	assert.Equal(t, "Updated 2 exports in apps/dev/index.ts (was 1)", r.Changes[0].Message)
	assert.Equal(t, "low-level/dev-team", r.Changes[0].TraceID)

	data, err := os.ReadFile(config.LowLevelJSONPath(root, "dev-team"))
	require.NoError(t, err)
	var synced trace.LowLevelTrace
	require.NoError(t, json.Unmarshal(data, &synced))
	assert.Len(t, synced.Files[0].Exports, 2)
}

func TestSyncCollectsMalformedRows(t *testing.T) {
	root := t.TempDir()
	ll := lowLevelFixture()
	doc := strings.Replace(markdown.RenderLowLevel(ll),
		"| main | function |",
		"| main |", 1)
	writeLowLevel(t, root, ll, doc)

	r, err := Sync(root, Options{})
	require.NoError(t, err)

	require.NotEmpty(t, r.Errors)
	assert.Contains(t, r.Errors[0], "dev-team")
}

func TestSyncRejectsInvalidRelationshipEdit(t *testing.T) {
	root := t.TempDir()
	hl := highLevelFixture()
	doc := strings.Replace(markdown.RenderHighLevel(hl),
		"| qa-team | calls | review requests |",
		"| qa-team | depends-on | review requests |", 1)
	writeHighLevel(t, root, hl, doc)

	r, err := Sync(root, Options{})
	require.NoError(t, err)

	assert.Zero(t, r.FilesUpdated)
	require.NotEmpty(t, r.Errors)
	assert.Contains(t, r.Errors[0], `invalid relationship "depends-on"`)

	// Canonical data stays untouched.
	assert.Equal(t, trace.RelCalls, readHighLevel(t, root).Modules[0].Dependencies[0].RelationshipType)
}

func TestSyncNothingToScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "traces"), 0755))

	r, err := Sync(root, Options{})
	require.NoError(t, err)
	assert.Zero(t, r.FilesUpdated)
	assert.Contains(t, r.Summary, "0 files scanned")
}
