package stale

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archtrace/internal/config"
	"archtrace/internal/trace"
)

func setup(t *testing.T) (string, *config.TraceConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.TraceConfig{
		Version:     1,
		ProjectRoot: root,
		Modules: []config.ModuleConfig{
			{ID: "app-core", Name: "App Core", FileGlobs: []string{"src/core/**"}},
			{ID: "app-ui", Name: "App UI", FileGlobs: []string{"src/ui/**"}},
		},
	}
	return root, cfg
}

func writeFileAt(t *testing.T, root, rel string, mtime time.Time) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(full, mtime, mtime))
}

func writeTrace(t *testing.T, root, moduleID, lastGenerated string) {
	t.Helper()
	ll := trace.LowLevelTrace{
		ModuleID:      moduleID,
		Version:       1,
		LastGenerated: lastGenerated,
		GeneratedBy:   "archtrace",
		Files:         []trace.FileEntry{},
	}
	data, err := json.Marshal(ll)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(config.LowLevelDir(root), 0755))
	require.NoError(t, os.WriteFile(config.LowLevelJSONPath(root, moduleID), data, 0644))
}

func TestUnknownModuleNeverStale(t *testing.T) {
	root, cfg := setup(t)
	assert.False(t, IsStale(root, cfg, "no-such-module"))
	assert.False(t, IsStale(root, nil, "app-core"))
}

func TestMissingTraceIsStale(t *testing.T) {
	root, cfg := setup(t)
	assert.True(t, IsStale(root, cfg, "app-core"))
}

func TestUnparseableTimestampIsStale(t *testing.T) {
	root, cfg := setup(t)
	writeTrace(t, root, "app-core", "not a timestamp")
	assert.True(t, IsStale(root, cfg, "app-core"))
}

func TestCorruptTraceIsStale(t *testing.T) {
	root, cfg := setup(t)
	require.NoError(t, os.MkdirAll(config.LowLevelDir(root), 0755))
	require.NoError(t, os.WriteFile(config.LowLevelJSONPath(root, "app-core"), []byte("{not json"), 0644))
	assert.True(t, IsStale(root, cfg, "app-core"))
}

func TestNewerFileMakesStale(t *testing.T) {
	root, cfg := setup(t)
	generated := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeTrace(t, root, "app-core", trace.FormatTimestamp(generated))
	writeFileAt(t, root, "src/core/service.ts", generated.Add(30*time.Minute))

	assert.True(t, IsStale(root, cfg, "app-core"))
}

func TestOlderFilesNotStale(t *testing.T) {
	root, cfg := setup(t)
	generated := time.Now().Truncate(time.Second)
	writeTrace(t, root, "app-core", trace.FormatTimestamp(generated))
	writeFileAt(t, root, "src/core/service.ts", generated.Add(-time.Hour))
	writeFileAt(t, root, "src/core/util.ts", generated.Add(-2*time.Hour))

	assert.False(t, IsStale(root, cfg, "app-core"))
}

func TestZeroMatchingFilesNeverStale(t *testing.T) {
	root, cfg := setup(t)
	writeTrace(t, root, "app-ui", trace.FormatTimestamp(time.Now().Add(-24*time.Hour)))

	// Files exist, but none under src/ui.
	writeFileAt(t, root, "src/core/service.ts", time.Now())

	assert.False(t, IsStale(root, cfg, "app-ui"))
}

func TestStaleModulesForChangedFiles(t *testing.T) {
	root, cfg := setup(t)
	generated := time.Now().Add(-time.Hour).Truncate(time.Second)
	writeTrace(t, root, "app-core", trace.FormatTimestamp(generated))
	writeTrace(t, root, "app-ui", trace.FormatTimestamp(time.Now().Truncate(time.Second)))
	writeFileAt(t, root, "src/core/service.ts", generated.Add(30*time.Minute))
	writeFileAt(t, root, "src/ui/view.ts", generated.Add(-30*time.Minute))

	// Only touched modules are considered; untraced files are ignored.
	staleIDs := StaleModules(root, cfg, []string{
		"src/core/service.ts",
		"src/ui/view.ts",
		"docs/guide.md",
	})
	assert.Equal(t, []string{"app-core"}, staleIDs)

	// A commit touching only untraced files never reports staleness.
	assert.Empty(t, StaleModules(root, cfg, []string{"docs/guide.md"}))
}
