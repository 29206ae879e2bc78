package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), ".coordination", "trace-reads.json")
}

func TestRecordAndLoad(t *testing.T) {
	path := statePath(t)
	now := time.Now().Truncate(time.Second)

	require.NoError(t, Record(path, "session-1", "app-core", now))

	st := Load(path, "session-1")
	got, ok := st.LastRead("app-core")
	require.True(t, ok)
	assert.True(t, got.Equal(now.UTC()))

	_, ok = st.LastRead("app-ui")
	assert.False(t, ok)
}

func TestSessionChangeClearsReads(t *testing.T) {
	path := statePath(t)
	require.NoError(t, Record(path, "session-1", "app-core", time.Now()))

	st := Load(path, "session-2")
	assert.Equal(t, "session-2", st.SessionID)
	_, ok := st.LastRead("app-core")
	assert.False(t, ok)

	// Recording under the new session replaces the file wholesale.
	require.NoError(t, Record(path, "session-2", "app-ui", time.Now()))
	st = Load(path, "session-2")
	_, ok = st.LastRead("app-core")
	assert.False(t, ok)
	_, ok = st.LastRead("app-ui")
	assert.True(t, ok)
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	path := statePath(t)

	st := Load(path, "session-1")
	assert.Empty(t, st.Reads)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0644))
	st = Load(path, "session-1")
	assert.Empty(t, st.Reads)
}

func TestRecordIsAdditive(t *testing.T) {
	path := statePath(t)
	require.NoError(t, Record(path, "s", "app-core", time.Now()))
	require.NoError(t, Record(path, "s", "app-ui", time.Now()))

	st := Load(path, "s")
	assert.Len(t, st.Reads, 2)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := statePath(t)
	require.NoError(t, Record(path, "s", "app-core", time.Now()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "trace-reads.json", entries[0].Name())
}
