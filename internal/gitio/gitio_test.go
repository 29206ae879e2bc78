package gitio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
	}
}

func TestTrackedFilesFallbackWalk(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"src/core/service.ts",
		"src/ui/view.ts",
		"readme.md",
		".hidden/secret.ts",
		"node_modules/pkg/index.js",
		"vendor/lib/lib.go",
	)

	files, err := TrackedFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"readme.md", "src/core/service.ts", "src/ui/view.ts"}, files)
}

func TestStagedFilesOutsideRepo(t *testing.T) {
	files, err := StagedFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}
