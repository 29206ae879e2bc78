// Package gitio lists version-controlled files using go-git, with a plain
// filesystem walk as fallback for roots that are not git repositories.
package gitio

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
)

// TrackedFiles returns the repo-relative paths of all files the repository
// tracks, sorted. Outside a git repository it degrades to a filesystem walk
// that skips hidden directories, node_modules, and vendor.
func TrackedFiles(root string) ([]string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return walkFiles(root)
	}

	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("reading git index: %w", err)
	}

	files := make([]string, 0, len(idx.Entries))
	for _, entry := range idx.Entries {
		files = append(files, filepath.ToSlash(entry.Name))
	}
	sort.Strings(files)
	return files, nil
}

// StagedFiles returns the repo-relative paths staged for the next commit.
// A non-repository root yields an empty set rather than an error, since the
// only consumer is the fail-open commit gate.
func StagedFiles(root string) ([]string, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}

	var files []string
	for path, st := range status {
		if st.Staging != git.Unmodified && st.Staging != git.Untracked {
			files = append(files, filepath.ToSlash(path))
		}
	}
	sort.Strings(files)
	return files, nil
}

func walkFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}
