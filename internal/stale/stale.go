// Package stale decides whether a module's low-level trace still describes
// the files it claims to describe.
package stale

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"archtrace/internal/config"
	"archtrace/internal/globmatch"
	"archtrace/internal/gitio"
	"archtrace/internal/trace"
)

// IsStale reports whether a module's trace is outdated. An unknown module is
// not stale (there is nothing to be stale); a missing, unreadable, or
// untimestamped trace always is. Otherwise the trace is stale iff any tracked
// file matching the module's globs was modified strictly after generation.
// A module with zero matching files is never stale.
func IsStale(projectRoot string, cfg *config.TraceConfig, moduleID string) bool {
	if cfg == nil {
		return false
	}
	mod := cfg.Module(moduleID)
	if mod == nil {
		return false
	}

	generated, ok := traceTimestamp(projectRoot, moduleID)
	if !ok {
		return true
	}

	tracked, err := gitio.TrackedFiles(projectRoot)
	if err != nil {
		return true
	}

	for _, rel := range tracked {
		if !globmatch.MatchAny(mod.FileGlobs, rel) {
			continue
		}
		fi, err := os.Stat(filepath.Join(projectRoot, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		// Trace timestamps carry second precision; sub-second modification
		// within the generation second does not count as newer.
		if fi.ModTime().Truncate(time.Second).After(generated) {
			return true
		}
	}

	return false
}

// StaleModules resolves a changed-file set to modules and returns the ids of
// every touched module whose trace is stale, in configuration order.
// Untraced files are ignored.
func StaleModules(projectRoot string, cfg *config.TraceConfig, changedFiles []string) []string {
	if cfg == nil {
		return nil
	}

	touched := make(map[string]bool)
	for _, f := range changedFiles {
		if mod := config.ResolveModule(cfg, f); mod != nil {
			touched[mod.ID] = true
		}
	}

	var staleIDs []string
	for _, mod := range cfg.Modules {
		if touched[mod.ID] && IsStale(projectRoot, cfg, mod.ID) {
			staleIDs = append(staleIDs, mod.ID)
		}
	}
	return staleIDs
}

func traceTimestamp(projectRoot, moduleID string) (time.Time, bool) {
	data, err := os.ReadFile(config.LowLevelJSONPath(projectRoot, moduleID))
	if err != nil {
		return time.Time{}, false
	}

	var ll trace.LowLevelTrace
	if err := json.Unmarshal(data, &ll); err != nil {
		return time.Time{}, false
	}

	return trace.ParseTimestamp(ll.LastGenerated)
}
