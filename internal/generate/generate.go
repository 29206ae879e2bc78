// Package generate builds and persists high-level and low-level traces from
// the configured modules and the tracked source tree.
package generate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"archtrace/internal/analyze"
	"archtrace/internal/config"
	"archtrace/internal/gitio"
	"archtrace/internal/globmatch"
	"archtrace/internal/history"
	"archtrace/internal/markdown"
	"archtrace/internal/trace"
)

// Env carries everything one generation invocation needs.
type Env struct {
	ProjectRoot string
	Config      *config.TraceConfig
	Settings    *config.Settings
	RunID       string
}

// NewEnv loads configuration and settings for a project root. A missing or
// invalid configuration is fatal for generation commands.
func NewEnv(projectRoot string) (*Env, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}
	settings, err := config.LoadSettings(projectRoot)
	if err != nil {
		return nil, err
	}
	return &Env{
		ProjectRoot: projectRoot,
		Config:      cfg,
		Settings:    settings,
		RunID:       uuid.NewString(),
	}, nil
}

// ModuleResult reports one module's low-level generation.
type ModuleResult struct {
	ModuleID string `json:"moduleId"`
	Version  int    `json:"version"`
	Files    int    `json:"files"`
}

// Result reports a whole generation run.
type Result struct {
	ModulesProcessed int            `json:"modulesProcessed"`
	FilesGenerated   int            `json:"filesGenerated"`
	DurationMs       int64          `json:"durationMs"`
	HighLevelVersion *int           `json:"highLevelVersion"`
	LowLevel         []ModuleResult `json:"lowLevelResults"`
}

// ModuleEdges is externally curated edge data for one module. When present
// for a module it fully replaces that module's edges.
type ModuleEdges struct {
	Dependencies []trace.Edge
	Dependents   []trace.Edge
}

// GenerateAll regenerates every configured module's low-level trace and,
// unless lowOnly is set, the high-level trace.
func GenerateAll(env *Env, lowOnly bool, curated map[string]ModuleEdges) (*Result, error) {
	start := time.Now()
	res := &Result{LowLevel: []ModuleResult{}}
	hist := openHistory(env)
	if hist != nil {
		defer hist.Close()
	}

	tracked, err := gitio.TrackedFiles(env.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}

	for _, mod := range env.Config.Modules {
		ll, err := GenerateLowLevel(env, &mod, tracked)
		if err != nil {
			return nil, err
		}
		if err := persistLowLevel(env, hist, ll, start); err != nil {
			return nil, err
		}
		res.ModulesProcessed++
		res.FilesGenerated += 2
		res.LowLevel = append(res.LowLevel, ModuleResult{
			ModuleID: ll.ModuleID, Version: ll.Version, Files: len(ll.Files),
		})
	}

	if !lowOnly {
		hl := GenerateHighLevel(env, curated)
		if err := persistHighLevel(env, hist, hl, start); err != nil {
			return nil, err
		}
		res.FilesGenerated += 2
		res.HighLevelVersion = &hl.Version
	}

	res.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

// GenerateOne regenerates a single module's low-level trace. An unknown
// module id fails, enumerating the valid ids.
func GenerateOne(env *Env, moduleID string) (*Result, error) {
	start := time.Now()
	mod := env.Config.Module(moduleID)
	if mod == nil {
		return nil, fmt.Errorf("unknown module %q; valid ids: %s",
			moduleID, strings.Join(env.Config.ModuleIDs(), ", "))
	}

	hist := openHistory(env)
	if hist != nil {
		defer hist.Close()
	}

	tracked, err := gitio.TrackedFiles(env.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}

	ll, err := GenerateLowLevel(env, mod, tracked)
	if err != nil {
		return nil, err
	}
	if err := persistLowLevel(env, hist, ll, start); err != nil {
		return nil, err
	}

	return &Result{
		ModulesProcessed: 1,
		FilesGenerated:   2,
		DurationMs:       time.Since(start).Milliseconds(),
		LowLevel: []ModuleResult{
			{ModuleID: ll.ModuleID, Version: ll.Version, Files: len(ll.Files)},
		},
	}, nil
}

// GenerateLowLevel assembles a module's file inventory from the tracked
// files matching its glob set. Every entry's path falls under the module's
// globs by construction.
func GenerateLowLevel(env *Env, mod *config.ModuleConfig, tracked []string) (*trace.LowLevelTrace, error) {
	ll := &trace.LowLevelTrace{
		ModuleID:      mod.ID,
		Version:       nextLowLevelVersion(env, mod.ID),
		LastGenerated: trace.FormatTimestamp(time.Now()),
		GeneratedBy:   trace.GeneratedBy,
		Files:         []trace.FileEntry{},
	}

	for _, rel := range tracked {
		if !globmatch.MatchAny(mod.FileGlobs, rel) {
			continue
		}
		exports, imports := analyze.AnalyzeFile(filepath.Join(env.ProjectRoot, filepath.FromSlash(rel)))
		ll.Files = append(ll.Files, trace.FileEntry{
			FilePath: rel,
			Exports:  exports,
			Imports:  imports,
			Calls:    []trace.Call{},
			Events:   []trace.Event{},
		})
	}

	return ll, nil
}

// GenerateHighLevel assembles the module graph. Edges come from curation
// when supplied, else carry over from the existing trace, else start empty.
func GenerateHighLevel(env *Env, curated map[string]ModuleEdges) *trace.HighLevelTrace {
	existing := loadExistingHighLevel(env)

	hl := &trace.HighLevelTrace{
		Version:       1,
		LastGenerated: trace.FormatTimestamp(time.Now()),
		GeneratedBy:   trace.GeneratedBy,
		ProjectRoot:   env.Config.ProjectRoot,
		Modules:       []trace.ModuleNode{},
	}
	if existing != nil {
		hl.Version = existing.Version + 1
	}

	for _, mod := range env.Config.Modules {
		node := trace.ModuleNode{
			ID:           mod.ID,
			Name:         mod.Name,
			Description:  mod.Description,
			FileGlobs:    append([]string{}, mod.FileGlobs...),
			Dependencies: []trace.Edge{},
			Dependents:   []trace.Edge{},
		}

		if edges, ok := curated[mod.ID]; ok {
			node.Dependencies = append(node.Dependencies, edges.Dependencies...)
			node.Dependents = append(node.Dependents, edges.Dependents...)
		} else if prior := findModule(existing, mod.ID); prior != nil {
			node.Dependencies = append(node.Dependencies, prior.Dependencies...)
			node.Dependents = append(node.Dependents, prior.Dependents...)
		}

		hl.Modules = append(hl.Modules, node)
	}

	return hl
}

func findModule(hl *trace.HighLevelTrace, id string) *trace.ModuleNode {
	if hl == nil {
		return nil
	}
	for i := range hl.Modules {
		if hl.Modules[i].ID == id {
			return &hl.Modules[i]
		}
	}
	return nil
}

// nextLowLevelVersion reads the on-disk trace's counter; an absent or
// unparseable trace restarts the module at version 1.
func nextLowLevelVersion(env *Env, moduleID string) int {
	data, err := os.ReadFile(config.LowLevelJSONPath(env.ProjectRoot, moduleID))
	if err != nil {
		return 1
	}
	var prior trace.LowLevelTrace
	if err := json.Unmarshal(data, &prior); err != nil || prior.Version < 1 {
		return 1
	}
	return prior.Version + 1
}

func loadExistingHighLevel(env *Env) *trace.HighLevelTrace {
	data, err := os.ReadFile(config.HighLevelJSONPath(env.ProjectRoot))
	if err != nil {
		return nil
	}
	var prior trace.HighLevelTrace
	if err := json.Unmarshal(data, &prior); err != nil || prior.Version < 1 {
		return nil
	}
	return &prior
}

func persistLowLevel(env *Env, hist *history.Store, ll *trace.LowLevelTrace, start time.Time) error {
	prior, _ := os.ReadFile(config.LowLevelJSONPath(env.ProjectRoot, ll.ModuleID))

	if err := os.MkdirAll(config.LowLevelDir(env.ProjectRoot), 0755); err != nil {
		return fmt.Errorf("creating low-level directory: %w", err)
	}

	data, err := json.MarshalIndent(ll, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling low-level trace: %w", err)
	}
	if err := os.WriteFile(config.LowLevelJSONPath(env.ProjectRoot, ll.ModuleID), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing low-level trace: %w", err)
	}
	if err := os.WriteFile(config.LowLevelMarkdownPath(env.ProjectRoot, ll.ModuleID),
		[]byte(markdown.RenderLowLevel(ll)), 0644); err != nil {
		return fmt.Errorf("writing low-level document: %w", err)
	}

	logHistory(env, hist, "low-level/"+ll.ModuleID, ll.Version, ll.LastGenerated, start, prior)
	return nil
}

func persistHighLevel(env *Env, hist *history.Store, hl *trace.HighLevelTrace, start time.Time) error {
	prior, _ := os.ReadFile(config.HighLevelJSONPath(env.ProjectRoot))

	if err := os.MkdirAll(config.TracesDir(env.ProjectRoot), 0755); err != nil {
		return fmt.Errorf("creating traces directory: %w", err)
	}

	data, err := json.MarshalIndent(hl, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling high-level trace: %w", err)
	}
	if err := os.WriteFile(config.HighLevelJSONPath(env.ProjectRoot), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing high-level trace: %w", err)
	}
	if err := os.WriteFile(config.HighLevelMarkdownPath(env.ProjectRoot),
		[]byte(markdown.RenderHighLevel(hl)), 0644); err != nil {
		return fmt.Errorf("writing high-level document: %w", err)
	}

	logHistory(env, hist, "high-level", hl.Version, hl.LastGenerated, start, prior)
	return nil
}

// openHistory opens the generation log; any failure disables it for the run.
func openHistory(env *Env) *history.Store {
	if !env.Settings.HistoryEnabled() {
		return nil
	}
	if err := os.MkdirAll(config.TracesDir(env.ProjectRoot), 0755); err != nil {
		return nil
	}
	hist, err := history.Open(config.HistoryDBPath(env.ProjectRoot))
	if err != nil {
		slog.Warn("generation history unavailable", "error", err)
		return nil
	}
	return hist
}

func logHistory(env *Env, hist *history.Store, traceID string, version int, generatedAt string, start time.Time, prior []byte) {
	if hist == nil {
		return
	}
	err := hist.LogGeneration(env.RunID, traceID, version, generatedAt,
		time.Since(start).Milliseconds(), prior)
	if err != nil {
		slog.Warn("recording generation history failed", "trace", traceID, "error", err)
	}
}
