// Package bootstrap infers an initial module configuration from directory
// conventions when a project has no trace config yet.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"archtrace/internal/config"
)

// Result describes the synthesized configuration. ReviewNeeded is always set
// on success: inferred module boundaries are a starting point, not a truth.
type Result struct {
	Modules      []config.ModuleConfig
	ConfigPath   string
	ReviewNeeded bool
}

// Bootstrap scans the project for conventional app, package, and script
// directories, synthesizes one module per discovery, and writes the config.
// It refuses to run when a config already exists.
func Bootstrap(projectRoot string) (*Result, error) {
	configPath := config.ConfigPath(projectRoot)
	if _, err := os.Stat(configPath); err == nil {
		return nil, fmt.Errorf("trace config already exists at %s; refusing to overwrite", configPath)
	}

	var modules []config.ModuleConfig
	modules = append(modules, scanGroup(projectRoot, "apps", "")...)
	modules = append(modules, scanGroup(projectRoot, "packages", "pkg-")...)

	if dirExists(filepath.Join(projectRoot, "scripts")) {
		modules = append(modules, config.ModuleConfig{
			ID:          "scripts",
			Name:        "Scripts",
			Description: "Tooling and automation scripts",
			FileGlobs:   []string{"scripts/**"},
		})
	}

	// Fall back to a single generic source module only when no convention hit.
	if len(modules) == 0 && dirExists(filepath.Join(projectRoot, "src")) {
		modules = append(modules, config.ModuleConfig{
			ID:          "src",
			Name:        "Source",
			Description: "Project source",
			FileGlobs:   []string{"src/**"},
		})
	}

	if len(modules) == 0 {
		return nil, fmt.Errorf("no conventional source directories found under %s (looked for apps/, packages/, scripts/, src/)", projectRoot)
	}

	cfg := &config.TraceConfig{
		Version:     1,
		ProjectRoot: ".",
		Modules:     modules,
	}
	if err := config.Save(projectRoot, cfg); err != nil {
		return nil, err
	}

	return &Result{
		Modules:      modules,
		ConfigPath:   configPath,
		ReviewNeeded: true,
	}, nil
}

// scanGroup turns each visible subdirectory of groupDir into one module with
// a single glob, prefixing ids to keep them unique across groups.
func scanGroup(projectRoot, groupDir, idPrefix string) []config.ModuleConfig {
	entries, err := os.ReadDir(filepath.Join(projectRoot, groupDir))
	if err != nil {
		return nil
	}

	var modules []config.ModuleConfig
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		modules = append(modules, config.ModuleConfig{
			ID:          idPrefix + e.Name(),
			Name:        humanize(e.Name()),
			Description: fmt.Sprintf("Inferred from %s/%s", groupDir, e.Name()),
			FileGlobs:   []string{groupDir + "/" + e.Name() + "/**"},
		})
	}
	return modules
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// humanize derives a display name from a directory name: "design-system"
// becomes "Design System".
func humanize(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
