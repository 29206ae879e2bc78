// Package config provides the trace configuration model and module resolution
// via ordered path glob rules.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"archtrace/internal/globmatch"
)

// ModuleConfig defines a module with its ordered path patterns.
type ModuleConfig struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FileGlobs   []string `json:"fileGlobs"`
}

// TraceConfig holds the full trace configuration. Modules is an ordered list:
// the first module whose globs match a path owns it.
type TraceConfig struct {
	Version     int            `json:"version"`
	ProjectRoot string         `json:"projectRoot"`
	Modules     []ModuleConfig `json:"modules"`
}

// Load reads and validates the trace configuration for a project root.
func Load(projectRoot string) (*TraceConfig, error) {
	data, err := os.ReadFile(ConfigPath(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("reading trace config: %w", err)
	}

	var cfg TraceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing trace config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to its fixed location, creating directories.
func Save(projectRoot string, cfg *TraceConfig) error {
	if err := os.MkdirAll(TracesDir(projectRoot), 0755); err != nil {
		return fmt.Errorf("creating traces directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trace config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(projectRoot), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing trace config: %w", err)
	}
	return nil
}

// Validate checks structural invariants, naming the offending field.
func (c *TraceConfig) Validate() error {
	if c.Version <= 0 {
		return fmt.Errorf("trace config: missing or invalid field %q", "version")
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("trace config: field %q must list at least one module", "modules")
	}

	seen := make(map[string]bool, len(c.Modules))
	for i, mod := range c.Modules {
		if mod.ID == "" {
			return fmt.Errorf("trace config: modules[%d] missing field %q", i, "id")
		}
		if seen[mod.ID] {
			return fmt.Errorf("trace config: duplicate module id %q", mod.ID)
		}
		seen[mod.ID] = true
		if len(mod.FileGlobs) == 0 {
			return fmt.Errorf("trace config: module %q missing field %q", mod.ID, "fileGlobs")
		}
	}

	return nil
}

// Module returns the module with the given id, or nil.
func (c *TraceConfig) Module(id string) *ModuleConfig {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i]
		}
	}
	return nil
}

// ModuleIDs returns the ids of all configured modules in declaration order.
func (c *TraceConfig) ModuleIDs() []string {
	ids := make([]string, len(c.Modules))
	for i, mod := range c.Modules {
		ids[i] = mod.ID
	}
	return ids
}

// ResolveModule maps a repo-relative path to its owning module: the first
// module in declaration order whose glob set matches. Tolerates leading "./"
// and "/" on the path. Returns nil for an unmatched path or nil config; it
// never fails, since resolution is advisory.
func ResolveModule(cfg *TraceConfig, path string) *ModuleConfig {
	if cfg == nil || path == "" {
		return nil
	}

	path = globmatch.NormalizePath(path)
	for i := range cfg.Modules {
		if globmatch.MatchAny(cfg.Modules[i].FileGlobs, path) {
			return &cfg.Modules[i]
		}
	}
	return nil
}

// DefaultReadTTL is how long a recorded trace read stays valid for edit gating.
const DefaultReadTTL = 5 * time.Minute

// Settings holds optional enforcement tuning, loaded from traces/settings.yaml.
type Settings struct {
	ReadTTLSeconds int   `yaml:"readTtlSeconds"`
	History        *bool `yaml:"history"`
}

// LoadSettings reads the optional settings file. A missing file yields
// defaults; a malformed file is an error so typos do not silently change
// enforcement behavior.
func LoadSettings(projectRoot string) (*Settings, error) {
	data, err := os.ReadFile(SettingsPath(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	return &s, nil
}

// ReadTTL returns the configured read time-to-live, or the default.
func (s *Settings) ReadTTL() time.Duration {
	if s != nil && s.ReadTTLSeconds > 0 {
		return time.Duration(s.ReadTTLSeconds) * time.Second
	}
	return DefaultReadTTL
}

// HistoryEnabled reports whether the generation history log should be kept.
func (s *Settings) HistoryEnabled() bool {
	if s != nil && s.History != nil {
		return *s.History
	}
	return true
}
