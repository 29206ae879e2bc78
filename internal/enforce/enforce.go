// Package enforce implements the hook-invoked gates that keep edits and
// commits honest against trace freshness. Both gates fail open: enforcement
// must never be the reason an unrelated operation cannot run.
package enforce

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"archtrace/internal/config"
	"archtrace/internal/globmatch"
	"archtrace/internal/gitio"
	"archtrace/internal/session"
	"archtrace/internal/stale"
)

// ToolInput is the tool-specific part of a hook call envelope.
type ToolInput struct {
	FilePath string `json:"file_path"`
	Command  string `json:"command"`
}

// Envelope is the call payload the hook harness delivers on stdin.
type Envelope struct {
	SessionID string    `json:"session_id"`
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
}

// ParseEnvelope decodes a hook envelope. Callers treat a failure as allow.
func ParseEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding hook envelope: %w", err)
	}
	return &env, nil
}

// Decision is a gate outcome. Message carries diagnostics for the user,
// delivered separately from the allow/block signal.
type Decision struct {
	Block   bool
	Message string
}

func allow(message string) Decision {
	return Decision{Message: message}
}

func blocked(message string) Decision {
	return Decision{Block: true, Message: message}
}

// CheckEdit gates a file edit on its module's trace having been read
// recently enough in the current session.
func CheckEdit(projectRoot string, env *Envelope, now time.Time) Decision {
	if env == nil || env.ToolInput.FilePath == "" {
		return allow("")
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		// No config means no trace system to enforce.
		return allow("")
	}

	rel := relativize(projectRoot, env.ToolInput.FilePath)
	mod := config.ResolveModule(cfg, rel)
	if mod == nil {
		return allow(fmt.Sprintf("note: %s is not covered by any traced module", rel))
	}

	settings, err := config.LoadSettings(projectRoot)
	if err != nil {
		return allow("")
	}
	ttl := settings.ReadTTL()

	st := session.Load(config.ReadStatePath(projectRoot), env.SessionID)
	tracePath := filepath.ToSlash(filepath.Join("traces", "low-level", mod.ID+".md"))

	readAt, ok := st.LastRead(mod.ID)
	if !ok {
		return blocked(fmt.Sprintf(
			"edit blocked: the trace for module %q has not been read in this session.\n"+
				"Read %s (or traces/high-level.md) first, then retry.",
			mod.ID, tracePath))
	}

	if elapsed := now.Sub(readAt); elapsed > ttl {
		return blocked(fmt.Sprintf(
			"edit blocked: the trace for module %q was read %s ago, past the %s limit.\n"+
				"Re-read %s (or traces/high-level.md), then retry.",
			mod.ID, elapsed.Truncate(time.Second), ttl, tracePath))
	}

	return allow("")
}

// CheckCommit gates a git commit on the traces of every touched module being
// fresh. Commands that are not commits, and staged files outside every
// module, never block.
func CheckCommit(projectRoot string, env *Envelope) Decision {
	if env == nil || !IsCommitCommand(env.ToolInput.Command) {
		return allow("")
	}

	cfg, err := config.Load(projectRoot)
	if err != nil {
		return allow("")
	}

	staged, err := gitio.StagedFiles(projectRoot)
	if err != nil || len(staged) == 0 {
		return allow("")
	}

	staleIDs := stale.StaleModules(projectRoot, cfg, staged)
	if len(staleIDs) == 0 {
		return allow("")
	}

	var b strings.Builder
	b.WriteString("commit blocked: stale traces for staged changes:\n")
	for _, id := range staleIDs {
		fmt.Fprintf(&b, "  - %s (run: archtrace generate --module %s)\n", id, id)
	}
	return blocked(b.String())
}

// IsCommitCommand reports whether a shell command textually denotes a git
// commit, including amends and commits buried in chained commands.
func IsCommitCommand(command string) bool {
	for _, segment := range splitChained(command) {
		fields := strings.Fields(segment)
		if len(fields) < 2 || fields[0] != "git" {
			continue
		}
		for _, f := range fields[1:] {
			if f == "commit" {
				return true
			}
		}
	}
	return false
}

// splitChained breaks a shell command at &&, ||, ; and | boundaries.
func splitChained(command string) []string {
	return strings.FieldsFunc(command, func(r rune) bool {
		return r == ';' || r == '&' || r == '|'
	})
}

// RecordRead marks a module's trace as read now for the session.
func RecordRead(projectRoot, sessionID, moduleID string, now time.Time) error {
	return session.Record(config.ReadStatePath(projectRoot), sessionID, moduleID, now)
}

// relativize maps an absolute edited path under the project root to its
// repo-relative form; anything else passes through normalized.
func relativize(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(projectRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return globmatch.NormalizePath(filepath.ToSlash(path))
}
