// Package syncer reconciles hand-edited trace documents with their canonical
// JSON counterparts, detecting conflicting concurrent edits.
package syncer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"lukechampine.com/blake3"

	"archtrace/internal/config"
	"archtrace/internal/markdown"
	"archtrace/internal/trace"
)

// Options selects the sync mode. Force applies the document even over
// conflicts; DryRun computes the full report without writing anything.
type Options struct {
	DryRun bool
	Force  bool
}

// Change records one applied (or, under dry-run, computable) field update.
type Change struct {
	TraceID  string `json:"traceId"`
	EntityID string `json:"entityId"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Diff     string `json:"diff"`
}

// Conflict records a field that differs while the document was edited
// against an older generation of the canonical data.
type Conflict struct {
	TraceID   string `json:"traceId"`
	EntityID  string `json:"entityId"`
	Field     string `json:"field"`
	Canonical string `json:"canonical"`
	Document  string `json:"document"`
}

// Report is the outcome of one sync run.
type Report struct {
	FilesUpdated int        `json:"filesUpdated"`
	Changes      []Change   `json:"changes"`
	Errors       []string   `json:"errors"`
	Conflicts    []Conflict `json:"conflicts"`
	Skipped      []string   `json:"skipped"`
	Summary      string     `json:"summary"`
}

// Sync scans every canonical/document pair under the project's traces
// directory and reconciles them. The document wins for non-conflicting
// differing fields; updates replace whole lists.
func Sync(projectRoot string, opts Options) (*Report, error) {
	r := &Report{
		Changes:   []Change{},
		Errors:    []string{},
		Conflicts: []Conflict{},
		Skipped:   []string{},
	}

	scanned := 0
	if hasPair(config.HighLevelJSONPath(projectRoot), config.HighLevelMarkdownPath(projectRoot)) {
		scanned++
		if err := syncHighLevel(projectRoot, opts, r); err != nil {
			return nil, err
		}
	}

	ids, err := lowLevelIDs(projectRoot)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		scanned++
		if err := syncLowLevel(projectRoot, id, opts, r); err != nil {
			return nil, err
		}
	}

	prefix := ""
	if opts.DryRun {
		prefix = "[dry-run] "
	}
	r.Summary = fmt.Sprintf("%s%d files scanned, %d updated, %d fields changed, %d conflicts, %d errors, %d skipped",
		prefix, scanned, r.FilesUpdated, len(r.Changes), len(r.Conflicts), len(r.Errors), len(r.Skipped))

	return r, nil
}

func hasPair(jsonPath, mdPath string) bool {
	if _, err := os.Stat(jsonPath); err != nil {
		return false
	}
	_, err := os.Stat(mdPath)
	return err == nil
}

// lowLevelIDs lists module ids with both trace representations on disk.
func lowLevelIDs(projectRoot string) ([]string, error) {
	entries, err := os.ReadDir(config.LowLevelDir(projectRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning low-level traces: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if hasPair(config.LowLevelJSONPath(projectRoot, id), config.LowLevelMarkdownPath(projectRoot, id)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func syncHighLevel(projectRoot string, opts Options, r *Report) error {
	data, err := os.ReadFile(config.HighLevelJSONPath(projectRoot))
	if err != nil {
		return fmt.Errorf("reading high-level trace: %w", err)
	}
	var canonical trace.HighLevelTrace
	if err := json.Unmarshal(data, &canonical); err != nil {
		return fmt.Errorf("parsing high-level trace: %w", err)
	}

	doc, err := os.ReadFile(config.HighLevelMarkdownPath(projectRoot))
	if err != nil {
		return fmt.Errorf("reading high-level document: %w", err)
	}
	parsed := markdown.ParseHighLevel(string(doc))
	for _, re := range parsed.Errors {
		r.Errors = append(r.Errors, "high-level: "+re.Error())
	}

	conflictable := !opts.Force && canonical.LastGenerated != parsed.Metadata.LastGenerated
	docByID := make(map[string]*trace.ModuleNode, len(parsed.Modules))
	for i := range parsed.Modules {
		docByID[parsed.Modules[i].ID] = &parsed.Modules[i]
	}
	known := make(map[string]bool, len(canonical.Modules))

	dirty := false
	for i := range canonical.Modules {
		mod := &canonical.Modules[i]
		known[mod.ID] = true
		edited, ok := docByID[mod.ID]
		if !ok {
			continue
		}

		fields := []fieldSync{
			scalarField("description", &mod.Description, edited.Description,
				fmt.Sprintf("Updated description in %s", mod.ID)),
			listField("dependencies", &mod.Dependencies, edited.Dependencies,
				fmt.Sprintf("Updated %d dependencies in %s (was %d)",
					len(edited.Dependencies), mod.ID, len(mod.Dependencies))),
			listField("dependents", &mod.Dependents, edited.Dependents,
				fmt.Sprintf("Updated %d dependents in %s (was %d)",
					len(edited.Dependents), mod.ID, len(mod.Dependents))),
		}
		dirty = applyFields("high-level", mod.ID, fields, conflictable, r) || dirty
	}

	for _, edited := range parsed.Modules {
		if !known[edited.ID] {
			r.Skipped = append(r.Skipped,
				fmt.Sprintf("high-level: module %q exists only in the document", edited.ID))
		}
	}

	if dirty && !opts.DryRun {
		// An edit can smuggle in an invalid relationship type; refuse to
		// persist a canonical trace that no longer validates.
		if v := trace.ValidateHighLevel(&canonical); !v.Valid {
			for _, msg := range v.Errors {
				r.Errors = append(r.Errors, "high-level: "+msg)
			}
			return nil
		}
		if err := writeJSON(config.HighLevelJSONPath(projectRoot), &canonical); err != nil {
			return err
		}
		r.FilesUpdated++
	}
	return nil
}

func syncLowLevel(projectRoot, moduleID string, opts Options, r *Report) error {
	data, err := os.ReadFile(config.LowLevelJSONPath(projectRoot, moduleID))
	if err != nil {
		return fmt.Errorf("reading low-level trace %s: %w", moduleID, err)
	}
	var canonical trace.LowLevelTrace
	if err := json.Unmarshal(data, &canonical); err != nil {
		return fmt.Errorf("parsing low-level trace %s: %w", moduleID, err)
	}

	doc, err := os.ReadFile(config.LowLevelMarkdownPath(projectRoot, moduleID))
	if err != nil {
		return fmt.Errorf("reading low-level document %s: %w", moduleID, err)
	}
	parsed := markdown.ParseLowLevel(string(doc))
	for _, re := range parsed.Errors {
		r.Errors = append(r.Errors, moduleID+": "+re.Error())
	}

	traceID := "low-level/" + moduleID
	conflictable := !opts.Force && canonical.LastGenerated != parsed.Metadata.LastGenerated
	docByPath := make(map[string]*trace.FileEntry, len(parsed.Files))
	for i := range parsed.Files {
		docByPath[parsed.Files[i].FilePath] = &parsed.Files[i]
	}
	known := make(map[string]bool, len(canonical.Files))

	dirty := false
	for i := range canonical.Files {
		f := &canonical.Files[i]
		known[f.FilePath] = true
		edited, ok := docByPath[f.FilePath]
		if !ok {
			continue
		}

		fields := []fieldSync{
			listField("exports", &f.Exports, edited.Exports,
				fmt.Sprintf("Updated %d exports in %s (was %d)",
					len(edited.Exports), f.FilePath, len(f.Exports))),
			listField("imports", &f.Imports, edited.Imports,
				fmt.Sprintf("Updated %d imports in %s (was %d)",
					len(edited.Imports), f.FilePath, len(f.Imports))),
			listField("calls", &f.Calls, edited.Calls,
				fmt.Sprintf("Updated %d calls in %s (was %d)",
					len(edited.Calls), f.FilePath, len(f.Calls))),
			listField("events", &f.Events, edited.Events,
				fmt.Sprintf("Updated %d events in %s (was %d)",
					len(edited.Events), f.FilePath, len(f.Events))),
		}
		dirty = applyFields(traceID, f.FilePath, fields, conflictable, r) || dirty
	}

	for _, edited := range parsed.Files {
		if !known[edited.FilePath] {
			r.Skipped = append(r.Skipped,
				fmt.Sprintf("%s: file %q exists only in the document", traceID, edited.FilePath))
		}
	}

	if dirty && !opts.DryRun {
		if v := trace.ValidateLowLevel(&canonical); !v.Valid {
			for _, msg := range v.Errors {
				r.Errors = append(r.Errors, traceID+": "+msg)
			}
			return nil
		}
		if err := writeJSON(config.LowLevelJSONPath(projectRoot, moduleID), &canonical); err != nil {
			return err
		}
		r.FilesUpdated++
	}
	return nil
}

// fieldSync is one comparable unit: a canonical value, the document's value,
// and an apply that replaces the canonical value wholesale.
type fieldSync struct {
	name      string
	canonical string
	document  string
	message   string
	apply     func()
}

func scalarField(name string, canonical *string, document, message string) fieldSync {
	return fieldSync{
		name:      name,
		canonical: *canonical,
		document:  document,
		message:   message,
		apply:     func() { *canonical = document },
	}
}

func listField[T any](name string, canonical *[]T, document []T, message string) fieldSync {
	return fieldSync{
		name:      name,
		canonical: canonicalJSON(*canonical),
		document:  canonicalJSON(document),
		message:   message,
		apply:     func() { *canonical = document },
	}
}

// applyFields runs the conflict rule over an entity's fields. Equal values
// are untouched; differing values conflict when the document was edited
// against a stale generation, and are applied otherwise.
func applyFields(traceID, entityID string, fields []fieldSync, conflictable bool, r *Report) bool {
	dirty := false
	for _, f := range fields {
		if digest(f.canonical) == digest(f.document) {
			continue
		}
		if conflictable {
			r.Conflicts = append(r.Conflicts, Conflict{
				TraceID:   traceID,
				EntityID:  entityID,
				Field:     f.name,
				Canonical: f.canonical,
				Document:  f.document,
			})
			continue
		}
		f.apply()
		r.Changes = append(r.Changes, Change{
			TraceID:  traceID,
			EntityID: entityID,
			Field:    f.name,
			Message:  f.message,
			Diff:     renderDiff(f.canonical, f.document),
		})
		dirty = true
	}
	return dirty
}

func canonicalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func digest(s string) [32]byte {
	return blake3.Sum256([]byte(s))
}

func renderDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	return dmp.DiffPrettyText(dmp.DiffCleanupSemantic(diffs))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trace: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
