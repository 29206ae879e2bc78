package markdown

import (
	"fmt"
	"strings"

	"archtrace/internal/trace"
)

// sideEffectCell marks an import with no symbols in the rendered table, since
// table cells must never be empty.
const sideEffectCell = "(side-effect)"

const lowLevelNotes = "Notes (not synced)"

// RenderLowLevel renders a low-level trace into its editable document form.
func RenderLowLevel(t *trace.LowLevelTrace) string {
	var b strings.Builder

	renderMetadata(&b, "low-level/"+t.ModuleID, t.Version, t.LastGenerated, t.GeneratedBy)
	fmt.Fprintf(&b, "\n# Low-Level Trace: %s\n", t.ModuleID)

	for _, f := range t.Files {
		fmt.Fprintf(&b, "\n## %s\n", f.FilePath)

		b.WriteString("\n### Exports\n\n")
		rows := make([][]string, len(f.Exports))
		for i, e := range f.Exports {
			rows[i] = []string{e.Symbol, string(e.Type)}
		}
		renderTable(&b, []string{"Symbol", "Type"}, rows)

		b.WriteString("\n### Imports\n\n")
		rows = make([][]string, len(f.Imports))
		for i, imp := range f.Imports {
			symbols := sideEffectCell
			if len(imp.Symbols) > 0 {
				symbols = strings.Join(imp.Symbols, ", ")
			}
			rows[i] = []string{imp.Source, symbols}
		}
		renderTable(&b, []string{"Source", "Symbols"}, rows)

		b.WriteString("\n### Calls\n\n")
		rows = make([][]string, len(f.Calls))
		for i, c := range f.Calls {
			rows[i] = []string{c.Target, c.Function, cellOrDash(c.Context)}
		}
		renderTable(&b, []string{"Target", "Function", "Context"}, rows)

		b.WriteString("\n### Events\n\n")
		rows = make([][]string, len(f.Events))
		for i, ev := range f.Events {
			rows[i] = []string{string(ev.Type), ev.EventName, cellOrDash(ev.Channel)}
		}
		renderTable(&b, []string{"Type", "Event", "Channel"}, rows)
	}

	fmt.Fprintf(&b, "\n## %s\n\n", lowLevelNotes)
	b.WriteString("Free-form notes live here and are never synchronized.\n")

	return b.String()
}

// ParsedLowLevel is the result of parsing an edited low-level document:
// the recovered entries plus every malformed row encountered.
type ParsedLowLevel struct {
	Metadata Metadata
	Files    []trace.FileEntry
	Errors   []RowError
}

// ParseLowLevel parses a low-level document back into file entries,
// excluding unsynced sections.
func ParseLowLevel(doc string) *ParsedLowLevel {
	out := &ParsedLowLevel{
		Metadata: ExtractMetadata(doc),
		Files:    []trace.FileEntry{},
	}

	lines := strings.Split(doc, "\n")
	for _, fileSec := range SplitSections(lines, 2) {
		if fileSec.Unsynced() {
			continue
		}

		entry := trace.FileEntry{
			FilePath: fileSec.Heading,
			Exports:  []trace.Export{},
			Imports:  []trace.Import{},
			Calls:    []trace.Call{},
			Events:   []trace.Event{},
		}

		for _, sub := range SplitSections(fileSec.Body, 3) {
			if sub.Unsynced() {
				continue
			}
			switch strings.ToLower(sub.Heading) {
			case "exports":
				rows, errs := ParseTable(sub.Body, 2)
				out.Errors = append(out.Errors, errs...)
				for _, r := range rows {
					entry.Exports = append(entry.Exports, trace.Export{
						Symbol: r[0], Type: trace.ExportType(r[1]),
					})
				}
			case "imports":
				rows, errs := ParseTable(sub.Body, 2)
				out.Errors = append(out.Errors, errs...)
				for _, r := range rows {
					imp := trace.Import{Source: r[0], Symbols: []string{}}
					if r[1] != sideEffectCell {
						for _, s := range strings.Split(r[1], ",") {
							if s = strings.TrimSpace(s); s != "" {
								imp.Symbols = append(imp.Symbols, s)
							}
						}
					}
					entry.Imports = append(entry.Imports, imp)
				}
			case "calls":
				rows, errs := ParseTable(sub.Body, 3)
				out.Errors = append(out.Errors, errs...)
				for _, r := range rows {
					entry.Calls = append(entry.Calls, trace.Call{
						Target: r[0], Function: r[1], Context: dashToEmpty(r[2]),
					})
				}
			case "events":
				rows, errs := ParseTable(sub.Body, 3)
				out.Errors = append(out.Errors, errs...)
				for _, r := range rows {
					entry.Events = append(entry.Events, trace.Event{
						Type: trace.EventType(r[0]), EventName: r[1], Channel: dashToEmpty(r[2]),
					})
				}
			}
		}

		out.Files = append(out.Files, entry)
	}

	return out
}
