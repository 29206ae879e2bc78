package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"archtrace/internal/trace"
)

const highLevelNotes = "Notes (not synced)"

var edgeHeader = []string{"Target", "Relationship", "Description"}

// RenderHighLevel renders the module dependency graph into its editable
// document form: one section per module with identity lines and edge tables.
func RenderHighLevel(t *trace.HighLevelTrace) string {
	var b strings.Builder

	renderMetadata(&b, "high-level", t.Version, t.LastGenerated, t.GeneratedBy)
	b.WriteString("\n# High-Level Trace\n")

	for _, mod := range t.Modules {
		fmt.Fprintf(&b, "\n## %s\n\n", mod.Name)
		fmt.Fprintf(&b, "**ID**: %s\n", mod.ID)
		fmt.Fprintf(&b, "**Description**: %s\n", cellOrDash(mod.Description))

		globs := make([]string, len(mod.FileGlobs))
		for i, g := range mod.FileGlobs {
			globs[i] = "`" + g + "`"
		}
		fmt.Fprintf(&b, "**File Globs**: %s\n", strings.Join(globs, ", "))

		b.WriteString("\n### Dependencies\n\n")
		renderTable(&b, edgeHeader, edgeRows(mod.Dependencies))

		b.WriteString("\n### Dependents\n\n")
		renderTable(&b, edgeHeader, edgeRows(mod.Dependents))
	}

	fmt.Fprintf(&b, "\n## %s\n\n", highLevelNotes)
	b.WriteString("Free-form notes live here and are never synchronized.\n")

	return b.String()
}

func edgeRows(edges []trace.Edge) [][]string {
	rows := make([][]string, len(edges))
	for i, e := range edges {
		rows[i] = []string{e.TargetID, string(e.RelationshipType), cellOrDash(e.Description)}
	}
	return rows
}

// ParsedHighLevel is the result of parsing an edited high-level document.
type ParsedHighLevel struct {
	Metadata Metadata
	Modules  []trace.ModuleNode
	Errors   []RowError
}

var keyValueRe = regexp.MustCompile(`^\*\*(ID|Description|File Globs)\*\*:\s*(.*)$`)

// ParseHighLevel parses a high-level document back into module nodes,
// excluding unsynced sections.
func ParseHighLevel(doc string) *ParsedHighLevel {
	out := &ParsedHighLevel{
		Metadata: ExtractMetadata(doc),
		Modules:  []trace.ModuleNode{},
	}

	lines := strings.Split(doc, "\n")
	for _, modSec := range SplitSections(lines, 2) {
		if modSec.Unsynced() {
			continue
		}

		node := trace.ModuleNode{
			Name:         modSec.Heading,
			FileGlobs:    []string{},
			Dependencies: []trace.Edge{},
			Dependents:   []trace.Edge{},
		}

		for _, line := range modSec.Body {
			m := keyValueRe.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			switch m[1] {
			case "ID":
				node.ID = strings.TrimSpace(m[2])
			case "Description":
				node.Description = dashToEmpty(strings.TrimSpace(m[2]))
			case "File Globs":
				for _, g := range strings.Split(m[2], ",") {
					g = strings.Trim(strings.TrimSpace(g), "`")
					if g != "" {
						node.FileGlobs = append(node.FileGlobs, g)
					}
				}
			}
		}

		for _, sub := range SplitSections(modSec.Body, 3) {
			if sub.Unsynced() {
				continue
			}
			switch strings.ToLower(sub.Heading) {
			case "dependencies":
				edges, errs := parseEdgeTable(sub.Body)
				out.Errors = append(out.Errors, errs...)
				node.Dependencies = edges
			case "dependents":
				edges, errs := parseEdgeTable(sub.Body)
				out.Errors = append(out.Errors, errs...)
				node.Dependents = edges
			}
		}

		out.Modules = append(out.Modules, node)
	}

	return out
}

func parseEdgeTable(body []string) ([]trace.Edge, []RowError) {
	rows, errs := ParseTable(body, 3)
	edges := make([]trace.Edge, len(rows))
	for i, r := range rows {
		edges[i] = trace.Edge{
			TargetID:         r[0],
			RelationshipType: trace.RelationshipType(r[1]),
			Description:      dashToEmpty(r[2]),
		}
	}
	return edges, errs
}
