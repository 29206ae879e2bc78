// Package markdown renders canonical traces into hand-editable documents and
// parses edited documents back. Render and Parse are inverse transforms over
// the in-memory trace structures; everything outside tables and key-value
// lines, and every "(not synced)" section, is free text the sync protocol
// never touches.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// noDataPlaceholder stands in for an empty table.
const noDataPlaceholder = "*None*"

// unsyncedMarker flags a section excluded from parsing and diffing.
const unsyncedMarker = "(not synced)"

// Metadata is the document header, four independently matched fields.
// A missing or non-integer trace-version leaves Version nil.
type Metadata struct {
	TraceID       string
	Version       *int
	LastGenerated string
	GeneratedBy   string
}

var (
	metaIDRe        = regexp.MustCompile(`<!--\s*trace-id:\s*(.*?)\s*-->`)
	metaVersionRe   = regexp.MustCompile(`<!--\s*trace-version:\s*(.*?)\s*-->`)
	metaGeneratedRe = regexp.MustCompile(`<!--\s*last-generated:\s*(.*?)\s*-->`)
	metaByRe        = regexp.MustCompile(`<!--\s*generated-by:\s*(.*?)\s*-->`)
)

// ExtractMetadata pulls header fields from a document, tolerating any subset
// being absent.
func ExtractMetadata(doc string) Metadata {
	var md Metadata
	if m := metaIDRe.FindStringSubmatch(doc); m != nil {
		md.TraceID = m[1]
	}
	if m := metaVersionRe.FindStringSubmatch(doc); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			md.Version = &v
		}
	}
	if m := metaGeneratedRe.FindStringSubmatch(doc); m != nil {
		md.LastGenerated = m[1]
	}
	if m := metaByRe.FindStringSubmatch(doc); m != nil {
		md.GeneratedBy = m[1]
	}
	return md
}

func renderMetadata(b *strings.Builder, traceID string, version int, lastGenerated, generatedBy string) {
	fmt.Fprintf(b, "<!-- trace-id: %s -->\n", traceID)
	fmt.Fprintf(b, "<!-- trace-version: %d -->\n", version)
	fmt.Fprintf(b, "<!-- last-generated: %s -->\n", lastGenerated)
	fmt.Fprintf(b, "<!-- generated-by: %s -->\n", generatedBy)
}

// Section is one heading-delimited block of a document.
type Section struct {
	Heading string
	Body    []string
}

// Unsynced reports whether the section is excluded from parsing and diffing.
func (s Section) Unsynced() bool {
	return strings.Contains(strings.ToLower(s.Heading), unsyncedMarker)
}

// SplitSections divides lines into ordered sections at the given heading
// depth. Content before the first heading is discarded, and a shallower
// heading terminates the current section even without another heading at the
// requested depth.
func SplitSections(lines []string, depth int) []Section {
	prefix := strings.Repeat("#", depth) + " "
	var sections []Section
	var current *Section

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.HasPrefix(trimmed, prefix) {
			sections = append(sections, Section{Heading: strings.TrimSpace(trimmed[len(prefix):])})
			current = &sections[len(sections)-1]
			continue
		}
		if isShallowerHeading(trimmed, depth) {
			current = nil
			continue
		}
		if current != nil {
			current.Body = append(current.Body, line)
		}
	}

	return sections
}

func isShallowerHeading(line string, depth int) bool {
	for d := 1; d < depth; d++ {
		if strings.HasPrefix(line, strings.Repeat("#", d)+" ") {
			return true
		}
	}
	return false
}

// RowError is a structured per-line parse failure; malformed rows are
// collected, never thrown.
type RowError struct {
	Line    string
	Message string
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s: %q", e.Message, e.Line)
}

var emphasisOnlyRe = regexp.MustCompile(`^(\*[^*]+\*|_[^_]+_)$`)

// isNoData reports lines that mean "no entries" rather than malformed data:
// blanks, an explicit none placeholder, and emphasis-only lines.
func isNoData(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.EqualFold(trimmed, "none") {
		return true
	}
	return emphasisOnlyRe.MatchString(trimmed)
}

// isSeparatorRow reports the |---|---| divider under a table header.
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// ParseRow splits a delimited table line into trimmed cells. Wrong cell count
// or any empty cell is a RowError.
func ParseRow(line string, nFields int) ([]string, *RowError) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "|")
	trimmed = strings.TrimSuffix(trimmed, "|")

	parts := strings.Split(trimmed, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}

	if len(cells) != nFields {
		return nil, &RowError{Line: line,
			Message: fmt.Sprintf("expected %d fields, got %d", nFields, len(cells))}
	}
	for i, c := range cells {
		if c == "" {
			return nil, &RowError{Line: line,
				Message: fmt.Sprintf("field %d is empty", i+1)}
		}
	}

	return cells, nil
}

// ParseTable applies row parsing to a section body: the first table row is
// the header and is skipped, separator and no-data lines are ignored, and
// malformed rows are accumulated as errors alongside the good entries.
func ParseTable(body []string, nFields int) (entries [][]string, errs []RowError) {
	headerSeen := false

	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if isNoData(trimmed) || !strings.HasPrefix(trimmed, "|") {
			continue
		}

		if !headerSeen {
			headerSeen = true
			continue
		}

		raw := strings.Split(strings.TrimSuffix(strings.TrimPrefix(trimmed, "|"), "|"), "|")
		if isSeparatorRow(raw) {
			continue
		}

		cells, rowErr := ParseRow(line, nFields)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		entries = append(entries, cells)
	}

	return entries, errs
}

// renderTable writes a header row plus one row per entry, or the no-data
// placeholder when the table is empty.
func renderTable(b *strings.Builder, header []string, rows [][]string) {
	if len(rows) == 0 {
		b.WriteString(noDataPlaceholder + "\n")
		return
	}

	writeRow := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" " + c + " |")
		}
		b.WriteString("\n")
	}

	writeRow(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
}

// cellOrDash renders an empty canonical value as "-" so that rows never carry
// empty cells; dashToEmpty is its inverse.
func cellOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func dashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
