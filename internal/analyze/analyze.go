// Package analyze extracts exports and imports from TypeScript and JavaScript
// source text. Extraction is deliberate line and bracket scanning, not a full
// parser: it does not resolve re-exports transitively and does not follow
// dynamic module loading.
package analyze

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"archtrace/internal/trace"
)

// sourceExtensions lists the file types the analyzer understands.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

// IsSourceFile reports whether the analyzer can extract from path.
func IsSourceFile(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// AnalyzeFile extracts exports and imports from one file. A missing or
// unreadable file, or an unsupported file type, yields empty results rather
// than an error: analysis degrades, it never propagates I/O failures.
func AnalyzeFile(path string) ([]trace.Export, []trace.Import) {
	if !IsSourceFile(path) {
		return []trace.Export{}, []trace.Import{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return []trace.Export{}, []trace.Import{}
	}
	src := string(data)
	return ParseExports(src), ParseImports(src)
}

var (
	defaultImportRe   = regexp.MustCompile(`^import\s+([A-Za-z_$][\w$]*)\s*(?:,\s*(.*?))?\s+from\s+['"]([^'"]+)['"]`)
	namespaceImportRe = regexp.MustCompile(`^import\s+\*\s+as\s+([A-Za-z_$][\w$]*)\s+from\s+['"]([^'"]+)['"]`)
	namedImportRe     = regexp.MustCompile(`^import\s+(?:type\s+)?\{([^}]*)\}\s*from\s+['"]([^'"]+)['"]`)
	sideEffectRe      = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	requireRe         = regexp.MustCompile(`^(?:const|let|var)\s*\{([^}]*)\}\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)
	dynamicImportRe   = regexp.MustCompile(`^(?:const|let|var)\s*\{([^}]*)\}\s*=\s*await\s+import\(\s*['"]([^'"]+)['"]\s*\)`)
)

// ParseImports extracts import statements from source text. Side-effect
// imports yield an entry with an empty symbol list.
func ParseImports(src string) []trace.Import {
	imports := []trace.Import{}

	for _, line := range logicalLines(src) {
		switch {
		case namespaceImportRe.MatchString(line):
			m := namespaceImportRe.FindStringSubmatch(line)
			imports = append(imports, trace.Import{Source: m[2], Symbols: []string{"* as " + m[1]}})

		case namedImportRe.MatchString(line):
			m := namedImportRe.FindStringSubmatch(line)
			imports = append(imports, trace.Import{Source: m[2], Symbols: parseNamedList(m[1])})

		case defaultImportRe.MatchString(line):
			m := defaultImportRe.FindStringSubmatch(line)
			symbols := []string{m[1]}
			symbols = append(symbols, parseImportClause(m[2])...)
			imports = append(imports, trace.Import{Source: m[3], Symbols: symbols})

		case sideEffectRe.MatchString(line):
			m := sideEffectRe.FindStringSubmatch(line)
			imports = append(imports, trace.Import{Source: m[1], Symbols: []string{}})

		case requireRe.MatchString(line):
			m := requireRe.FindStringSubmatch(line)
			imports = append(imports, trace.Import{Source: m[2], Symbols: parseNamedList(m[1])})

		case dynamicImportRe.MatchString(line):
			m := dynamicImportRe.FindStringSubmatch(line)
			imports = append(imports, trace.Import{Source: m[2], Symbols: parseNamedList(m[1])})
		}
	}

	return imports
}

// parseImportClause handles the remainder after a default import: either a
// named list "{a, b}" or a namespace "* as ns".
func parseImportClause(clause string) []string {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil
	}
	if strings.HasPrefix(clause, "{") {
		return parseNamedList(strings.Trim(clause, "{}"))
	}
	if strings.HasPrefix(clause, "*") {
		return []string{clause}
	}
	return nil
}

// parseNamedList splits a named-import body into symbols, honoring "as"
// aliases (the local name wins) and dropping "type" qualifiers.
func parseNamedList(body string) []string {
	var symbols []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.TrimSpace(strings.TrimPrefix(part, "type "))
		if idx := strings.Index(part, " as "); idx >= 0 {
			part = strings.TrimSpace(part[idx+len(" as "):])
		}
		if part != "" {
			symbols = append(symbols, part)
		}
	}
	return symbols
}

var (
	exportFuncRe      = regexp.MustCompile(`^export\s+(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`)
	exportClassRe     = regexp.MustCompile(`^export\s+(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`)
	exportInterfaceRe = regexp.MustCompile(`^export\s+interface\s+([A-Za-z_$][\w$]*)`)
	exportTypeRe      = regexp.MustCompile(`^export\s+type\s+([A-Za-z_$][\w$]*)\s*(?:<[^=]*)?=`)
	exportEnumRe      = regexp.MustCompile(`^export\s+(?:const\s+)?enum\s+([A-Za-z_$][\w$]*)`)
	exportConstRe     = regexp.MustCompile(`^export\s+(?:const|let)\s+([A-Za-z_$][\w$]*)`)
	exportDefaultRe   = regexp.MustCompile(`^export\s+default\b`)
	reExportNamedRe   = regexp.MustCompile(`^export\s+\{([^}]*)\}`)
	reExportNSRe      = regexp.MustCompile(`^export\s+\*\s+as\s+([A-Za-z_$][\w$]*)\s+from`)
	reExportAllRe     = regexp.MustCompile(`^export\s+\*\s+from`)
)

// ParseExports extracts exported symbols from source text, deduplicating
// repeated names (first occurrence wins).
func ParseExports(src string) []trace.Export {
	exports := []trace.Export{}
	seen := map[string]bool{}

	add := func(symbol string, typ trace.ExportType) {
		if symbol == "" || seen[symbol] {
			return
		}
		seen[symbol] = true
		exports = append(exports, trace.Export{Symbol: symbol, Type: typ})
	}

	for _, line := range logicalLines(src) {
		switch {
		case exportFuncRe.MatchString(line):
			add(exportFuncRe.FindStringSubmatch(line)[1], trace.ExportFunction)

		case exportClassRe.MatchString(line):
			add(exportClassRe.FindStringSubmatch(line)[1], trace.ExportClass)

		case exportInterfaceRe.MatchString(line):
			add(exportInterfaceRe.FindStringSubmatch(line)[1], trace.ExportInterface)

		case exportTypeRe.MatchString(line):
			add(exportTypeRe.FindStringSubmatch(line)[1], trace.ExportTypeAlias)

		case exportEnumRe.MatchString(line):
			add(exportEnumRe.FindStringSubmatch(line)[1], trace.ExportEnum)

		case exportConstRe.MatchString(line):
			// Covers plain consts and enum-like object factories
			// (export const Color = { ... } as const).
			add(exportConstRe.FindStringSubmatch(line)[1], trace.ExportConst)

		case exportDefaultRe.MatchString(line):
			add("default", trace.ExportDefault)

		case reExportNSRe.MatchString(line):
			add(reExportNSRe.FindStringSubmatch(line)[1], trace.ExportConst)

		case reExportNamedRe.MatchString(line):
			for _, sym := range parseNamedList(reExportNamedRe.FindStringSubmatch(line)[1]) {
				add(sym, trace.ExportConst)
			}

		case reExportAllRe.MatchString(line):
			// Wildcard re-exports carry no resolvable symbols.
		}
	}

	return exports
}

// logicalLines yields trimmed source lines with comments stripped and
// brace-continued import/export statements accumulated into one line.
func logicalLines(src string) []string {
	var out []string
	var pending strings.Builder
	depth := 0
	inBlockComment := false

	for _, raw := range strings.Split(src, "\n") {
		line := raw

		if inBlockComment {
			end := strings.Index(line, "*/")
			if end < 0 {
				continue
			}
			line = line[end+2:]
			inBlockComment = false
		}
		if start := strings.Index(line, "/*"); start >= 0 {
			end := strings.Index(line[start:], "*/")
			if end < 0 {
				line = line[:start]
				inBlockComment = true
			} else {
				line = line[:start] + line[start+end+2:]
			}
		}
		line = strings.TrimSpace(line)
		// Whole commented lines only; a trailing "//" may sit inside a
		// string literal, so it is left alone.
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if depth > 0 {
			pending.WriteString(" ")
			pending.WriteString(line)
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth <= 0 {
				out = append(out, pending.String())
				pending.Reset()
				depth = 0
			}
			continue
		}

		// Only import/export statements accumulate across lines; anything
		// else is scanned line by line.
		if (strings.HasPrefix(line, "import") || strings.HasPrefix(line, "export")) &&
			strings.Count(line, "{") > strings.Count(line, "}") {
			pending.WriteString(line)
			depth = strings.Count(line, "{") - strings.Count(line, "}")
			continue
		}

		out = append(out, line)
	}

	if pending.Len() > 0 {
		out = append(out, pending.String())
	}

	return out
}
