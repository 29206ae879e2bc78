// Package globmatch provides path pattern matching for module file globs.
package globmatch

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether path matches pattern.
//
// A pattern is a comma-separated list of alternatives; each alternative uses
// doublestar syntax (`*` matches within a path segment, `**` across segments,
// `?` a single non-separator character, `\` escapes the next character). An
// alternative matches either the whole path or any suffix beginning at a `/`
// boundary. Match is total: malformed patterns and empty inputs report false.
func Match(pattern, path string) bool {
	if pattern == "" || path == "" {
		return false
	}

	path = NormalizePath(path)
	if path == "" {
		return false
	}

	for _, alt := range splitAlternatives(pattern) {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		if ok, err := doublestar.Match(alt, path); err == nil && ok {
			return true
		}
		// Anchor at any directory boundary: "src/**" should also match
		// "packages/app/src/main.ts".
		if !strings.HasPrefix(alt, "**/") {
			if ok, err := doublestar.Match("**/"+alt, path); err == nil && ok {
				return true
			}
		}
	}

	return false
}

// MatchAny reports whether path matches any pattern in the ordered glob set.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if Match(p, path) {
			return true
		}
	}
	return false
}

// NormalizePath strips leading "./" and "/" so that repo-relative paths
// compare equally regardless of how the caller spelled them.
func NormalizePath(path string) string {
	for {
		switch {
		case strings.HasPrefix(path, "./"):
			path = path[2:]
		case strings.HasPrefix(path, "/"):
			path = path[1:]
		default:
			return path
		}
	}
}

// splitAlternatives splits a pattern on unescaped commas.
func splitAlternatives(pattern string) []string {
	var alts []string
	var cur strings.Builder
	escaped := false

	for _, r := range pattern {
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			alts = append(alts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	alts = append(alts, cur.String())

	return alts
}
