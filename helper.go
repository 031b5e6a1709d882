// FILE: lixenwraith/layerconf/helper.go
package layerconf

import (
	"strings"
)

// isValidKeySegment checks if a single path segment is a valid TOML bare key.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	// TOML bare keys are sequences of ASCII letters, ASCII digits, underscores, and dashes (A-Za-z0-9_-).
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isUnderscore := r == '_'
		isDash := r == '-'

		if !(isLetter || isDigit || isUnderscore || isDash) {
			return false
		}
	}
	return true
}

// tomlKey returns s as a bare key when possible, quoted otherwise.
func tomlKey(s string) string {
	if isValidKeySegment(s) {
		return s
	}
	return quoteString(s)
}

// quoteString renders s as a TOML basic string.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// splitList splits a CLI or environment value into vector elements.
// Surrounding whitespace is trimmed and empty elements are dropped.
func splitList(s, sep string) []string {
	if sep == "" {
		sep = DefaultSeparator
	}
	var parts []string
	if strings.TrimSpace(sep) == "" {
		parts = strings.Fields(s)
	} else {
		parts = strings.Split(s, sep)
	}
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// flagName builds the CLI flag name for a leaf path relative to its command.
// Nested struct segments are joined with dots, e.g. "server.port".
func flagName(rel Path) string {
	return strings.Join(rel, ".")
}
