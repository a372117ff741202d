package pipeline

import (
	"path/filepath"
	"strings"
)

// maxTableNameLen is the common identifier-length ceiling across relational
// engines.
const maxTableNameLen = 63

// SanitizeTableName derives a table name from a filename: strip the
// extension, replace every non-alphanumeric/non-underscore character with
// '_', lowercase, truncate to 63 characters. Idempotent.
func SanitizeTableName(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	out := b.String()
	if len(out) > maxTableNameLen {
		out = out[:maxTableNameLen]
	}
	if out == "" {
		out = "imported"
	}
	return out
}

// baseName returns the filename without directory or extension, for
// namespacing archive-member tables.
func BaseName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
