package util

import "strings"

// SanitizePostgresText strips null bytes and invalid UTF-8 so arbitrary
// dataset values can be stored in text columns.
func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLikePattern escapes LIKE/ILIKE metacharacters so the value matches as
// a literal substring when embedded in a pattern.
func EscapeLikePattern(value string) string {
	return likeEscaper.Replace(value)
}
