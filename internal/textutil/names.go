package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FirstName returns the first whitespace-delimited word of a display name.
func FirstName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// NameFromEmail derives a readable name from the local part of an address,
// e.g. "jane.doe@example.com" becomes "Jane Doe".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return strings.TrimSpace(local)
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

// Truncate shortens value to at most limit runes. Non-positive limits return
// the input unchanged.
func Truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	count := 0
	for idx := range value {
		if count == limit {
			return value[:idx]
		}
		count++
	}
	return value
}
