package storage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename normalizes an attachment filename into a safe object key
// component: diacritics stripped, lowercased, anything outside
// [a-z0-9._-] collapsed to single hyphens, with a guaranteed .pdf suffix.
func SanitizeFilename(name string) string {
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripper, name); err == nil {
		name = stripped
	}

	name = strings.ToLower(name)

	var b strings.Builder
	lastHyphen := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	cleaned := strings.Trim(b.String(), "-.")
	if cleaned == "" {
		cleaned = "document"
	}
	if !strings.HasSuffix(cleaned, ".pdf") {
		cleaned += ".pdf"
	}
	return cleaned
}
