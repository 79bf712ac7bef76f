package encoding

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// CleanText normalizes a scraped text fragment: invalid UTF-8 is assumed to
// be Windows-1252 (some regional vendor mirrors still serve it), and the
// non-breaking / narrow spaces vendors put inside price strings are replaced
// with plain spaces before trimming.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	if !utf8.ValidString(s) {
		if decoded, err := charmap.Windows1252.NewDecoder().String(s); err == nil {
			s = decoded
		}
	}

	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "\u202f", " ")
	return strings.TrimSpace(s)
}
