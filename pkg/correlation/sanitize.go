package correlation

import (
	"strings"
	"unicode/utf8"
)

// sanitize keeps correlation values safe to embed in single-line log records:
// CR/LF are dropped and the result cut to maxLen bytes on a rune boundary.
// Other characters, surrounding space included, are kept. maxLen <= 0
// disables truncation.
func sanitize(v string, maxLen int) string {
	if strings.ContainsAny(v, "\r\n") {
		v = strings.NewReplacer("\r", "", "\n", "").Replace(v)
	}

	if maxLen > 0 && len(v) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	return v
}
