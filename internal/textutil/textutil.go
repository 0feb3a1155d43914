package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// HasLetters reports whether s contains any letter, i.e. whether it carries
// text a translator could work on.
func HasLetters(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Hash computes a SHA-256 hex hash of a string.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// ShortHash returns the first 16 hex digits of Hash, enough for stable ids.
func ShortHash(s string) string {
	return Hash(s)[:16]
}

// Truncate shortens s to at most width terminal cells, appending "..." if
// truncated. Line breaks are flattened so the result fits one log line.
func Truncate(s string, width int) string {
	s = strings.NewReplacer("\r\n", "⏎", "\n", "⏎").Replace(s)
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// Lines counts the lines of s. An empty string has none.
func Lines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
