// Package textutil provides small text helpers shared across the service.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashString returns the hex-encoded SHA256 digest of s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeWhitespace collapses runs of whitespace into single spaces
// and trims leading and trailing whitespace. Newlines between paragraphs
// are preserved as a single newline.
func NormalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastSpace := false
	lastNewline := false
	for _, r := range s {
		if r == '\n' {
			if !lastNewline && b.Len() > 0 {
				b.WriteByte('\n')
			}
			lastNewline = true
			lastSpace = true
			continue
		}
		if unicode.IsSpace(r) {
			lastSpace = true
			continue
		}
		if lastSpace && b.Len() > 0 && !lastNewline {
			b.WriteByte(' ')
		}
		lastSpace = false
		lastNewline = false
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

// Truncate shortens s to at most maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
