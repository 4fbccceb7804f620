package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// SourceHash is a short, whitespace-insensitive digest of a source file.
// Runs over the same input share it, so history can group them.
func SourceHash(sourceCode []byte) string {
	canonical := canonicalize(string(sourceCode))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:8])
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
