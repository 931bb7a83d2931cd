package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey builds a cache key of the form prefix:hex(sha256(parts joined by "|")).
func HashKey(prefix string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return prefix + ":" + hex.EncodeToString(h[:16])
}

func TruncateToRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
