// go-utils/hash.go

package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentHash is the lowercase hex SHA-256 of a document body. Signers echo
// it back so a signature always binds to the exact text that was shown.
func ContentHash(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// HashMatches compares hashes case-insensitively.
func HashMatches(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
