package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns prefix + ":" + the first 16 hex chars of sha256(s).
func HashKey(prefix, s string) string {
	sum := sha256.Sum256([]byte(s))
	return prefix + ":" + hex.EncodeToString(sum[:8])
}
