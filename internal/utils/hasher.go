package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes generates a hex SHA-256 digest of data
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first n hex characters of the SHA-256 digest of data
func ShortHash(data []byte, n int) string {
	h := HashBytes(data)
	if n <= 0 || n >= len(h) {
		return h
	}
	return h[:n]
}
