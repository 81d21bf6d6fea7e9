package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// Checksum returns the hex SHA-256 digest of content. Nothing security
// sensitive hangs off it; consumers only compare digests between builds to
// detect changed files.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileChecksum hashes the file at path.
func FileChecksum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Checksum(data), nil
}
