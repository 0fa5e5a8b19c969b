package store

import (
	"crypto/sha256"
	"fmt"
)

// ContentHash is the hex SHA-256 of a file's bytes. Stored trees carry it so
// callers can tell whether a file changed since it was dumped.
func ContentHash(src []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(src))
}
