// Package contenturi derives content-addressed locators for asset metadata.
package contenturi

import (
	"crypto/sha256"
	"encoding/hex"
)

// Scheme prefixes every derived locator.
const Scheme = "cas"

// Deriver maps a metadata reference to a locator string. It is a pure
// function; the registry takes it as an injectable strategy so tests can
// substitute a stub.
type Deriver func(metadata []byte) string

// Derive hashes the metadata reference with SHA-256 and formats it as
// cas://<hex-digest>. Identical input always yields an identical locator,
// which keeps the pointer independent of any resolver and makes duplicate
// metadata self-evident. Empty input is hashed as-is; hashing is total.
func Derive(metadata []byte) string {
	sum := sha256.Sum256(metadata)
	return Scheme + "://" + hex.EncodeToString(sum[:])
}
