// Package hash computes content digests for edit records.
//
// Digests are SHA-256 over the UTF-8 bytes of the reconstructed,
// uncompressed content, with domain separation so a content digest can
// never collide with a digest computed for another purpose. The digest
// of a record is fixed at write time and re-checked on demand, not
// continuously enforced.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainContent is the domain prefix for edit content digests.
// The version suffix enables future algorithm migration.
const DomainContent = "palimpsest/content/v1"

// Digest computes the hex-encoded SHA-256 digest of content.
// Format: SHA256(domain + 0x00 + utf8(content)).
// The null byte separator prevents domain/data boundary ambiguity.
func Digest(content string) string {
	h := sha256.New()
	h.Write([]byte(DomainContent))
	h.Write([]byte{0x00})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the digest of content and compares it to expected.
//
// An empty expected digest means the record predates digest tracking
// and cannot be verified; such records are treated as valid.
func Verify(content, expected string) bool {
	if expected == "" {
		return true
	}
	return Digest(content) == expected
}
