package diag

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainCanonical separates canonical-text digests from any other hash.
// The version suffix leaves room for changing the canonical form.
const DomainCanonical = "diagcheck/canonical/v1"

// Digest returns SHA256(domain + 0x00 + canonical) as lowercase hex.
// Two batches with equal canonical text have equal digests.
func Digest(canonical string) string {
	h := sha256.New()
	h.Write([]byte(DomainCanonical))
	h.Write([]byte{0x00})
	h.Write([]byte(canonical))
	return hex.EncodeToString(h.Sum(nil))
}
