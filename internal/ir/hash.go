package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest domains. The suffix versions the snapshot layout.
const (
	DomainClass    = "ssg/class/v1"
	DomainMetadata = "ssg/metadata/v1"
)

// hashWithDomain is SHA256(domain || 0x00 || data) in hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical JSON of v under domain.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ClassDigest identifies the merged state of a class. Two runs over the same
// inputs in the same order produce the same digest.
func ClassDigest(c *ClassEntry) (string, error) {
	return Digest(DomainClass, c.Snapshot())
}
