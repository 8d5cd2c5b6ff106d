package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainTrace = "btrtrace/trace/v1"
)

// NewHasher returns a SHA-256 hash already primed with domain and the NUL
// separator. Write the payload and call Digest.
func NewHasher(domain string) hash.Hash {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	return h
}

// Digest returns the hex encoding of h's current sum.
func Digest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// HashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The NUL separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := NewHasher(domain)
	h.Write(data)
	return Digest(h)
}
