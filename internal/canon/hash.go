package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// DomainFileName separates file-name digests from every key domain.
const DomainFileName = "dapseq/filename/v1"

// maxFileNameLen keeps names well under common filesystem limits.
const maxFileNameLen = 200

var safeFileName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical form of v under domain.
func Digest(domain string, v Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// Key returns prefix + "-" + Digest(domain, params).
func Key(domain, prefix string, params Object) (string, error) {
	d, err := Digest(domain, params)
	if err != nil {
		return "", err
	}
	return prefix + "-" + d, nil
}

// MustKey is like Key but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustKey(domain, prefix string, params Object) string {
	k, err := Key(domain, prefix, params)
	if err != nil {
		panic(err)
	}
	return k
}

// FileName maps a cache key to a single path element. Keys that are already
// safe are used verbatim; anything else is replaced by a digest of the key.
func FileName(key string) string {
	if len(key) <= maxFileNameLen && safeFileName.MatchString(key) {
		return key
	}
	return "k-" + hashWithDomain(DomainFileName, []byte(key))
}
