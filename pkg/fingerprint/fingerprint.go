// Package fingerprint computes content fingerprints for document bytes.
// The fingerprint is the sole cache key: identical bytes always produce the
// same fingerprint, and distinct inputs are assumed never to collide.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is a hex-encoded SHA-256 digest of exact input bytes.
type Fingerprint string

// Sum computes the fingerprint of the given bytes.
func Sum(data []byte) Fingerprint {
	digest := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(digest[:]))
}

// String returns the fingerprint as a plain string.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns the first 12 hex characters, for log output.
func (f Fingerprint) Short() string {
	if len(f) < 12 {
		return string(f)
	}
	return string(f[:12])
}
