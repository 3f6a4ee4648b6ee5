// Package hash computes content digests: SHA-256 encoded as lowercase hex.
// A digest is byte-identical whether computed from a single buffer or from
// any chunking of the same bytes.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// SumHex returns the digest of data as a lowercase hex string.
func SumHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Digest accumulates streamed content. The zero value is not usable;
// create one with New.
type Digest struct {
	h hash.Hash
}

// New returns an empty Digest ready to receive writes.
func New() *Digest {
	return &Digest{h: sha256.New()}
}

// Write adds p to the running digest. It never fails.
func (d *Digest) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// SumHex returns the digest of everything written so far as a lowercase
// hex string.
func (d *Digest) SumHex() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
