package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// Hasher is an io.Writer that keeps a running SHA-256 digest and byte count.
type Hasher struct {
	digest hash.Hash
	n      int64
}

func NewHasher() *Hasher {
	return &Hasher{digest: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	n, err := h.digest.Write(p)
	h.n += int64(n)
	return n, err
}

// Sum returns the hex digest of everything written so far.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.digest.Sum(nil))
}

func (h *Hasher) Len() int64 {
	return h.n
}
