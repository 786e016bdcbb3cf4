// Package checksum computes the content digests used to de-duplicate uploads.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Hasher accumulates a digest over everything written to it.
type Hasher struct {
	h hash.Hash
	n int64
}

// NewHasher returns an empty Hasher.
func NewHasher() *Hasher {
	return &Hasher{h: sha256.New()}
}

func (h *Hasher) Write(p []byte) (int, error) {
	n, err := h.h.Write(p)
	h.n += int64(n)
	return n, err
}

// Sum returns the hex digest of the bytes written so far.
func (h *Hasher) Sum() string {
	return hex.EncodeToString(h.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (h *Hasher) Size() int64 { return h.n }

// SumReader drains r and returns its digest and length.
func SumReader(r io.Reader) (string, int64, error) {
	h := NewHasher()
	if _, err := io.Copy(h, r); err != nil {
		return "", 0, err
	}
	return h.Sum(), h.Size(), nil
}

// SumFile returns the digest and size of the file at path.
func SumFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return SumReader(f)
}
