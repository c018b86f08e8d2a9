package ginternals

import (
	"crypto/sha1" //nolint:gosec // digest format is fixed by the on-disk spec
	"hash"
	"io"
)

// HashingReader wraps a reader and accumulates a running digest over
// every byte it delivers to the caller, without altering the stream.
// It is used while reading a pack index so the trailing digest can be
// verified without buffering the whole file.
type HashingReader struct {
	r      io.Reader
	hasher hash.Hash
}

// NewHashingReader returns a HashingReader reading from r.
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{
		r:      r,
		hasher: sha1.New(), //nolint:gosec
	}
}

// Read implements io.Reader, feeding every byte it returns into the
// running digest.
func (h *HashingReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if n > 0 {
		h.hasher.Write(p[:n])
	}
	return n, err
}

// Sum returns the digest of all bytes read so far. It does not reset
// the running state.
func (h *HashingReader) Sum() Oid {
	var oid Oid
	copy(oid[:], h.hasher.Sum(nil))
	return oid
}
