package cache

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint is a deterministic digest of a fully compressed outbound
// request plus its routing-relevant parameters. It is the cache and
// coalescing key: requests that compress to identical bytes for the same
// model and path collide on purpose, while a change in compression level,
// model, or routing target always produces a different fingerprint.
type Fingerprint string

// FingerprintInput is everything that participates in the digest. Payload
// is the compressed request body - hashing the compressed form (not the
// original text) means differently-worded but identically-compressed
// requests correctly collide, and a level change invalidates old entries.
type FingerprintInput struct {
	Level   int
	Model   string
	Path    string
	Payload []byte
}

// Compute returns the fingerprint for the given input. Fields are length-
// prefixed before hashing so no two distinct inputs concatenate to the
// same byte stream.
func Compute(in FingerprintInput) Fingerprint {
	h := blake3.New()
	writeField(h, []byte{byte(in.Level)})
	writeField(h, []byte(in.Model))
	writeField(h, []byte(in.Path))
	writeField(h, in.Payload)
	sum := h.Sum(nil)
	return Fingerprint(hex.EncodeToString(sum[:16]))
}

func writeField(h *blake3.Hasher, b []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = h.Write(n[:])
	_, _ = h.Write(b)
}
