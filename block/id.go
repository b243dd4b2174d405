package block

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ID is the content address of encoded block bytes: the hex-encoded
// BLAKE2b-256 digest. Addressing is the block's sole identity; identical
// bytes always yield the same id, which is what makes blockstore.Put
// idempotent.
func ID(encoded []byte) string {
	sum := blake2b.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
