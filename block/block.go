// Package block implements the canonical, content-addressed envelope
// format every at-rest artifact (ring, index, secret version) is wrapped
// in. A Block carries one Header per cipher suite present among its
// recipients and a single inner ciphertext sealed once under a random
// data key.
package block

import (
	"fmt"
	"sort"

	"github.com/oroko-systems/ringstore/cipher"
)

// Header carries one cipher suite's recipients and the suite-level shared
// material (empty for rsa_aes_gcm, an ephemeral X25519 public key for
// ed25519_x25519_chacha20_poly1305).
type Header struct {
	Suite      cipher.Tag
	CommonKey  []byte
	Recipients []cipher.RecipientKey
}

// Block is the immutable, content-addressed, multi-recipient envelope.
// Content layout is nonce(12) || aead_ciphertext || tag(16), already
// concatenated by the suite's AEADSeal. ContentSuite records which
// suite's AEAD sealed Content, since a recipient may only hold a key for
// a secondary header's suite and still needs to know which algorithm to
// use once it has recovered the shared data key.
type Block struct {
	Headers      []Header
	ContentSuite cipher.Tag
	Content      []byte
}

// Canonicalize sorts headers by suite tag and each header's recipients by
// identity id, in place. Every Encode call canonicalizes first so that
// Decode(Encode(b)) is byte-stable regardless of construction order, which
// content addressing depends on.
func (b *Block) Canonicalize() {
	sort.Slice(b.Headers, func(i, j int) bool { return b.Headers[i].Suite < b.Headers[j].Suite })
	for i := range b.Headers {
		recips := b.Headers[i].Recipients
		sort.Slice(recips, func(a, c int) bool { return recips[a].IdentityID < recips[c].IdentityID })
	}
}

// RecipientIDs returns the union of every header's recipient identity ids.
func (b *Block) RecipientIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, h := range b.Headers {
		for _, r := range h.Recipients {
			if !seen[r.IdentityID] {
				seen[r.IdentityID] = true
				ids = append(ids, r.IdentityID)
			}
		}
	}
	return ids
}

// HeaderFor returns the header addressed to identityID, if the block has
// a recipient entry for it.
func (b *Block) HeaderFor(identityID string) (Header, cipher.RecipientKey, bool) {
	for _, h := range b.Headers {
		for _, r := range h.Recipients {
			if r.IdentityID == identityID {
				return h, r, true
			}
		}
	}
	return Header{}, cipher.RecipientKey{}, false
}

// Validate checks that the block has at least one header, and that each
// identity id appears in at most one header.
func (b *Block) Validate() error {
	if len(b.Headers) == 0 {
		return fmt.Errorf("block has no headers")
	}
	seen := map[string]bool{}
	for _, h := range b.Headers {
		for _, r := range h.Recipients {
			if seen[r.IdentityID] {
				return fmt.Errorf("identity %s appears in more than one header", r.IdentityID)
			}
			seen[r.IdentityID] = true
		}
	}
	return nil
}
