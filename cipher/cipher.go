// Package cipher implements the two interchangeable cipher suites used to
// seal blocks to a ring's recipients: rsa_aes_gcm and
// ed25519_x25519_chacha20_poly1305. Every suite implements the same small
// Suite interface so the rest of the engine dispatches on the Tag carried
// in a PublicKey, PrivateKey, or Header rather than on concrete types.
package cipher

import "fmt"

// Tag identifies a cipher suite. Numeric order matters: when recipients
// support more than one suite, the engine prefers the suite with the
// highest Tag that every current recipient supports.
type Tag uint8

const (
	RsaAesGcm                  Tag = 0
	EdX25519ChaCha20Poly1305   Tag = 1
)

func (t Tag) String() string {
	switch t {
	case RsaAesGcm:
		return "rsa_aes_gcm"
	case EdX25519ChaCha20Poly1305:
		return "ed25519_x25519_chacha20_poly1305"
	default:
		return fmt.Sprintf("unknown_suite(%d)", uint8(t))
	}
}

// Recipient is a public key presented to SealDataKey, keyed by identity id.
type Recipient struct {
	IdentityID string
	PublicKey  []byte
}

// RecipientKey is the per-recipient wrapped data key produced by
// SealDataKey and carried in a Block Header.
type RecipientKey struct {
	IdentityID string
	CryptedKey []byte
}

// Suite is the uniform interface both cipher suites implement. blockNonce
// is the same 12-byte nonce used to AEAD-seal the block's content; the
// ed25519_x25519_chacha20_poly1305 suite uses it as the HKDF salt when
// wrapping the data key, the rsa_aes_gcm suite ignores it.
type Suite interface {
	Tag() Tag
	NonceSize() int

	GenerateKeyPair() (pub, priv []byte, err error)

	// SealDataKey wraps dataKey for every recipient. commonKey is
	// suite-level shared material (empty for rsa_aes_gcm, the ephemeral
	// X25519 public key for ed25519_x25519_chacha20_poly1305).
	SealDataKey(dataKey, blockNonce []byte, recipients []Recipient) (commonKey []byte, wrapped []RecipientKey, err error)

	// OpenDataKey recovers dataKey using priv and the commonKey/crypted
	// pair addressed to this identity.
	OpenDataKey(priv, commonKey, blockNonce, crypted []byte) (dataKey []byte, err error)

	AEADSeal(key, nonce, plaintext, aad []byte) (ciphertext []byte, err error)
	AEADOpen(key, nonce, ciphertext, aad []byte) (plaintext []byte, err error)
}

var registry = map[Tag]Suite{}

func register(s Suite) {
	registry[s.Tag()] = s
}

// By returns the Suite for tag, or false if unknown.
func By(tag Tag) (Suite, bool) {
	s, ok := registry[tag]
	return s, ok
}

// Tags returns all registered suite tags in ascending numeric order.
func Tags() []Tag {
	return []Tag{RsaAesGcm, EdX25519ChaCha20Poly1305}
}

// SelectPrimary returns the highest-tag suite that every entry in
// supported (one set of tags per recipient) contains, implementing the
// "fixed order, highest index supported by everyone" selection rule of
// the cipher suite component. It returns false if no single suite is
// supported by all recipients (the caller must then emit one header per
// suite and pick the suite with the largest recipient coverage as
// primary instead).
func SelectPrimary(supported [][]Tag) (Tag, bool) {
	candidates := map[Tag]int{}
	for _, tags := range supported {
		for _, t := range tags {
			candidates[t]++
		}
	}
	var best Tag
	found := false
	for _, t := range Tags() {
		if candidates[t] == len(supported) {
			if !found || t > best {
				best = t
				found = true
			}
		}
	}
	return best, found
}

// LargestCoverage returns the suite tag supported by the most recipients,
// used to pick the primary (content-sealing) suite when no single suite
// covers every recipient.
func LargestCoverage(supported [][]Tag) Tag {
	counts := map[Tag]int{}
	for _, tags := range supported {
		for _, t := range tags {
			counts[t]++
		}
	}
	var best Tag
	bestCount := -1
	for _, t := range Tags() {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}
