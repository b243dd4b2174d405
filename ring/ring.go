// Package ring implements the identity and key-material store (C6):
// Locked/Unlocked state, passphrase-derived unlock, identity add, and
// passphrase change. A Ring is stored at rest as plain encoded bytes
// (see Marshal), not inside a block envelope; only each PrivateKey's
// crypted_key is encrypted, under its own passphrase-derived key.
package ring

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/oroko-systems/ringstore/cipher"
	"github.com/oroko-systems/ringstore/kdf"
	"github.com/oroko-systems/ringstore/kerrors"
)

// DerivationArgon2 is the only derivation type defined today. It is not
// written to the wire: Marshal records no derivation type per private
// key, and Unmarshal treats every stored private key as Argon2-derived.
const DerivationArgon2 = "argon2"

// PublicKey is a suite-tagged public key encoding.
type PublicKey struct {
	Suite cipher.Tag
	Bytes []byte
}

// PrivateKey is a suite-tagged private key, AEAD-sealed under a key
// derived from a passphrase, the Argon2 salt, and Preset. Nonce holds the
// Argon2 salt followed by the AEAD nonce (see SealPrivateKey).
type PrivateKey struct {
	Suite      cipher.Tag
	Preset     uint8
	Nonce      []byte
	CryptedKey []byte
}

// Identity is one ring member: its metadata plus parallel public/private
// key lists, one pair per cipher suite it supports.
type Identity struct {
	ID          string
	Name        string
	Email       string
	Hidden      bool
	PublicKeys  []PublicKey
	PrivateKeys []PrivateKey
}

// Ring is the full at-rest record: every identity with both halves of its
// key material.
type Ring struct {
	Identities []Identity
}

// PublicIdentity is the public projection of an Identity, used as a
// recipient when sealing new blocks.
type PublicIdentity struct {
	ID         string
	Name       string
	Email      string
	Hidden     bool
	PublicKeys []PublicKey
}

// PublicRing is the projection of a Ring exposing only public key
// material, used as the recipient set when sealing.
type PublicRing struct {
	Identities []PublicIdentity
}

// Public projects r to its PublicRing.
func (r *Ring) Public() PublicRing {
	pr := PublicRing{Identities: make([]PublicIdentity, 0, len(r.Identities))}
	for _, id := range r.Identities {
		pr.Identities = append(pr.Identities, PublicIdentity{
			ID:         id.ID,
			Name:       id.Name,
			Email:      id.Email,
			Hidden:     id.Hidden,
			PublicKeys: id.PublicKeys,
		})
	}
	return pr
}

// Find returns the identity with the given id.
func (r *Ring) Find(identityID string) (*Identity, bool) {
	for i := range r.Identities {
		if r.Identities[i].ID == identityID {
			return &r.Identities[i], true
		}
	}
	return nil, false
}

// GenerateIdentityID mints a fresh 128-bit identity id rendered as a
// UUID string, matching the "random 128-bit value rendered as a text
// token" requirement of the data model.
func GenerateIdentityID() string {
	return uuid.New().String()
}

// SealPrivateKey derives a wrapping key from passphrase using preset and
// a fresh Argon2 salt, then AEAD-seals plainKey under it with a
// separately-generated random nonce. Salt and nonce are stored
// concatenated in one Nonce field (kdf.MinSaltLen bytes of salt followed
// by suite.NonceSize() bytes of nonce) rather than as two fields.
func SealPrivateKey(suite cipher.Suite, plainKey, passphrase []byte, preset uint8) (*PrivateKey, error) {
	salt := make([]byte, kdf.MinSaltLen+suite.NonceSize())
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: generate salt: %v", kerrors.ErrKeyDerivation, err)
	}
	kdfSalt := salt[:kdf.MinSaltLen]
	nonce := salt[kdf.MinSaltLen:]

	wrapKey, err := kdf.Derive(passphrase, kdfSalt, preset)
	if err != nil {
		return nil, err
	}

	crypted, err := suite.AEADSeal(wrapKey, nonce, plainKey, nil)
	if err != nil {
		return nil, err
	}

	return &PrivateKey{
		Suite:      suite.Tag(),
		Preset:     preset,
		Nonce:      salt,
		CryptedKey: crypted,
	}, nil
}

// OpenPrivateKey reverses SealPrivateKey: it fails with
// kerrors.ErrInvalidPassphrase if the AEAD open fails, since that is the
// only reason a correctly-formed private key record would fail to open.
func OpenPrivateKey(suite cipher.Suite, pk *PrivateKey, passphrase []byte) ([]byte, error) {
	if len(pk.Nonce) < kdf.MinSaltLen+suite.NonceSize() {
		return nil, fmt.Errorf("%w: stored salt too short", kerrors.ErrInvalidBlock)
	}
	kdfSalt := pk.Nonce[:kdf.MinSaltLen]
	nonce := pk.Nonce[kdf.MinSaltLen:]

	wrapKey, err := kdf.Derive(passphrase, kdfSalt, pk.Preset)
	if err != nil {
		return nil, err
	}

	plain, err := suite.AEADOpen(wrapKey, nonce, pk.CryptedKey, nil)
	if err != nil {
		return nil, kerrors.ErrInvalidPassphrase
	}
	return plain, nil
}
