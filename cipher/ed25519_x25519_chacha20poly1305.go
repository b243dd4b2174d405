package cipher

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/oroko-systems/ringstore/kerrors"
)

// wrapInfo is the HKDF info string binding a derived wrap key to this
// suite's per-recipient key-wrapping step.
const wrapInfo = "t-rust-less/wrap"

// Public and private key encodings are the X25519 key concatenated with
// the Ed25519 key: Ed25519 key material is retained on every identity for
// future signing but plays no part in confidentiality today.
const (
	x25519Len  = 32
	ed25519Len = 32
)

type edX25519ChaChaSuite struct{}

func init() {
	register(edX25519ChaChaSuite{})
}

func (edX25519ChaChaSuite) Tag() Tag      { return EdX25519ChaCha20Poly1305 }
func (edX25519ChaChaSuite) NonceSize() int { return chacha20poly1305.NonceSize }

func (edX25519ChaChaSuite) GenerateKeyPair() (pub, priv []byte, err error) {
	xPriv := make([]byte, x25519Len)
	if _, err := io.ReadFull(rand.Reader, xPriv); err != nil {
		return nil, nil, fmt.Errorf("%w: generate x25519 scalar: %v", kerrors.ErrCipher, err)
	}
	xPub, err := curve25519.X25519(xPriv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: derive x25519 public key: %v", kerrors.ErrCipher, err)
	}

	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate ed25519 key: %v", kerrors.ErrCipher, err)
	}

	pub = append(append([]byte{}, xPub...), edPub...)
	priv = append(append([]byte{}, xPriv...), edPriv.Seed()...)
	return pub, priv, nil
}

func (s edX25519ChaChaSuite) SealDataKey(dataKey, blockNonce []byte, recipients []Recipient) (commonKey []byte, wrapped []RecipientKey, err error) {
	if len(recipients) == 0 {
		return nil, nil, kerrors.ErrNoRecipient
	}

	ephPriv := make([]byte, x25519Len)
	if _, err := io.ReadFull(rand.Reader, ephPriv); err != nil {
		return nil, nil, fmt.Errorf("%w: generate ephemeral x25519 key: %v", kerrors.ErrCipher, err)
	}
	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: derive ephemeral x25519 public key: %v", kerrors.ErrCipher, err)
	}

	wrapped = make([]RecipientKey, 0, len(recipients))
	for _, r := range recipients {
		if len(r.PublicKey) < x25519Len {
			return nil, nil, fmt.Errorf("%w: recipient %s public key too short", kerrors.ErrInvalidBlock, r.IdentityID)
		}
		wrapKey, err := s.deriveWrapKey(ephPriv, r.PublicKey[:x25519Len], blockNonce)
		if err != nil {
			return nil, nil, err
		}
		crypted, err := chachaSeal(wrapKey, zeroNonce(), dataKey, nil)
		if err != nil {
			return nil, nil, err
		}
		wrapped = append(wrapped, RecipientKey{IdentityID: r.IdentityID, CryptedKey: crypted})
	}
	return ephPub, wrapped, nil
}

func (s edX25519ChaChaSuite) OpenDataKey(priv, commonKey, blockNonce, crypted []byte) ([]byte, error) {
	if len(priv) < x25519Len {
		return nil, fmt.Errorf("%w: private key too short", kerrors.ErrInvalidBlock)
	}
	if len(commonKey) != x25519Len {
		return nil, fmt.Errorf("%w: common_key is not an x25519 point", kerrors.ErrInvalidBlock)
	}
	wrapKey, err := s.deriveWrapKey(priv[:x25519Len], commonKey, blockNonce)
	if err != nil {
		return nil, err
	}
	dataKey, err := chachaOpen(wrapKey, zeroNonce(), crypted, nil)
	if err != nil {
		return nil, err
	}
	return dataKey, nil
}

func (edX25519ChaChaSuite) deriveWrapKey(xPriv, peerXPub, salt []byte) ([]byte, error) {
	shared, err := curve25519.X25519(xPriv, peerXPub)
	if err != nil {
		return nil, fmt.Errorf("%w: x25519 ecdh: %v", kerrors.ErrCipher, err)
	}
	wrapKey := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(wrapInfo)), wrapKey); err != nil {
		return nil, fmt.Errorf("%w: hkdf expand: %v", kerrors.ErrKeyDerivation, err)
	}
	return wrapKey, nil
}

func (edX25519ChaChaSuite) AEADSeal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	return chachaSeal(key, nonce, plaintext, aad)
}

func (edX25519ChaChaSuite) AEADOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	return chachaOpen(key, nonce, ciphertext, aad)
}

func chachaSeal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305: %v", kerrors.ErrCipher, err)
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

func chachaOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305: %v", kerrors.ErrCipher, err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: chacha20poly1305 open: %v", kerrors.ErrCipher, err)
	}
	return plaintext, nil
}

func zeroNonce() []byte {
	return make([]byte, chacha20poly1305.NonceSize)
}
