package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/oroko-systems/ringstore/kerrors"
)

// rsaKeyBits is the RSA modulus size used for key transport, per the
// suite's spec: RSA-4096 with OAEP-SHA256.
const rsaKeyBits = 4096

type rsaAesGcmSuite struct{}

func init() {
	register(rsaAesGcmSuite{})
}

func (rsaAesGcmSuite) Tag() Tag      { return RsaAesGcm }
func (rsaAesGcmSuite) NonceSize() int { return 12 }

// There is no third-party RSA or PKIX/PKCS1 encoding library anywhere in
// the example pack; crypto/rsa, crypto/x509, crypto/aes and crypto/cipher
// are the stdlib primitives every reference repo that needs RSA transport
// or AES-GCM falls back to as well, so this suite is the one place in the
// engine that is grounded directly on the standard library rather than on
// a pack dependency (see DESIGN.md).
func (rsaAesGcmSuite) GenerateKeyPair() (pub, priv []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate rsa key: %v", kerrors.ErrCipher, err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: marshal rsa public key: %v", kerrors.ErrCipher, err)
	}
	privDER := x509.MarshalPKCS1PrivateKey(key)
	return pubDER, privDER, nil
}

func (rsaAesGcmSuite) SealDataKey(dataKey, _ []byte, recipients []Recipient) (commonKey []byte, wrapped []RecipientKey, err error) {
	if len(recipients) == 0 {
		return nil, nil, kerrors.ErrNoRecipient
	}
	wrapped = make([]RecipientKey, 0, len(recipients))
	for _, r := range recipients {
		pub, err := parseRSAPublic(r.PublicKey)
		if err != nil {
			return nil, nil, err
		}
		crypted, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, dataKey, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: rsa-oaep encrypt for %s: %v", kerrors.ErrCipher, r.IdentityID, err)
		}
		wrapped = append(wrapped, RecipientKey{IdentityID: r.IdentityID, CryptedKey: crypted})
	}
	return nil, wrapped, nil
}

func (rsaAesGcmSuite) OpenDataKey(priv, _, _, crypted []byte) ([]byte, error) {
	key, err := parseRSAPrivate(priv)
	if err != nil {
		return nil, err
	}
	dataKey, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, crypted, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: rsa-oaep decrypt: %v", kerrors.ErrCipher, err)
	}
	return dataKey, nil
}

func (rsaAesGcmSuite) AEADSeal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nil, nonce, plaintext, aad), nil
}

func (rsaAesGcmSuite) AEADOpen(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: aes-gcm open: %v", kerrors.ErrCipher, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (stdcipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: aes cipher: %v", kerrors.ErrCipher, err)
	}
	gcm, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: aes-gcm: %v", kerrors.ErrCipher, err)
	}
	return gcm, nil
}

func parseRSAPublic(der []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse rsa public key: %v", kerrors.ErrInvalidBlock, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not rsa", kerrors.ErrInvalidBlock)
	}
	return rsaPub, nil
}

func parseRSAPrivate(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse rsa private key: %v", kerrors.ErrInvalidBlock, err)
	}
	return key, nil
}
