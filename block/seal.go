package block

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/oroko-systems/ringstore/cipher"
	"github.com/oroko-systems/ringstore/kerrors"
)

// dataKeyLen is the length of the random per-block content key, matching
// both suites' AEAD key size.
const dataKeyLen = 32

// RecipientKeySet is one identity's public keys, one per suite it
// supports, as consumed by SealToRing.
type RecipientKeySet struct {
	IdentityID string
	Keys       map[cipher.Tag][]byte
}

// SealToRing seals plaintext once under a random data key and wraps that
// key for every recipient. The content suite is the highest-tag suite
// every recipient supports, or else the suite covering the most
// recipients; its header takes every recipient it covers, and the
// remaining recipients go into headers for the other suites, tried in
// ascending tag order. The returned block is canonicalized, so headers
// end up in suite-tag order regardless of which suite sealed the content.
func SealToRing(plaintext []byte, recipients []RecipientKeySet) (*Block, error) {
	if len(recipients) == 0 {
		return nil, kerrors.ErrNoRecipient
	}

	supported := make([][]cipher.Tag, len(recipients))
	for i, r := range recipients {
		for tag := range r.Keys {
			supported[i] = append(supported[i], tag)
		}
	}

	primary, ok := cipher.SelectPrimary(supported)
	if !ok {
		primary = cipher.LargestCoverage(supported)
	}

	primarySuite, ok := cipher.By(primary)
	if !ok {
		return nil, fmt.Errorf("%w: no suite registered for tag %s", kerrors.ErrCipher, primary)
	}

	dataKey := make([]byte, dataKeyLen)
	if _, err := io.ReadFull(rand.Reader, dataKey); err != nil {
		return nil, fmt.Errorf("%w: generate data key: %v", kerrors.ErrCipher, err)
	}
	blockNonce := make([]byte, primarySuite.NonceSize())
	if _, err := io.ReadFull(rand.Reader, blockNonce); err != nil {
		return nil, fmt.Errorf("%w: generate block nonce: %v", kerrors.ErrCipher, err)
	}

	sealed, err := primarySuite.AEADSeal(dataKey, blockNonce, plaintext, nil)
	if err != nil {
		return nil, err
	}
	content := append(append([]byte{}, blockNonce...), sealed...)

	order := []cipher.Tag{primary}
	for _, t := range cipher.Tags() {
		if t != primary {
			order = append(order, t)
		}
	}

	assigned := map[string]bool{}
	var headers []Header
	for _, tag := range order {
		suite, ok := cipher.By(tag)
		if !ok {
			continue
		}
		var recips []cipher.Recipient
		for _, r := range recipients {
			if assigned[r.IdentityID] {
				continue
			}
			pub, ok := r.Keys[tag]
			if !ok {
				continue
			}
			recips = append(recips, cipher.Recipient{IdentityID: r.IdentityID, PublicKey: pub})
			assigned[r.IdentityID] = true
		}
		if len(recips) == 0 {
			continue
		}
		commonKey, wrapped, err := suite.SealDataKey(dataKey, blockNonce, recips)
		if err != nil {
			return nil, err
		}
		headers = append(headers, Header{Suite: tag, CommonKey: commonKey, Recipients: wrapped})
	}

	if len(headers) == 0 {
		return nil, kerrors.ErrNoRecipient
	}

	b := &Block{Headers: headers, ContentSuite: primary, Content: content}
	b.Canonicalize()
	return b, nil
}

// OpenWithIdentity recovers the plaintext sealed for identityID, given a
// map of that identity's private keys keyed by suite tag (only the suites
// the identity actually holds need be present).
func OpenWithIdentity(b *Block, identityID string, privateKeys map[cipher.Tag][]byte) ([]byte, error) {
	header, recipKey, found := b.HeaderFor(identityID)
	if !found {
		return nil, kerrors.ErrForbidden
	}

	suite, ok := cipher.By(header.Suite)
	if !ok {
		return nil, fmt.Errorf("%w: unknown suite %s in header", kerrors.ErrInvalidBlock, header.Suite)
	}
	priv, ok := privateKeys[header.Suite]
	if !ok {
		return nil, fmt.Errorf("%w: missing private key for suite %s", kerrors.ErrForbidden, header.Suite)
	}

	contentSuite, ok := cipher.By(b.ContentSuite)
	if !ok {
		return nil, fmt.Errorf("%w: unknown content suite %s", kerrors.ErrInvalidBlock, b.ContentSuite)
	}

	nonceLen := contentSuite.NonceSize()
	if len(b.Content) < nonceLen {
		return nil, fmt.Errorf("%w: content shorter than nonce", kerrors.ErrInvalidBlock)
	}
	blockNonce := b.Content[:nonceLen]

	dataKey, err := suite.OpenDataKey(priv, header.CommonKey, blockNonce, recipKey.CryptedKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := contentSuite.AEADOpen(dataKey, blockNonce, b.Content[nonceLen:], nil)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
