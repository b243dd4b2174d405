// Package kdf derives symmetric wrapping keys from passphrases. Presets are
// forward-only: once shipped, a preset's parameters never change, since
// private keys on disk record only the preset number, not the parameters
// used to produce them.
package kdf

import (
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/oroko-systems/ringstore/kerrors"
)

// KeyLen is the length in bytes of every derived wrapping key, matching the
// AEAD key size of both cipher suites (AES-256-GCM and ChaCha20-Poly1305).
const KeyLen = 32

// MinSaltLen is the minimum acceptable length for the salt stored as a
// PrivateKey's nonce field.
const MinSaltLen = 16

// Params are the Argon2id parameters bound to a preset.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
}

// Preset 0 is the only preset defined today: Argon2id, 64 MiB, t=3, p=4.
const (
	PresetDefault uint8 = 0
)

var presets = map[uint8]Params{
	PresetDefault: {MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 4},
}

// Derive produces a KeyLen-byte key from passphrase, salt, and preset.
// Derivation is deterministic: the same three inputs always yield the same
// key, which is exactly what unlock relies on.
func Derive(passphrase, salt []byte, preset uint8) ([]byte, error) {
	p, ok := presets[preset]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kdf preset %d", kerrors.ErrKeyDerivation, preset)
	}
	if len(salt) < MinSaltLen {
		return nil, fmt.Errorf("%w: salt shorter than %d bytes", kerrors.ErrKeyDerivation, MinSaltLen)
	}
	return argon2.IDKey(passphrase, salt, p.Iterations, p.MemoryKiB, p.Parallelism, KeyLen), nil
}

// DefaultPreset returns the preset new private keys should be sealed with.
func DefaultPreset() uint8 {
	return PresetDefault
}
