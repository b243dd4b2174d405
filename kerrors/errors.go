// Package kerrors defines the sentinel error values returned by every
// ringstore package. Callers should compare with errors.Is rather than on
// error strings.
package kerrors

import "errors"

// Store state errors indicate the facade is in the wrong lifecycle state
// for the requested operation.
var (
	// ErrLocked indicates the store must be unlocked before this operation.
	ErrLocked = errors.New("store is locked")

	// ErrAlreadyUnlocked indicates unlock was called on an already-unlocked store.
	ErrAlreadyUnlocked = errors.New("store is already unlocked")
)

// Access errors indicate the caller's identity lacks the key material or
// permission the operation requires.
var (
	// ErrInvalidPassphrase indicates AEAD-opening a private key failed.
	ErrInvalidPassphrase = errors.New("invalid passphrase")

	// ErrForbidden indicates the unlocked identity is not a recipient of the block.
	ErrForbidden = errors.New("identity is not a recipient of this block")

	// ErrNoRecipient indicates a seal was attempted against an empty public ring.
	ErrNoRecipient = errors.New("no recipients to seal to")
)

// Storage errors indicate problems at the block-store boundary.
var (
	// ErrConflict indicates a CAS failure on set_head that exhausted its retries.
	ErrConflict = errors.New("conflicting head update")

	// ErrNotFound indicates a requested block, identity, or secret id is absent.
	ErrNotFound = errors.New("not found")

	// ErrIo wraps underlying block-store I/O failures.
	ErrIo = errors.New("block store i/o error")
)

// Cryptographic errors indicate failures inside the cipher or key
// derivation layers, distinct from a wrong passphrase.
var (
	// ErrCipher indicates an AEAD authentication failure unrelated to passphrase unlock.
	ErrCipher = errors.New("cipher authentication failed")

	// ErrKeyDerivation indicates an Argon2 parameter or output failure.
	ErrKeyDerivation = errors.New("key derivation failed")

	// ErrInvalidBlock indicates malformed block bytes.
	ErrInvalidBlock = errors.New("invalid block encoding")

	// ErrPadding indicates a length-prefix or framing mismatch while decoding.
	ErrPadding = errors.New("invalid block padding")
)

// Config errors indicate problems with a store's configuration or URL.
var (
	// ErrInvalidStoreUrl indicates a store URL could not be parsed by any adapter.
	ErrInvalidStoreUrl = errors.New("invalid store url")

	// ErrStoreNotFound indicates no StoreConfig is registered under that name.
	ErrStoreNotFound = errors.New("store not found")
)

// Internal errors surface programmer or boundary-encoding mistakes.
var (
	// ErrMutex indicates an internal lock was found in an inconsistent state.
	ErrMutex = errors.New("internal lock error")

	// ErrJson indicates a failure decoding or encoding a JSON boundary value.
	ErrJson = errors.New("invalid json")

	// ErrRingInvariant indicates a ring mutation would violate a ring invariant
	// (e.g. emptying the last unlockable identity).
	ErrRingInvariant = errors.New("ring invariant violated")
)
