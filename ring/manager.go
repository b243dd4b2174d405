package ring

import (
	"context"
	"fmt"
	"sync"

	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/cipher"
	"github.com/oroko-systems/ringstore/kdf"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/logging"
	"github.com/oroko-systems/ringstore/secureram"
)

// Manager owns one store's Ring and its Locked/Unlocked state. Ring
// metadata — identity names, public keys, and every PrivateKey's
// Argon2-sealed crypted_key — is stored at rest as plain bytes: the
// per-key Argon2+AEAD wrap already provides the only confidentiality
// that matters, and wrapping the ring itself in the block multi-recipient
// envelope would require a ring identity's raw cipher private key to
// read the very record that contains it. See DESIGN.md for this
// resolution of the ring-bootstrap open question.
type Manager struct {
	mu    sync.RWMutex
	bs    blockstore.Store
	alloc secureram.Allocator
	log   logging.Logger

	ring *Ring

	unlockedIdentityID string
	unlockedKeys       map[cipher.Tag]*secureram.Buffer
}

// NewManager constructs a Manager over an initially-empty ring. Call Load
// before use if a ring may already exist in bs.
func NewManager(bs blockstore.Store, alloc secureram.Allocator, log logging.Logger) *Manager {
	return &Manager{bs: bs, alloc: alloc, log: log, ring: &Ring{}}
}

// Load fetches the ring from bs, replacing any in-memory ring. A store
// with no ring yet (fresh store) is not an error: Load leaves an empty
// ring in place.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.bs.Named(ctx, blockstore.RefRing)
	if err == blockstore.ErrNotFound {
		m.ring = &Ring{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}

	data, err := m.bs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}

	r, err := Unmarshal(data)
	if err != nil {
		return err
	}
	m.ring = r
	return nil
}

func (m *Manager) save(ctx context.Context) error {
	data := Marshal(m.ring)
	id, err := m.bs.Put(ctx, data)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}
	if err := m.bs.SetNamed(ctx, blockstore.RefRing, id); err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}
	return nil
}

// PublicRing projects the current ring to its public recipients view.
// Available whether locked or unlocked.
func (m *Manager) PublicRing() PublicRing {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ring.Public()
}

// Identities returns the ring's identity metadata (no key material),
// available whether locked or unlocked.
func (m *Manager) Identities() []PublicIdentity {
	return m.PublicRing().Identities
}

func (m *Manager) IsUnlocked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unlockedIdentityID != ""
}

func (m *Manager) UnlockedIdentityID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unlockedIdentityID, m.unlockedIdentityID != ""
}

// Unlock derives each of identityID's private keys from passphrase and
// keeps the decrypted material in secure memory for the session.
func (m *Manager) Unlock(identityID string, passphrase []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlockedIdentityID != "" {
		return kerrors.ErrAlreadyUnlocked
	}

	identity, found := m.ring.Find(identityID)
	if !found {
		return kerrors.ErrNotFound
	}

	opened := make(map[cipher.Tag]*secureram.Buffer, len(identity.PrivateKeys))
	for _, pk := range identity.PrivateKeys {
		suite, ok := cipher.By(pk.Suite)
		if !ok {
			continue
		}
		plain, err := OpenPrivateKey(suite, &pk, passphrase)
		if err != nil {
			for _, b := range opened {
				b.Release()
			}
			return err
		}
		opened[pk.Suite] = m.alloc.FromBytes(plain)
		for i := range plain {
			plain[i] = 0
		}
	}

	m.unlockedIdentityID = identityID
	m.unlockedKeys = opened
	return nil
}

// Lock drops and zeroes every decrypted private key.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.unlockedKeys {
		b.Release()
	}
	m.unlockedKeys = nil
	m.unlockedIdentityID = ""
}

// PrivateKeys returns the unlocked identity's plain private keys, keyed
// by suite. The returned slices alias secure memory: callers must treat
// them as borrowed for the duration of the call and never retain them.
func (m *Manager) PrivateKeys() (map[cipher.Tag][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unlockedIdentityID == "" {
		return nil, kerrors.ErrLocked
	}
	out := make(map[cipher.Tag][]byte, len(m.unlockedKeys))
	for tag, buf := range m.unlockedKeys {
		out[tag] = buf.Bytes()
	}
	return out, nil
}

// CreateRing initializes a brand-new ring with a single genesis identity,
// generating a keypair in every registered cipher suite.
func (m *Manager) CreateRing(ctx context.Context, name, email string, passphrase []byte) (identityID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ring.Identities) != 0 {
		return "", fmt.Errorf("%w: ring already initialized", kerrors.ErrRingInvariant)
	}

	identity, err := newIdentity(name, email, passphrase)
	if err != nil {
		return "", err
	}

	m.ring = &Ring{Identities: []Identity{*identity}}
	if err := m.save(ctx); err != nil {
		return "", err
	}
	return identity.ID, nil
}

// AddIdentity requires Unlocked: any current identity may vouch for a new
// one. Blocks written before this call are not retroactively readable by
// the new identity; only blocks written afterward include them.
func (m *Manager) AddIdentity(ctx context.Context, name, email string, passphrase []byte) (identityID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlockedIdentityID == "" {
		return "", kerrors.ErrLocked
	}

	identity, err := newIdentity(name, email, passphrase)
	if err != nil {
		return "", err
	}

	m.ring.Identities = append(m.ring.Identities, *identity)
	if err := m.save(ctx); err != nil {
		return "", err
	}
	m.log.Infof("identity %s added to ring", identity.ID)
	return identity.ID, nil
}

// ChangePassphrase re-seals the unlocked identity's private keys under a
// fresh salt and the current default preset.
func (m *Manager) ChangePassphrase(ctx context.Context, newPassphrase []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unlockedIdentityID == "" {
		return kerrors.ErrLocked
	}

	identity, found := m.ring.Find(m.unlockedIdentityID)
	if !found {
		return kerrors.ErrNotFound
	}

	newPrivateKeys := make([]PrivateKey, 0, len(identity.PrivateKeys))
	for _, pk := range identity.PrivateKeys {
		suite, ok := cipher.By(pk.Suite)
		if !ok {
			continue
		}
		buf, ok := m.unlockedKeys[pk.Suite]
		if !ok {
			return fmt.Errorf("%w: missing unlocked key for suite %s", kerrors.ErrMutex, pk.Suite)
		}
		sealed, err := SealPrivateKey(suite, buf.Bytes(), newPassphrase, kdf.DefaultPreset())
		if err != nil {
			return err
		}
		newPrivateKeys = append(newPrivateKeys, *sealed)
	}
	identity.PrivateKeys = newPrivateKeys

	return m.save(ctx)
}

func newIdentity(name, email string, passphrase []byte) (*Identity, error) {
	identity := &Identity{
		ID:    GenerateIdentityID(),
		Name:  name,
		Email: email,
	}

	for _, tag := range cipher.Tags() {
		suite, _ := cipher.By(tag)
		pub, priv, err := suite.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		sealed, err := SealPrivateKey(suite, priv, passphrase, kdf.DefaultPreset())
		if err != nil {
			return nil, err
		}
		for i := range priv {
			priv[i] = 0
		}
		identity.PublicKeys = append(identity.PublicKeys, PublicKey{Suite: tag, Bytes: pub})
		identity.PrivateKeys = append(identity.PrivateKeys, *sealed)
	}

	return identity, nil
}
