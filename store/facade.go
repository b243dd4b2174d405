// Package store implements the per-store facade (C9) and the
// process-level registry of stores it lives in: the Locked/Unlocked
// state machine, autolock clock input, and event emission wrapped around
// the ring, block, and index packages' lower-level operations.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oroko-systems/ringstore/audit"
	"github.com/oroko-systems/ringstore/block"
	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/cipher"
	"github.com/oroko-systems/ringstore/events"
	"github.com/oroko-systems/ringstore/index"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/logging"
	"github.com/oroko-systems/ringstore/ring"
	"github.com/oroko-systems/ringstore/secureram"
)

// SchemaVersion identifies the on-disk block format this facade reads
// and writes, reported by Status for client diagnostics.
const SchemaVersion = "1"

const defaultAutolockTimeout = 5 * time.Minute

// Status is the snapshot returned by Facade.Status.
type Status struct {
	Locked          bool
	UnlockedBy      string
	AutolockAt      time.Time
	AutolockTimeout time.Duration
	Version         string
}

// Secret is what Get returns: the current version plus its full history.
type Secret struct {
	ID             string
	Type           string
	Current        index.SecretVersion
	CurrentBlockID string
	Versions       []index.VersionRef
}

// Facade holds one store's mutable state behind a single exclusive lock:
// read-only operations (Status, List, Get, GetVersion) take a shared
// lock, mutating operations take an exclusive one. autolockAt is tracked
// outside that lock (atomic unix-nanos) so refreshing the deadline never
// needs to upgrade a reader to a writer.
type Facade struct {
	mu sync.RWMutex

	name  string
	bs    blockstore.Store
	alloc secureram.Allocator
	log   logging.Logger
	audit audit.Logger
	sink  events.Sink

	ringMgr *ring.Manager
	idx     *index.Engine

	autolockTimeout time.Duration
	autolockAtNanos atomic.Int64
}

// NewFacade constructs a Facade over an already-provisioned store. Call
// Load before use.
func NewFacade(name string, bs blockstore.Store, clientID string, alloc secureram.Allocator, log logging.Logger, auditLog audit.Logger, sink events.Sink, autolockTimeout time.Duration) *Facade {
	if autolockTimeout <= 0 {
		autolockTimeout = defaultAutolockTimeout
	}
	if sink == nil {
		sink = events.Nop
	}
	f := &Facade{
		name:            name,
		bs:              bs,
		alloc:           alloc,
		log:             log,
		audit:           auditLog,
		sink:            sink,
		ringMgr:         ring.NewManager(bs, alloc, log),
		idx:             index.NewEngine(bs, clientID, log),
		autolockTimeout: autolockTimeout,
	}
	return f
}

// Load fetches the store's ring from bs. A fresh store with no ring yet
// is not an error. The index is loaded lazily on Unlock, since reading
// it requires private keys this call does not yet have.
func (f *Facade) Load(ctx context.Context) error {
	return f.ringMgr.Load(ctx)
}

// CreateRing initializes a brand-new store with a single genesis
// identity. Only valid on a store with no ring yet.
func (f *Facade) CreateRing(ctx context.Context, name, email string, passphrase []byte) (identityID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ringMgr.CreateRing(ctx, name, email, passphrase)
}

// Status reports the store's current Locked/Unlocked state. It does not
// refresh the autolock deadline; neither do Identities, CreateRing, Lock
// and Tick.
func (f *Facade) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()

	unlockedBy, _ := f.ringMgr.UnlockedIdentityID()
	return Status{
		Locked:          !f.ringMgr.IsUnlocked(),
		UnlockedBy:      unlockedBy,
		AutolockAt:      f.autolockAt(),
		AutolockTimeout: f.autolockTimeout,
		Version:         SchemaVersion,
	}
}

func (f *Facade) autolockAt() time.Time {
	nanos := f.autolockAtNanos.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (f *Facade) refreshAutolockDeadline() {
	f.autolockAtNanos.Store(time.Now().Add(f.autolockTimeout).UnixNano())
}

// Tick is the externally-supplied autolock clock input: if now is at or
// past the current autolock deadline and the store is unlocked, it
// locks. Callers are expected to invoke this periodically; autolock never
// interrupts an in-flight operation, only the next attempted transition.
func (f *Facade) Tick(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.ringMgr.IsUnlocked() {
		return
	}
	deadline := f.autolockAt()
	if deadline.IsZero() || now.Before(deadline) {
		return
	}
	f.lockLocked()
}

// Identities returns the ring's public identity metadata. Available
// whether locked or unlocked.
func (f *Facade) Identities() []ring.PublicIdentity {
	return f.ringMgr.Identities()
}

// Unlock derives identityID's private keys from passphrase and rebuilds
// the in-memory index projection using them.
func (f *Facade) Unlock(ctx context.Context, identityID string, passphrase []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ringMgr.Unlock(identityID, passphrase); err != nil {
		f.audit.Log(audit.Entry{Operation: audit.OpUnlock, IdentityID: identityID, Reason: errClass(err)})
		return err
	}

	resolver := facadeResolver{bs: f.bs, ringMgr: f.ringMgr, identityID: identityID}
	if err := f.idx.Load(ctx, resolver); err != nil {
		f.ringMgr.Lock()
		return err
	}

	f.refreshAutolockDeadline()
	f.audit.Log(audit.Entry{Operation: audit.OpUnlock, IdentityID: identityID, Success: true})
	f.sink.Emit(events.Event{Kind: events.StoreUnlocked, StoreName: f.name, IdentityID: identityID})
	return nil
}

// Lock drops and zeroes the unlocked identity's private keys.
func (f *Facade) Lock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lockLocked()
}

func (f *Facade) lockLocked() {
	identityID, _ := f.ringMgr.UnlockedIdentityID()
	f.ringMgr.Lock()
	f.idx.Lock()
	f.audit.Log(audit.Entry{Operation: audit.OpLock, IdentityID: identityID, Success: true})
	f.sink.Emit(events.Event{Kind: events.StoreLocked, StoreName: f.name, IdentityID: identityID})
}

// List queries the index with filter.
func (f *Facade) List(filter index.Filter) (index.ListResult, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.ringMgr.IsUnlocked() {
		return index.ListResult{}, kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()
	return index.List(f.idx.Projection(), filter), nil
}

// Add seals secretVersion to every current ring identity, stores the
// resulting block, and appends an Add head for it. version.Timestamp
// defaults to now if zero, and is bumped to one past this secret's
// latest existing version if it would otherwise go backwards or tie.
func (f *Facade) Add(ctx context.Context, version index.SecretVersion) (blockID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	identityID, ok := f.ringMgr.UnlockedIdentityID()
	if !ok {
		return "", kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()

	if version.Timestamp == 0 {
		version.Timestamp = time.Now().UnixMilli()
	}
	if entry, exists := f.idx.Projection().Entries[version.SecretID]; exists {
		maxTS := int64(0)
		for _, vr := range entry.VersionRefs {
			if vr.Timestamp > maxTS {
				maxTS = vr.Timestamp
			}
		}
		if version.Timestamp <= maxTS {
			version.Timestamp = maxTS + 1
		}
	}

	recipients, err := f.recipientKeySets()
	if err != nil {
		return "", err
	}

	b, err := block.SealToRing(index.MarshalVersion(version), recipients)
	if err != nil {
		return "", err
	}
	encoded, err := block.Encode(b)
	if err != nil {
		return "", err
	}
	blockID, err = f.bs.Put(ctx, encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}

	if err := f.idx.Append(ctx, index.OpAdd, blockID, version.Timestamp); err != nil {
		return "", err
	}

	f.audit.Log(audit.Entry{Operation: audit.OpAdd, IdentityID: identityID, SecretID: version.SecretID, Success: true})
	f.sink.Emit(events.Event{Kind: events.SecretVersionAdded, StoreName: f.name, IdentityID: identityID, SecretID: version.SecretID, BlockID: blockID})
	return blockID, nil
}

// Delete tombstones secretID by appending a Delete head. The timestamp
// used for monotone-delete ordering is now.
func (f *Facade) Delete(ctx context.Context, secretID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	identityID, ok := f.ringMgr.UnlockedIdentityID()
	if !ok {
		return kerrors.ErrLocked
	}
	if _, exists := f.idx.Projection().Entries[secretID]; !exists {
		return kerrors.ErrNotFound
	}
	f.refreshAutolockDeadline()

	tombstone := index.SecretVersion{SecretID: secretID, Deleted: true, Timestamp: time.Now().UnixMilli()}
	recipients, err := f.recipientKeySets()
	if err != nil {
		return err
	}
	b, err := block.SealToRing(index.MarshalVersion(tombstone), recipients)
	if err != nil {
		return err
	}
	encoded, err := block.Encode(b)
	if err != nil {
		return err
	}
	blockID, err := f.bs.Put(ctx, encoded)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}

	if err := f.idx.Append(ctx, index.OpDelete, blockID, tombstone.Timestamp); err != nil {
		return err
	}

	f.audit.Log(audit.Entry{Operation: audit.OpDelete, IdentityID: identityID, SecretID: secretID, Success: true})
	return nil
}

// Get resolves secretID's current version and its full history.
func (f *Facade) Get(ctx context.Context, secretID string) (Secret, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	identityID, ok := f.ringMgr.UnlockedIdentityID()
	if !ok {
		return Secret{}, kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()

	entry, exists := f.idx.Projection().Entries[secretID]
	if !exists || entry.CurrentBlockID == "" || entry.SecretEntry.Deleted {
		return Secret{}, kerrors.ErrNotFound
	}

	version, err := f.openVersion(ctx, entry.CurrentBlockID)
	if err != nil {
		return Secret{}, err
	}

	f.audit.Log(audit.Entry{Operation: audit.OpGet, IdentityID: identityID, SecretID: secretID, Success: true})
	f.sink.Emit(events.Event{Kind: events.SecretOpened, StoreName: f.name, IdentityID: identityID, SecretID: secretID})
	return Secret{
		ID:             secretID,
		Type:           entry.SecretEntry.Type,
		Current:        version,
		CurrentBlockID: entry.CurrentBlockID,
		Versions:       entry.VersionRefs,
	}, nil
}

// GetVersion opens one historical version by block id. It fails
// kerrors.ErrNotFound if blockID is not referenced by any entry the
// unlocked identity can read, even if the raw block exists.
func (f *Facade) GetVersion(ctx context.Context, blockID string) (index.SecretVersion, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.ringMgr.IsUnlocked() {
		return index.SecretVersion{}, kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()

	referenced := false
	for _, entry := range f.idx.Projection().Entries {
		for _, vr := range entry.VersionRefs {
			if vr.BlockID == blockID {
				referenced = true
				break
			}
		}
	}
	if !referenced {
		return index.SecretVersion{}, kerrors.ErrNotFound
	}

	return f.openVersion(ctx, blockID)
}

func (f *Facade) openVersion(ctx context.Context, blockID string) (index.SecretVersion, error) {
	identityID, _ := f.ringMgr.UnlockedIdentityID()
	resolver := facadeResolver{bs: f.bs, ringMgr: f.ringMgr, identityID: identityID}
	version, ok, err := resolver.ResolveVersion(ctx, blockID)
	if err != nil {
		return index.SecretVersion{}, err
	}
	if !ok {
		return index.SecretVersion{}, kerrors.ErrForbidden
	}
	return version, nil
}

// UpdateIndex forces a merge of pending heads from other clients and
// refreshes the in-memory projection.
func (f *Facade) UpdateIndex(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.ringMgr.IsUnlocked() {
		return kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()
	if err := f.idx.UpdateIndex(ctx); err != nil {
		return err
	}
	f.audit.Log(audit.Entry{Operation: audit.OpUpdateIndex, Success: true})
	return nil
}

// AddIdentity vouches for a new identity. Requires Unlocked.
func (f *Facade) AddIdentity(ctx context.Context, name, email string, passphrase []byte) (identityID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	actingID, ok := f.ringMgr.UnlockedIdentityID()
	if !ok {
		return "", kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()

	identityID, err = f.ringMgr.AddIdentity(ctx, name, email, passphrase)
	if err != nil {
		return "", err
	}

	f.audit.Log(audit.Entry{Operation: audit.OpAddIdentity, IdentityID: actingID, TargetIdentityID: identityID, Success: true})
	f.sink.Emit(events.Event{Kind: events.IdentityAdded, StoreName: f.name, IdentityID: identityID})
	return identityID, nil
}

// ChangePassphrase re-seals the unlocked identity's private keys.
func (f *Facade) ChangePassphrase(ctx context.Context, newPassphrase []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	identityID, ok := f.ringMgr.UnlockedIdentityID()
	if !ok {
		return kerrors.ErrLocked
	}
	f.refreshAutolockDeadline()

	if err := f.ringMgr.ChangePassphrase(ctx, newPassphrase); err != nil {
		return err
	}
	f.audit.Log(audit.Entry{Operation: audit.OpChangePassword, IdentityID: identityID, Success: true})
	return nil
}

// recipientKeySets projects the current public ring into the form
// block.SealToRing consumes: every current identity, keyed by the cipher
// suites its public keys cover.
func (f *Facade) recipientKeySets() ([]block.RecipientKeySet, error) {
	identities := f.ringMgr.PublicRing().Identities
	recipients := make([]block.RecipientKeySet, 0, len(identities))
	for _, id := range identities {
		keys := make(map[cipher.Tag][]byte, len(id.PublicKeys))
		for _, pk := range id.PublicKeys {
			keys[pk.Suite] = pk.Bytes
		}
		recipients = append(recipients, block.RecipientKeySet{IdentityID: id.ID, Keys: keys})
	}
	if len(recipients) == 0 {
		return nil, kerrors.ErrNoRecipient
	}
	return recipients, nil
}

func errClass(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
