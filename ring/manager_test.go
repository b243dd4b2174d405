package ring

import (
	"context"
	"testing"

	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/logging"
	"github.com/oroko-systems/ringstore/secureram"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	bs, err := blockstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return NewManager(bs, secureram.New(), logging.Nop)
}

func TestCreateUnlockLockRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateRing(ctx, "Alice", "alice@example.com", []byte("pw1"))
	if err != nil {
		t.Fatalf("create ring: %v", err)
	}

	if err := m.Unlock(id, []byte("pw1")); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !m.IsUnlocked() {
		t.Fatalf("expected unlocked")
	}

	keys, err := m.PrivateKeys()
	if err != nil {
		t.Fatalf("private keys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 suite private keys, got %d", len(keys))
	}

	m.Lock()
	if m.IsUnlocked() {
		t.Fatalf("expected locked after Lock()")
	}
}

func TestUnlockWrongPassphraseFails(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateRing(ctx, "Alice", "alice@example.com", []byte("pw1"))
	if err != nil {
		t.Fatalf("create ring: %v", err)
	}

	if err := m.Unlock(id, []byte("wrong")); err != kerrors.ErrInvalidPassphrase {
		t.Fatalf("expected ErrInvalidPassphrase, got %v", err)
	}
}

func TestAddIdentityRequiresUnlocked(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateRing(ctx, "Alice", "alice@example.com", []byte("pw1")); err != nil {
		t.Fatalf("create ring: %v", err)
	}

	if _, err := m.AddIdentity(ctx, "Bob", "bob@example.com", []byte("pw2")); err != kerrors.ErrLocked {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestAddIdentityThenBobCanUnlock(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	aliceID, err := m.CreateRing(ctx, "Alice", "alice@example.com", []byte("pw1"))
	if err != nil {
		t.Fatalf("create ring: %v", err)
	}
	if err := m.Unlock(aliceID, []byte("pw1")); err != nil {
		t.Fatalf("unlock alice: %v", err)
	}

	bobID, err := m.AddIdentity(ctx, "Bob", "bob@example.com", []byte("pw2"))
	if err != nil {
		t.Fatalf("add identity: %v", err)
	}

	m.Lock()

	if err := m.Unlock(bobID, []byte("pw2")); err != nil {
		t.Fatalf("unlock bob: %v", err)
	}
}

func TestChangePassphrase(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	id, err := m.CreateRing(ctx, "Alice", "alice@example.com", []byte("pw1"))
	if err != nil {
		t.Fatalf("create ring: %v", err)
	}
	if err := m.Unlock(id, []byte("pw1")); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := m.ChangePassphrase(ctx, []byte("pw2")); err != nil {
		t.Fatalf("change passphrase: %v", err)
	}
	m.Lock()

	if err := m.Unlock(id, []byte("pw1")); err != kerrors.ErrInvalidPassphrase {
		t.Fatalf("expected old passphrase to fail, got %v", err)
	}
	if err := m.Unlock(id, []byte("pw2")); err != nil {
		t.Fatalf("expected new passphrase to succeed: %v", err)
	}
}
