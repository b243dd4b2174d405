package index

import (
	"context"
	"os"
	"testing"

	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/logging"
)

// storeResolver resolves blocks by reading them straight out of a
// blockstore.Store and decoding them as Marshal'd SecretVersions, letting
// engine tests exercise Append/Load/UpdateIndex without needing the block
// package's envelope encryption.
type storeResolver struct {
	bs blockstore.Store
}

func (r storeResolver) ResolveVersion(ctx context.Context, blockID string) (SecretVersion, bool, error) {
	data, err := r.bs.Get(ctx, blockID)
	if err == blockstore.ErrNotFound {
		return SecretVersion{}, false, nil
	}
	if err != nil {
		return SecretVersion{}, false, err
	}
	v, err := UnmarshalVersion(data)
	if err != nil {
		return SecretVersion{}, false, err
	}
	return v, true, nil
}

func newTestFileStore(t *testing.T) *blockstore.FileStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "index-engine-test-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	fs, err := blockstore.NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return fs
}

func putVersion(t *testing.T, bs blockstore.Store, v SecretVersion) string {
	t.Helper()
	id, err := bs.Put(context.Background(), MarshalVersion(v))
	if err != nil {
		t.Fatalf("put version: %v", err)
	}
	return id
}

func TestEngineAppendThenLoadRoundTrips(t *testing.T) {
	bs := newTestFileStore(t)
	resolver := storeResolver{bs: bs}
	ctx := context.Background()

	e := NewEngine(bs, "node-a", logging.Nop)
	if err := e.Load(ctx, resolver); err != nil {
		t.Fatalf("load: %v", err)
	}

	blockID := putVersion(t, bs, SecretVersion{SecretID: "sec1", Name: "gmail"})
	if err := e.Append(ctx, OpAdd, blockID, 100); err != nil {
		t.Fatalf("append: %v", err)
	}

	if e.Projection().Entries["sec1"].CurrentBlockID != blockID {
		t.Fatalf("expected in-memory projection to reflect the append")
	}

	e2 := NewEngine(bs, "node-a", logging.Nop)
	if err := e2.Load(ctx, resolver); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if e2.Projection().Entries["sec1"].CurrentBlockID != blockID {
		t.Fatalf("expected reloaded engine to see the persisted checkpoint")
	}
}

func TestEngineAppendConvergesAcrossConcurrentClients(t *testing.T) {
	bs := newTestFileStore(t)
	resolver := storeResolver{bs: bs}
	ctx := context.Background()

	e1 := NewEngine(bs, "node-a", logging.Nop)
	e2 := NewEngine(bs, "node-b", logging.Nop)
	if err := e1.Load(ctx, resolver); err != nil {
		t.Fatalf("load e1: %v", err)
	}
	if err := e2.Load(ctx, resolver); err != nil {
		t.Fatalf("load e2: %v", err)
	}

	id1 := putVersion(t, bs, SecretVersion{SecretID: "sec1", Name: "gmail"})
	id2 := putVersion(t, bs, SecretVersion{SecretID: "sec2", Name: "github"})

	if err := e1.Append(ctx, OpAdd, id1, 100); err != nil {
		t.Fatalf("e1 append: %v", err)
	}
	if err := e2.Append(ctx, OpAdd, id2, 200); err != nil {
		t.Fatalf("e2 append: %v", err)
	}

	if err := e1.UpdateIndex(ctx); err != nil {
		t.Fatalf("e1 update: %v", err)
	}
	if err := e2.UpdateIndex(ctx); err != nil {
		t.Fatalf("e2 update: %v", err)
	}

	if len(e1.Projection().Entries) != 2 || len(e2.Projection().Entries) != 2 {
		t.Fatalf("expected both engines to converge on 2 entries, got %d and %d",
			len(e1.Projection().Entries), len(e2.Projection().Entries))
	}
}

func TestEngineAppendWithoutLoadReturnsLockedError(t *testing.T) {
	bs := newTestFileStore(t)
	e := NewEngine(bs, "node-a", logging.Nop)

	if err := e.Append(context.Background(), OpAdd, "whatever", 1); err == nil {
		t.Fatalf("expected error when appending before Load")
	}
}
