package blockstore

import (
	"context"
	"testing"
)

func TestFileStorePutGetIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	id1, err := fs.Put(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	id2, err := fs.Put(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("put again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("put of identical bytes produced different ids: %s vs %s", id1, id2)
	}

	data, err := fs.Get(ctx, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected block contents: %q", data)
	}
}

func TestFileStoreGetMissingReturnsNotFound(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if _, err := fs.Get(context.Background(), "deadbeef"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreSetHeadCAS(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if err := fs.SetHead(ctx, "node1", "block1", ""); err != nil {
		t.Fatalf("first set_head: %v", err)
	}
	if err := fs.SetHead(ctx, "node1", "block2", "block1"); err != nil {
		t.Fatalf("cas set_head: %v", err)
	}
	if err := fs.SetHead(ctx, "node1", "block3", "stale"); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	heads, err := fs.ListHeads(ctx)
	if err != nil {
		t.Fatalf("list heads: %v", err)
	}
	if heads["node1"] != "block2" {
		t.Fatalf("expected node1 head to be block2, got %q", heads["node1"])
	}
}

func TestFileStoreNamedRefs(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if _, err := fs.Named(ctx, RefRing); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before ring is set, got %v", err)
	}

	if err := fs.SetNamed(ctx, RefRing, "ringblock1"); err != nil {
		t.Fatalf("set named: %v", err)
	}

	id, err := fs.Named(ctx, RefRing)
	if err != nil {
		t.Fatalf("named: %v", err)
	}
	if id != "ringblock1" {
		t.Fatalf("expected ringblock1, got %q", id)
	}
}
