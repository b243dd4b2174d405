// Package blockstore defines the interface the core consumes for opaque
// content-addressed blob storage, and ships one reference implementation
// over the local filesystem. Remote transports (sled, Dropbox, HTTP) are
// external collaborators and are not implemented here.
package blockstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when block_id is unknown and by Named
// when the ref has never been set.
var ErrNotFound = errors.New("blockstore: not found")

// ErrConflict is returned by SetHead when expectedPrev does not match the
// store's current value for node_id.
var ErrConflict = errors.New("blockstore: head update conflict")

// Ref names the small set of well-known mutable pointers the core keeps
// in the block store, distinct from the append-only per-node heads.
type Ref string

const (
	RefRing  Ref = "ring"
	RefIndex Ref = "index"
)

// Store is the adapter interface the engine consumes. put/get address
// blobs by content hash; set_head/list_heads track each client node's
// latest index contribution; named tracks the ring and index checkpoint
// refs. Implementations need not be safe for concurrent use by multiple
// processes beyond what SetHead's CAS semantics provide.
type Store interface {
	// Put stores block_bytes and returns its content address. Put is
	// idempotent: identical bytes always yield the same id and may be
	// stored only once.
	Put(ctx context.Context, blockBytes []byte) (blockID string, err error)

	// Get retrieves previously-Put bytes by their content address.
	// Returns ErrNotFound if blockID is unknown.
	Get(ctx context.Context, blockID string) ([]byte, error)

	// ListHeads returns the latest committed block id for every node_id
	// that has ever called SetHead, keyed by node_id.
	ListHeads(ctx context.Context) (map[string]string, error)

	// SetHead performs a compare-and-swap of nodeID's head: it succeeds
	// only if the store's current value for nodeID equals expectedPrev
	// (the empty string if nodeID has no head yet). Returns ErrConflict
	// otherwise.
	SetHead(ctx context.Context, nodeID, blockID, expectedPrev string) error

	// Named returns the block id currently bound to ref, or ErrNotFound
	// if it has never been set.
	Named(ctx context.Context, ref Ref) (string, error)

	// SetNamed rebinds ref to blockID.
	SetNamed(ctx context.Context, ref Ref, blockID string) error
}
