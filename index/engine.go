package index

import (
	"context"
	"fmt"
	"time"

	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/logging"
)

// checkpointNode is a reserved node id used as the CAS guard for the
// single persisted Index checkpoint block. Per-node commit-block parent
// chains are never materialized; instead the whole Index is rewritten
// monotonically on every Append, and cross-client conflicts are resolved
// the same way any other head update is.
const checkpointNode = "__index__"

// maxCASRetries bounds the Append retry loop: after the first attempt,
// Append retries at most this many times, waiting casRetryBackoff before
// each retry.
const maxCASRetries = 4

const casRetryBackoff = 10 * time.Millisecond

// Engine owns one store's Index: the full head log, the materialized
// Projection built from it, and persistence of both as a checkpoint
// block.
type Engine struct {
	bs       blockstore.Store
	clientID string
	log      logging.Logger

	resolver   Resolver
	heads      []Head
	proj       *Projection
	checkpoint string // block id of the last-persisted checkpoint, "" if none yet
}

// NewEngine constructs an Engine for one store. clientID is this
// process's stable node_id (typically StoreConfig.ClientID).
func NewEngine(bs blockstore.Store, clientID string, log logging.Logger) *Engine {
	return &Engine{
		bs:       bs,
		clientID: clientID,
		log:      log,
		proj:     &Projection{Entries: map[string]*Entry{}},
	}
}

// Load fetches the persisted checkpoint (if any) and rebuilds the
// in-memory Projection by fully replaying its heads: the index is
// rebuilt in memory on unlock by fetching all reachable heads and
// folding operations.
func (e *Engine) Load(ctx context.Context, resolver Resolver) error {
	e.resolver = resolver

	id, err := e.bs.Named(ctx, blockstore.RefIndex)
	if err == blockstore.ErrNotFound {
		e.heads = nil
		e.checkpoint = ""
		e.proj = &Projection{Entries: map[string]*Entry{}}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}

	data, err := e.bs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}

	heads, err := Unmarshal(data)
	if err != nil {
		return err
	}

	proj, err := Project(ctx, heads, resolver)
	if err != nil {
		return err
	}

	e.heads = heads
	e.checkpoint = id
	e.proj = proj
	return nil
}

// Projection returns the current in-memory projection. Callers must not
// mutate the returned value.
func (e *Engine) Projection() *Projection {
	return e.proj
}

// Lock drops the resolver so a subsequent Append/UpdateIndex fails
// loudly instead of silently resolving versions with a now-stale
// identity's private keys. The in-memory heads and projection are left
// in place; Load rebuilds them again on the next unlock.
func (e *Engine) Lock() {
	e.resolver = nil
}

// Append records a new head for this client's node_id and durably
// updates the shared checkpoint, retrying on CAS conflicts against
// concurrent writers up to maxCASRetries times before surfacing
// kerrors.ErrConflict.
func (e *Engine) Append(ctx context.Context, op Op, blockID string, timestamp int64) error {
	if e.resolver == nil {
		return fmt.Errorf("%w: index engine has no resolver (unlock first)", kerrors.ErrLocked)
	}

	newHead := Head{NodeID: e.clientID, Operation: op, BlockID: blockID, Timestamp: timestamp}

	for attempt := 0; attempt <= maxCASRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(casRetryBackoff)
		}
		if err := e.refreshFromStore(ctx); err != nil {
			return err
		}

		candidateHeads := append(append([]Head{}, e.heads...), newHead)
		proj, err := Project(ctx, candidateHeads, e.resolver)
		if err != nil {
			return err
		}

		encoded := Marshal(candidateHeads)
		newCheckpointID, err := e.bs.Put(ctx, encoded)
		if err != nil {
			return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
		}

		err = e.bs.SetHead(ctx, checkpointNode, newCheckpointID, e.checkpoint)
		if err == blockstore.ErrConflict {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
		}

		if err := e.bs.SetNamed(ctx, blockstore.RefIndex, newCheckpointID); err != nil {
			e.log.Warnf("index checkpoint %s committed but named ref update failed: %v", newCheckpointID, err)
		}

		e.heads = candidateHeads
		e.proj = proj
		e.checkpoint = newCheckpointID
		return nil
	}

	return kerrors.ErrConflict
}

// refreshFromStore pulls in any heads another client committed since our
// last observation, so Append's retry loop converges instead of looping
// forever against a moving target.
func (e *Engine) refreshFromStore(ctx context.Context) error {
	heads, err := e.bs.ListHeads(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}
	latest, ok := heads[checkpointNode]
	if !ok || latest == e.checkpoint {
		return nil
	}

	data, err := e.bs.Get(ctx, latest)
	if err != nil {
		return fmt.Errorf("%w: %v", kerrors.ErrIo, err)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		return err
	}
	e.heads = decoded
	e.checkpoint = latest
	return nil
}

// UpdateIndex forces a refresh from the store and a full replay,
// incorporating any pending heads from other clients without adding one
// of this client's own.
func (e *Engine) UpdateIndex(ctx context.Context) error {
	if e.resolver == nil {
		return fmt.Errorf("%w: index engine has no resolver (unlock first)", kerrors.ErrLocked)
	}
	if err := e.refreshFromStore(ctx); err != nil {
		return err
	}
	proj, err := Project(ctx, e.heads, e.resolver)
	if err != nil {
		return err
	}
	e.proj = proj
	return nil
}
