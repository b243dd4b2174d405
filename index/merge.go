package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/oroko-systems/ringstore/kerrors"
)

// Resolver opens a block and parses its SecretVersion payload. ok is
// false, with a nil error, when the block exists but the caller's
// identity cannot open it (kerrors.ErrForbidden) — such heads are
// silently dropped from the projection while remaining in the raw head
// log for future identities.
type Resolver interface {
	ResolveVersion(ctx context.Context, blockID string) (version SecretVersion, ok bool, err error)
}

// Project replays heads in the deterministic (timestamp, node_id) total
// order, so that identical head sets always yield an identical
// projection, independent of the order Project's caller collected them
// in.
func Project(ctx context.Context, heads []Head, resolver Resolver) (*Projection, error) {
	sorted := make([]Head, len(heads))
	copy(sorted, heads)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].NodeID < sorted[j].NodeID
	})

	entries := map[string]*Entry{}
	deletedAt := map[string]int64{}

	for _, h := range sorted {
		if err := applyHead(ctx, entries, deletedAt, h, resolver); err != nil {
			return nil, err
		}
	}

	return &Projection{Heads: sorted, Entries: entries}, nil
}

func applyHead(ctx context.Context, entries map[string]*Entry, deletedAt map[string]int64, h Head, resolver Resolver) error {
	version, ok, err := resolver.ResolveVersion(ctx, h.BlockID)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", kerrors.ErrIo, h.BlockID, err)
	}
	if !ok {
		return nil
	}

	secretID := version.SecretID
	entry := entries[secretID]
	if entry == nil {
		entry = &Entry{SecretEntry: SecretEntry{ID: secretID}}
		entries[secretID] = entry
	}

	switch h.Operation {
	case OpDelete:
		entry.SecretEntry.Deleted = true
		deletedAt[secretID] = h.Timestamp

	default: // OpAdd
		entry.VersionRefs = append(entry.VersionRefs, VersionRef{BlockID: h.BlockID, Timestamp: version.Timestamp})
		entry.SecretEntry.Timestamp = version.Timestamp
		entry.SecretEntry.Name = version.Name
		entry.SecretEntry.Type = version.Type
		entry.SecretEntry.Tags = version.Tags
		entry.SecretEntry.URLs = version.URLs

		if dt, wasDeleted := deletedAt[secretID]; wasDeleted && version.Timestamp >= dt {
			entry.SecretEntry.Deleted = false
		}
		recomputeCurrent(entry)
	}
	return nil
}

// recomputeCurrent sets entry.CurrentBlockID to the version with the
// highest timestamp, tie-broken by the lexicographically greatest
// block id.
func recomputeCurrent(entry *Entry) {
	var best VersionRef
	first := true
	for _, vr := range entry.VersionRefs {
		if first || vr.Timestamp > best.Timestamp || (vr.Timestamp == best.Timestamp && vr.BlockID > best.BlockID) {
			best = vr
			first = false
		}
	}
	entry.CurrentBlockID = best.BlockID
}
