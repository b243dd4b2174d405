package index

import (
	"context"
	"errors"
	"testing"
)

type fakeResolver map[string]SecretVersion

func (r fakeResolver) ResolveVersion(_ context.Context, blockID string) (SecretVersion, bool, error) {
	v, ok := r[blockID]
	if !ok {
		return SecretVersion{}, false, nil
	}
	return v, true, nil
}

func TestProjectVersionHistory(t *testing.T) {
	resolver := fakeResolver{
		"v1": {SecretID: "sec1", Timestamp: 1000, Name: "gmail", Type: "login"},
		"v2": {SecretID: "sec1", Timestamp: 2000, Name: "gmail", Type: "login"},
	}
	heads := []Head{
		{NodeID: "n1", Operation: OpAdd, BlockID: "v1", Timestamp: 1000},
		{NodeID: "n1", Operation: OpAdd, BlockID: "v2", Timestamp: 2000},
	}

	proj, err := Project(context.Background(), heads, resolver)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	entry, ok := proj.Entries["sec1"]
	if !ok {
		t.Fatalf("expected sec1 entry")
	}
	if entry.CurrentBlockID != "v2" {
		t.Fatalf("expected current block v2, got %s", entry.CurrentBlockID)
	}
	if len(entry.VersionRefs) != 2 {
		t.Fatalf("expected 2 version refs, got %d", len(entry.VersionRefs))
	}
}

func TestProjectDeleteThenReAdd(t *testing.T) {
	resolver := fakeResolver{
		"v1": {SecretID: "sec1", Timestamp: 100, Name: "gmail"},
		"d1": {SecretID: "sec1", Timestamp: 0, Name: "gmail"},
		"v3": {SecretID: "sec1", Timestamp: 300, Name: "gmail"},
	}
	heads := []Head{
		{NodeID: "n1", Operation: OpAdd, BlockID: "v1", Timestamp: 100},
		{NodeID: "n1", Operation: OpDelete, BlockID: "d1", Timestamp: 200},
		{NodeID: "n1", Operation: OpAdd, BlockID: "v3", Timestamp: 300},
	}

	proj, err := Project(context.Background(), heads, resolver)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	entry := proj.Entries["sec1"]
	if entry.SecretEntry.Deleted {
		t.Fatalf("expected entry to be revived (not deleted)")
	}
	if entry.CurrentBlockID != "v3" {
		t.Fatalf("expected current block v3, got %s", entry.CurrentBlockID)
	}
}

func TestProjectDeleteStaysDeletedWithoutRevival(t *testing.T) {
	resolver := fakeResolver{
		"v1": {SecretID: "sec1", Timestamp: 100, Name: "gmail"},
		"d1": {SecretID: "sec1", Timestamp: 0, Name: "gmail"},
	}
	heads := []Head{
		{NodeID: "n1", Operation: OpAdd, BlockID: "v1", Timestamp: 100},
		{NodeID: "n1", Operation: OpDelete, BlockID: "d1", Timestamp: 200},
	}

	proj, err := Project(context.Background(), heads, resolver)
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	if !proj.Entries["sec1"].SecretEntry.Deleted {
		t.Fatalf("expected entry to remain deleted")
	}
}

func TestProjectDeterministicUnderPermutation(t *testing.T) {
	resolver := fakeResolver{
		"v1": {SecretID: "sec1", Timestamp: 1500, Name: "gmail"},
		"v2": {SecretID: "sec1", Timestamp: 1500, Name: "gmail"},
	}
	order1 := []Head{
		{NodeID: "n1", Operation: OpAdd, BlockID: "v1", Timestamp: 1500},
		{NodeID: "n2", Operation: OpAdd, BlockID: "v2", Timestamp: 1500},
	}
	order2 := []Head{order1[1], order1[0]}

	proj1, err := Project(context.Background(), order1, resolver)
	if err != nil {
		t.Fatalf("project order1: %v", err)
	}
	proj2, err := Project(context.Background(), order2, resolver)
	if err != nil {
		t.Fatalf("project order2: %v", err)
	}

	if proj1.Entries["sec1"].CurrentBlockID != proj2.Entries["sec1"].CurrentBlockID {
		t.Fatalf("merge was not deterministic across permutations")
	}
}

func TestProjectDropsUnreadableBlocksSilently(t *testing.T) {
	resolver := fakeResolver{
		"v1": {SecretID: "sec1", Timestamp: 100, Name: "gmail"},
	}
	heads := []Head{
		{NodeID: "n1", Operation: OpAdd, BlockID: "v1", Timestamp: 100},
		{NodeID: "n1", Operation: OpAdd, BlockID: "unreadable", Timestamp: 200},
	}

	proj, err := Project(context.Background(), heads, resolver)
	if err != nil {
		t.Fatalf("project should not error on unreadable blocks: %v", err)
	}
	if proj.Entries["sec1"].CurrentBlockID != "v1" {
		t.Fatalf("expected unreadable block to be silently dropped")
	}
}

func TestProjectPropagatesResolverErrors(t *testing.T) {
	errResolver := erroringResolver{err: errors.New("boom")}
	heads := []Head{{NodeID: "n1", Operation: OpAdd, BlockID: "v1", Timestamp: 1}}

	if _, err := Project(context.Background(), heads, errResolver); err == nil {
		t.Fatalf("expected error to propagate")
	}
}

type erroringResolver struct{ err error }

func (r erroringResolver) ResolveVersion(context.Context, string) (SecretVersion, bool, error) {
	return SecretVersion{}, false, r.err
}
