package blockstore

import "github.com/oroko-systems/ringstore/block"

// contentID is the same content address the block package computes, so
// that ids minted by FileStore.Put agree with block.ID(encoded) for
// whatever the caller later looks up.
func contentID(blockBytes []byte) string {
	return block.ID(blockBytes)
}
