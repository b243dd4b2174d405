package store

import (
	"context"

	"github.com/oroko-systems/ringstore/block"
	"github.com/oroko-systems/ringstore/blockstore"
	"github.com/oroko-systems/ringstore/index"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/ring"
)

// facadeResolver implements index.Resolver by fetching a block from the
// store, opening it with identityID's private keys, and decoding its
// SecretVersion payload. Per index.Resolver's contract, a block this
// identity cannot open resolves to (zero, false, nil) rather than an
// error: it stays in the raw head log for whichever identity can read it
// later.
type facadeResolver struct {
	bs         blockstore.Store
	ringMgr    *ring.Manager
	identityID string
}

func (r facadeResolver) ResolveVersion(ctx context.Context, blockID string) (index.SecretVersion, bool, error) {
	data, err := r.bs.Get(ctx, blockID)
	if err == blockstore.ErrNotFound {
		return index.SecretVersion{}, false, nil
	}
	if err != nil {
		return index.SecretVersion{}, false, err
	}

	b, err := block.Decode(data)
	if err != nil {
		return index.SecretVersion{}, false, err
	}

	privKeys, err := r.ringMgr.PrivateKeys()
	if err != nil {
		return index.SecretVersion{}, false, err
	}

	plaintext, err := block.OpenWithIdentity(b, r.identityID, privKeys)
	if err == kerrors.ErrForbidden {
		return index.SecretVersion{}, false, nil
	}
	if err != nil {
		return index.SecretVersion{}, false, err
	}

	version, err := index.UnmarshalVersion(plaintext)
	if err != nil {
		return index.SecretVersion{}, false, err
	}
	return version, true, nil
}
