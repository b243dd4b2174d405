package index

import (
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/wire"
)

// Marshal encodes the full head log as the plaintext payload of the
// index checkpoint block. Entries are not serialized: they are always
// rebuilt by replaying heads (Project), keeping the on-disk format and
// the deterministic-merge invariant in lockstep.
func Marshal(heads []Head) []byte {
	w := wire.NewWriter()
	w.Uint32(uint32(len(heads)))
	for _, h := range heads {
		w.ShortString(h.NodeID)
		w.Byte(byte(h.Operation))
		w.ShortString(h.BlockID)
		w.Uint64(uint64(h.Timestamp))
	}
	return w.Bytes()
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) ([]Head, error) {
	r := wire.NewReader(data, kerrors.ErrInvalidBlock)

	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}

	heads := make([]Head, 0, n)
	for i := 0; i < int(n); i++ {
		var h Head
		if h.NodeID, err = r.ShortString(); err != nil {
			return nil, err
		}
		opByte, err := r.Byte()
		if err != nil {
			return nil, err
		}
		h.Operation = Op(opByte)
		if h.BlockID, err = r.ShortString(); err != nil {
			return nil, err
		}
		ts, err := r.Uint64()
		if err != nil {
			return nil, err
		}
		h.Timestamp = int64(ts)
		heads = append(heads, h)
	}

	if err := r.Done(); err != nil {
		return nil, err
	}
	return heads, nil
}
