package ring

import (
	"github.com/oroko-systems/ringstore/cipher"
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/wire"
)

// Marshal encodes r as the bytes the Manager stores under the ring ref.
// The result is not sealed into a block envelope.
func Marshal(r *Ring) []byte {
	w := wire.NewWriter()
	w.Uint16(uint16(len(r.Identities)))
	for _, id := range r.Identities {
		w.ShortString(id.ID)
		w.ShortString(id.Name)
		w.ShortString(id.Email)
		w.Bool(id.Hidden)

		w.Uint16(uint16(len(id.PublicKeys)))
		for _, pk := range id.PublicKeys {
			w.Byte(byte(pk.Suite))
			w.Long(pk.Bytes)
		}

		w.Uint16(uint16(len(id.PrivateKeys)))
		for _, pk := range id.PrivateKeys {
			w.Byte(byte(pk.Suite))
			w.Byte(pk.Preset)
			w.Short(pk.Nonce)
			w.Long(pk.CryptedKey)
		}
	}
	return w.Bytes()
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(data []byte) (*Ring, error) {
	r := wire.NewReader(data, kerrors.ErrInvalidBlock)

	numIdentities, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	ring := &Ring{Identities: make([]Identity, 0, numIdentities)}
	for i := 0; i < int(numIdentities); i++ {
		var id Identity
		if id.ID, err = r.ShortString(); err != nil {
			return nil, err
		}
		if id.Name, err = r.ShortString(); err != nil {
			return nil, err
		}
		if id.Email, err = r.ShortString(); err != nil {
			return nil, err
		}
		if id.Hidden, err = r.Bool(); err != nil {
			return nil, err
		}

		numPub, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(numPub); j++ {
			suiteByte, err := r.Byte()
			if err != nil {
				return nil, err
			}
			keyBytes, err := r.Long()
			if err != nil {
				return nil, err
			}
			id.PublicKeys = append(id.PublicKeys, PublicKey{Suite: cipher.Tag(suiteByte), Bytes: keyBytes})
		}

		numPriv, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		for j := 0; j < int(numPriv); j++ {
			suiteByte, err := r.Byte()
			if err != nil {
				return nil, err
			}
			preset, err := r.Byte()
			if err != nil {
				return nil, err
			}
			nonce, err := r.Short()
			if err != nil {
				return nil, err
			}
			crypted, err := r.Long()
			if err != nil {
				return nil, err
			}
			id.PrivateKeys = append(id.PrivateKeys, PrivateKey{
				Suite:      cipher.Tag(suiteByte),
				Preset:     preset,
				Nonce:      nonce,
				CryptedKey: crypted,
			})
		}

		ring.Identities = append(ring.Identities, id)
	}

	if err := r.Done(); err != nil {
		return nil, err
	}
	return ring, nil
}
