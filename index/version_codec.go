package index

import (
	"github.com/oroko-systems/ringstore/kerrors"
	"github.com/oroko-systems/ringstore/wire"
)

// MarshalVersion encodes a SecretVersion as the plaintext payload that
// gets sealed into a secret version's block.
func MarshalVersion(v SecretVersion) []byte {
	w := wire.NewWriter()
	w.ShortString(v.SecretID)
	w.Uint64(uint64(v.Timestamp))
	w.ShortString(v.Name)
	w.ShortString(v.Type)
	w.StringList(v.Tags)
	w.StringList(v.URLs)
	w.Bool(v.Deleted)

	w.Uint16(uint16(len(v.Properties)))
	for _, p := range v.Properties {
		w.ShortString(p.Name)
		w.Long(p.Value)
		w.Bool(p.Confidential)
	}
	return w.Bytes()
}

// UnmarshalVersion decodes bytes produced by MarshalVersion.
func UnmarshalVersion(data []byte) (SecretVersion, error) {
	r := wire.NewReader(data, kerrors.ErrInvalidBlock)
	var v SecretVersion
	var err error

	if v.SecretID, err = r.ShortString(); err != nil {
		return v, err
	}
	ts, err := r.Uint64()
	if err != nil {
		return v, err
	}
	v.Timestamp = int64(ts)
	if v.Name, err = r.ShortString(); err != nil {
		return v, err
	}
	if v.Type, err = r.ShortString(); err != nil {
		return v, err
	}
	if v.Tags, err = r.StringList(); err != nil {
		return v, err
	}
	if v.URLs, err = r.StringList(); err != nil {
		return v, err
	}
	if v.Deleted, err = r.Bool(); err != nil {
		return v, err
	}

	n, err := r.Uint16()
	if err != nil {
		return v, err
	}
	v.Properties = make([]Property, 0, n)
	for i := 0; i < int(n); i++ {
		var p Property
		if p.Name, err = r.ShortString(); err != nil {
			return v, err
		}
		if p.Value, err = r.Long(); err != nil {
			return v, err
		}
		if p.Confidential, err = r.Bool(); err != nil {
			return v, err
		}
		v.Properties = append(v.Properties, p)
	}

	if err := r.Done(); err != nil {
		return v, err
	}
	return v, nil
}
