package block

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/oroko-systems/ringstore/cipher"
	"github.com/oroko-systems/ringstore/kerrors"
)

// wireVersion is the single version byte every encoded message starts
// with.
const wireVersion byte = 0x01

// Encode canonicalizes b and serializes it to the wire format:
// 0x01 version byte, 4-byte BE length, then the framed payload.
func Encode(b *Block) ([]byte, error) {
	b.Canonicalize()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidBlock, err)
	}

	var payload bytes.Buffer
	if len(b.Headers) > 0xff {
		return nil, fmt.Errorf("%w: too many headers", kerrors.ErrInvalidBlock)
	}
	payload.WriteByte(byte(len(b.Headers)))

	for _, h := range b.Headers {
		payload.WriteByte(byte(h.Suite))
		writeBytes16(&payload, h.CommonKey)

		if len(h.Recipients) > 0xffff {
			return nil, fmt.Errorf("%w: too many recipients", kerrors.ErrInvalidBlock)
		}
		writeUint16(&payload, uint16(len(h.Recipients)))
		for _, r := range h.Recipients {
			writeBytes16(&payload, []byte(r.IdentityID))
			writeBytes32(&payload, r.CryptedKey)
		}
	}

	payload.WriteByte(byte(b.ContentSuite))
	writeBytes32(&payload, b.Content)

	var out bytes.Buffer
	out.WriteByte(wireVersion)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(payload.Len()))
	out.Write(lenBuf[:])
	out.Write(payload.Bytes())
	return out.Bytes(), nil
}

// Decode parses wire bytes produced by Encode. It does not re-canonicalize
// the result; callers constructed by Encode are already canonical.
func Decode(data []byte) (*Block, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: message too short", kerrors.ErrPadding)
	}
	if data[0] != wireVersion {
		return nil, fmt.Errorf("%w: unsupported version byte %#x", kerrors.ErrInvalidBlock, data[0])
	}
	length := binary.BigEndian.Uint32(data[1:5])
	payload := data[5:]
	if uint32(len(payload)) != length {
		return nil, fmt.Errorf("%w: length prefix %d does not match payload %d", kerrors.ErrPadding, length, len(payload))
	}

	r := bytes.NewReader(payload)

	numHeaders, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: read header count: %v", kerrors.ErrPadding, err)
	}

	b := &Block{Headers: make([]Header, 0, numHeaders)}
	for i := 0; i < int(numHeaders); i++ {
		suiteByte, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: read suite tag: %v", kerrors.ErrPadding, err)
		}
		commonKey, err := readBytes16(r)
		if err != nil {
			return nil, err
		}
		numRecipients, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		recipients := make([]cipher.RecipientKey, 0, numRecipients)
		for j := 0; j < int(numRecipients); j++ {
			idBytes, err := readBytes16(r)
			if err != nil {
				return nil, err
			}
			crypted, err := readBytes32(r)
			if err != nil {
				return nil, err
			}
			recipients = append(recipients, cipher.RecipientKey{IdentityID: string(idBytes), CryptedKey: crypted})
		}
		b.Headers = append(b.Headers, Header{
			Suite:      cipher.Tag(suiteByte),
			CommonKey:  commonKey,
			Recipients: recipients,
		})
	}

	contentSuiteByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: read content suite: %v", kerrors.ErrPadding, err)
	}
	b.ContentSuite = cipher.Tag(contentSuiteByte)

	content, err := readBytes32(r)
	if err != nil {
		return nil, err
	}
	b.Content = content

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after content", kerrors.ErrPadding)
	}

	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidBlock, err)
	}
	return b, nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeBytes16(buf *bytes.Buffer, data []byte) {
	writeUint16(buf, uint16(len(data)))
	buf.Write(data)
}

func writeBytes32(buf *bytes.Buffer, data []byte) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(len(data)))
	buf.Write(b[:])
	buf.Write(data)
}

func readUint16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("%w: read uint16: %v", kerrors.ErrPadding, err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readBytes16(r *bytes.Reader) ([]byte, error) {
	n, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: read bytes16 body: %v", kerrors.ErrPadding, err)
	}
	return buf, nil
}

func readBytes32(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := readFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: read bytes32 length: %v", kerrors.ErrPadding, err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := readFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: read bytes32 body: %v", kerrors.ErrPadding, err)
	}
	return buf, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("short read")
		}
	}
	return total, nil
}
