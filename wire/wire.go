// Package wire holds the small set of length-prefixed binary primitives
// shared by every payload the engine serializes before sealing it into a
// block: strings, byte blobs, and counts. It intentionally does not use
// JSON — kerrors.ErrJson is reserved for the config boundary, not for
// at-rest block payloads.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Writer accumulates a payload using the same framing block.Encode uses:
// a 2-byte BE length prefix for short fields (ids, names) and a 4-byte BE
// length prefix for anything that can be large (key material, plaintext).
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) Byte(b byte) { w.buf.WriteByte(b) }

func (w *Writer) Uint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Short(data []byte) {
	w.Uint16(uint16(len(data)))
	w.buf.Write(data)
}

func (w *Writer) ShortString(s string) { w.Short([]byte(s)) }

func (w *Writer) Long(data []byte) {
	w.Uint32(uint32(len(data)))
	w.buf.Write(data)
}

func (w *Writer) Bool(b bool) {
	if b {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

// StringList writes a uint16 count followed by each string as a Short field.
func (w *Writer) StringList(items []string) {
	w.Uint16(uint16(len(items)))
	for _, s := range items {
		w.ShortString(s)
	}
}

// Reader consumes a payload produced by Writer. Every method returns an
// error wrapping the caller-supplied sentinel on short reads or overruns.
type Reader struct {
	r       *bytes.Reader
	errWrap error
}

func NewReader(data []byte, errWrap error) *Reader {
	return &Reader{r: bytes.NewReader(data), errWrap: errWrap}
}

func (r *Reader) wrap(context string, err error) error {
	return fmt.Errorf("%w: %s: %v", r.errWrap, context, err)
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, r.wrap("read byte", err)
	}
	return b, nil
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *Reader) Uint16() (uint16, error) {
	var b [2]byte
	if _, err := r.readFull(b[:]); err != nil {
		return 0, r.wrap("read uint16", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (r *Reader) Uint32() (uint32, error) {
	var b [4]byte
	if _, err := r.readFull(b[:]); err != nil {
		return 0, r.wrap("read uint32", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (r *Reader) Uint64() (uint64, error) {
	var b [8]byte
	if _, err := r.readFull(b[:]); err != nil {
		return 0, r.wrap("read uint64", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (r *Reader) Short() ([]byte, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := r.readFull(buf); err != nil {
		return nil, r.wrap("read short body", err)
	}
	return buf, nil
}

func (r *Reader) ShortString() (string, error) {
	b, err := r.Short()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) Long() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := r.readFull(buf); err != nil {
		return nil, r.wrap("read long body", err)
	}
	return buf, nil
}

func (r *Reader) StringList() ([]string, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	items := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		s, err := r.ShortString()
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

// Done returns an error if unread bytes remain.
func (r *Reader) Done() error {
	if r.r.Len() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", r.errWrap, r.r.Len())
	}
	return nil
}

func (r *Reader) readFull(buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.r.Read(buf[total:])
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
