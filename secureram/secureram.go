// Package secureram provides the allocator that owns every passphrase,
// private key, and decrypted secret version in ringstore. Buffers it hands
// out request OS page-locking where available and are guaranteed to be
// zeroed before their memory is released, on every exit path including
// error paths.
package secureram

import "sync"

// Allocator yields secure Buffers and is the single seam through which all
// plaintext flows. Production code uses New(); tests can substitute a mock
// that records zero-on-release to verify plaintext never outlives Release.
type Allocator interface {
	// Alloc returns a new Buffer of the given length, zero-filled.
	Alloc(n int) *Buffer
	// FromBytes copies src into a new secure Buffer. The caller retains
	// ownership of src; it is not zeroed by this call.
	FromBytes(src []byte) *Buffer
}

// Buffer is a uniquely-owned region of secure memory. Once Release is
// called the buffer must not be read or written again.
type Buffer struct {
	mu       sync.Mutex
	data     []byte
	locked   bool
	released bool
}

// Bytes exposes the buffer's contents. The returned slice aliases the
// buffer's memory and must not outlive a call to Release.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	return b.data
}

// Len reports the buffer's length.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Release zeroes the buffer's memory, unlocks it if it was mlocked, and
// marks it unusable. Release is idempotent.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	zero(b.data)
	if b.locked {
		unlockPages(b.data)
		b.locked = false
	}
	b.data = nil
	b.released = true
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// allocator is the production Allocator. It mlocks every buffer it hands
// out when the platform supports it (see secureram_unix.go); on platforms
// without mlock, buffers are zero-on-release only.
type allocator struct{}

// New returns the production secure-memory Allocator.
func New() Allocator {
	return allocator{}
}

func (allocator) Alloc(n int) *Buffer {
	buf := &Buffer{data: make([]byte, n)}
	buf.locked = lockPages(buf.data)
	return buf
}

func (allocator) FromBytes(src []byte) *Buffer {
	buf := &Buffer{data: make([]byte, len(src))}
	copy(buf.data, src)
	buf.locked = lockPages(buf.data)
	return buf
}
