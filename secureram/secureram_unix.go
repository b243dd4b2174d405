//go:build linux || darwin

package secureram

import "golang.org/x/sys/unix"

// lockPages requests the kernel pin b's pages so they are never written to
// swap. Failure is non-fatal: the buffer is still zeroed on release, it is
// simply not mlocked.
func lockPages(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	return unix.Mlock(b) == nil
}

func unlockPages(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Munlock(b)
}
