package mctx

const (
	// guardSize is the fixed guard width appended past the caller's
	// requested size when FlagCheckOverrun is set. spec.md §4.4 only
	// requires "≥1 byte"; 8 gives enough room that an accidental
	// one-word overwrite is still caught, while staying cheap.
	guardSize = 8

	// guardByte fills the guard region. Chosen distinct from the
	// fill-on-alloc/fill-on-free patterns below so a corrupted guard
	// can be told apart from a use-after-scribble bug.
	guardByte = 0xAD

	// fillAllocByte/fillFreeByte match the values spec.md §3 names
	// explicitly (0xBE / 0xDE), carried over unchanged from the
	// original isc_mem convention.
	fillAllocByte = 0xBE
	fillFreeByte  = 0xDE
)

// effectiveSize returns the number of bytes to actually request from
// the backend for a caller-visible allocation of size n, accounting
// for the overrun guard when enabled.
func effectiveSize(n int, checkOverrun bool) int {
	if checkOverrun {
		return n + guardSize
	}
	return n
}

// writeGuard fills the guard region (buf[n:n+guardSize]) of a
// backend allocation of effectiveSize(n, true) bytes.
func writeGuard(buf []byte, n int) {
	guard := buf[n : n+guardSize]
	for i := range guard {
		guard[i] = guardByte
	}
}

// verifyGuard checks the guard region written by writeGuard, calling
// corruptionDetected (which panics) on any mismatch.
func verifyGuard(buf []byte, n int) {
	guard := buf[n : n+guardSize]
	for _, b := range guard {
		if b != guardByte {
			corruptionDetected(`overrun guard mismatch: caller wrote past the requested %d bytes`, n)
		}
	}
}

func fillBytes(buf []byte, b byte) {
	for i := range buf {
		buf[i] = b
	}
}
