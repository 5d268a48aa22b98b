package mctx

// Backend is the pair of alloc/free functions a Context delegates the
// actual memory acquisition to, plus the opaque argument passed to
// both. The default Backend (DefaultBackend) wraps the host's system
// allocator, represented in Go by ordinary GC-managed byte slices —
// Free is a no-op for that backend (there is no manual free in a
// GC'd runtime), but the contract is still honored symmetrically so
// custom backends (e.g. an mmap-backed arena, or a pooled allocator
// used in tests to assert call counts) can do real work in Free.
type Backend struct {
	Alloc func(arg any, n int) []byte
	Free  func(arg any, buf []byte)
	Arg   any
}

// DefaultBackend is the system allocator: Alloc returns a freshly made
// slice, Free is a no-op. The init_chunk_size and target_size
// arguments of Create/CreateExtended are never passed to a Backend,
// this one or a custom one.
func DefaultBackend() Backend {
	return Backend{
		Alloc: func(_ any, n int) []byte {
			return make([]byte, n)
		},
		Free: func(_ any, _ []byte) {},
	}
}

func (b Backend) alloc(n int) []byte {
	return b.Alloc(b.Arg, n)
}

func (b Backend) free(buf []byte) {
	b.Free(b.Arg, buf)
}
