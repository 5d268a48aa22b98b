// Package mctx implements a hierarchical, quota-enforced, thread-safe
// memory context: a named, reference-counted arena wrapping an
// allocator backend, with optional debug-record leak/double-free
// tracking and overrun-guard corruption detection.
//
// A Context is created with Create or CreateExtended, shared between
// owners with Attach, and released with Detach. The last Detach tears
// the context down: outstanding pools or (if enabled) leaked
// allocations are reported, registered destroy-notifications are
// dispatched in FIFO order, and the context is marked torn down. The
// backend is not called during teardown.
package mctx
