package mctx

import (
	"errors"
	"fmt"
)

// Expected failures, returned to callers. Apart from I/O and decode
// errors passed through by Stats, StatsJSON, LoadConfigFile and
// AutoGOMEMLIMIT, these are the only error kinds this package returns
// from a normal call — everything else
// (programming errors, corruption) panics, per the package's error
// handling design: the process has already lost memory safety, and
// there is no safe value to return.
var (
	// ErrOutOfMemory is returned when the backend's alloc function
	// returns nil.
	ErrOutOfMemory = errors.New(`mctx: out of memory`)

	// ErrQuota is returned when an allocation would push a context's
	// in-use byte count past its configured quota.
	ErrQuota = errors.New(`mctx: quota exceeded`)

	// ErrShuttingDown is returned when an allocation, an OnDestroy
	// registration, or a pool attach is attempted on a context whose
	// terminal flag is already set.
	ErrShuttingDown = errors.New(`mctx: context is shutting down`)
)

// quotaError wraps ErrQuota with the values that tripped it, for
// diagnostics, while still matching errors.Is(err, ErrQuota).
type quotaError struct {
	requested, inUse, quota int
}

func (e *quotaError) Error() string {
	return fmt.Sprintf(`mctx: quota exceeded: requested %d bytes, in_use %d, quota %d`, e.requested, e.inUse, e.quota)
}

func (e *quotaError) Unwrap() error { return ErrQuota }

// PoolQuotaError is returned by mpool.Pool.Get when allocated has
// reached the pool's configured MaxAlloc. Exported (unlike the
// context-level quotaError) so package mpool can construct one
// without mctx needing to know about pools' internals.
type PoolQuotaError struct {
	Allocated, MaxAlloc int
}

func (e *PoolQuotaError) Error() string {
	return fmt.Sprintf(`mctx: pool quota exceeded: allocated %d, max_alloc %d`, e.Allocated, e.MaxAlloc)
}

func (e *PoolQuotaError) Unwrap() error { return ErrQuota }

// corruptionDetected panics with a diagnostic message; overrun-guard
// and debug-record mismatches are corruption, category 3 in the
// package's error design, and must never be returned as a normal
// error.
func corruptionDetected(format string, args ...any) {
	panic(fmt.Sprintf(`mctx: corruption detected: `+format, args...))
}

// precondition panics with a diagnostic message; this is category 2 —
// a programming error such as a double-free, a size mismatch on Put,
// or destroying a context/pool with outstanding state.
func precondition(format string, args ...any) {
	panic(fmt.Sprintf(`mctx: precondition violated: `+format, args...))
}
