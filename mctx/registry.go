package mctx

import (
	"sync"
	"weak"
)

// PoolRecord is the handle a pool attaches to its owning Context with.
// Per spec.md §3, a context's pool list holds "weak references to
// every attached pool, used only for diagnostic stats and teardown
// assertion" — modeled here the same way eventloop/registry.go tracks
// live promises, via the stdlib weak package. Package mpool's Pool
// holds a pointer to one and keeps it alive for exactly as long as the
// Pool itself is reachable, so the weak reference here goes nil
// precisely when the pool does.
type PoolRecord struct {
	Name string
	// Stats is called, with the owning Context's lock and the pool
	// registry's lock held, to render a pool's diagnostic line in
	// Context.Stats; set by the owning Pool.
	Stats func() PoolStats
}

// PoolStats is a snapshot of a pool's counters, used only for
// diagnostics (Context.Stats and Pool.Stats in package mpool).
type PoolStats struct {
	ElementSize, Allocated, FreeCount, FreeMax, MaxAlloc, FillCount int
}

// poolRegistry tracks attached pools by weak reference. It has its
// own mutex, distinct from Context.mu, since it is consulted only for
// diagnostics and the teardown assertion, never on the hot
// alloc/free path.
type poolRegistry struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]weak.Pointer[PoolRecord]
}

// attach registers rec, returning an id to later pass to detach.
func (r *poolRegistry) attach(rec *PoolRecord) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[int64]weak.Pointer[PoolRecord])
	}
	r.nextID++
	id := r.nextID
	r.entries[id] = weak.Make(rec)
	return id
}

func (r *poolRegistry) detach(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// liveCount returns the number of attached pools still reachable,
// pruning entries whose pool was garbage collected without an
// explicit Pool.Destroy; such entries are dropped without being
// reported or counted.
func (r *poolRegistry) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, wp := range r.entries {
		if wp.Value() == nil {
			delete(r.entries, id)
			continue
		}
		n++
	}
	return n
}

// snapshotStats returns a PoolStats for every still-reachable pool
// that has a Stats callback set.
func (r *poolRegistry) snapshotStats() []PoolStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PoolStats, 0, len(r.entries))
	for id, wp := range r.entries {
		rec := wp.Value()
		if rec == nil {
			delete(r.entries, id)
			continue
		}
		if rec.Stats != nil {
			out = append(out, rec.Stats())
		}
	}
	return out
}

// snapshot returns a copy of every still-reachable PoolRecord.
func (r *poolRegistry) snapshot() []PoolRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PoolRecord, 0, len(r.entries))
	for id, wp := range r.entries {
		rec := wp.Value()
		if rec == nil {
			delete(r.entries, id)
			continue
		}
		out = append(out, *rec)
	}
	return out
}
