package mpool

import (
	"sync"
	"sync/atomic"

	"github.com/dnscore/memcore/mctx"
)

// Pool is a fixed-element-size freelist attached to exactly one
// mctx.Context (spec.md §4.2). Every counter that Stats reads
// (allocated, freeCount, freeMax, maxAlloc, fillCount) lives in an
// atomic field: mutated under the pool's lock for multi-field
// consistency, but readable from Stats without taking any lock at
// all. This is deliberate — Context.Stats walks its attached pools
// under its own registry lock, and a Pool.Stats that took the pool's
// lock would invert the lock order of a refilling Get (Pool lock held
// while calling into the parent Context), risking a deadlock. See
// DESIGN.md.
type Pool struct {
	ctx         *mctx.Context
	elementSize int
	registryID  int64
	record      *mctx.PoolRecord

	guardMu        sync.Mutex // serializes the one-time AssociateLock transition only
	started        atomic.Bool
	lockAssociated bool

	mu       sync.Locker // default &ownMu; replaceable once via AssociateLock
	ownMu    sync.Mutex
	name     string
	freelist [][]byte
	destroyed bool

	allocated atomic.Int64
	freeCount atomic.Int64
	freeMax   atomic.Int64
	maxAlloc  atomic.Int64
	fillCount atomic.Int64
}

// Create attaches a new pool of fixed-size elements to ctx. Defaults
// match spec.md §4.2: max_alloc unlimited (0), free_max 1, fill_count
// 1.
func Create(ctx *mctx.Context, elementSize int) (*Pool, error) {
	if ctx == nil {
		precondition(`Create: nil context`)
	}
	if elementSize <= 0 {
		precondition(`Create: element_size must be > 0, got %d`, elementSize)
	}

	p := &Pool{ctx: ctx, elementSize: elementSize}
	p.mu = &p.ownMu
	p.freeMax.Store(1)
	p.fillCount.Store(1)

	rec := &mctx.PoolRecord{Stats: func() mctx.PoolStats { return p.Stats() }}
	id, err := ctx.AttachPool(rec)
	if err != nil {
		return nil, err
	}
	p.registryID = id
	p.record = rec
	return p, nil
}

// ElementSize returns the pool's fixed element size.
func (p *Pool) ElementSize() int { return p.elementSize }

// Name returns the pool's diagnostic name.
func (p *Pool) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

// SetName sets the pool's diagnostic name, truncated to 15 bytes like
// Context.SetName.
func (p *Pool) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = truncateName(name)
	p.record.Name = p.name
}

// FreeMax returns the freelist retention cap.
func (p *Pool) FreeMax() int { return int(p.freeMax.Load()) }

// SetFreeMax changes the freelist retention cap (must be > 0).
func (p *Pool) SetFreeMax(n int) {
	if n <= 0 {
		precondition(`SetFreeMax: must be > 0, got %d`, n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freeMax.Store(int64(n))
}

// MaxAlloc returns the outstanding-allocation cap (0 == unlimited).
func (p *Pool) MaxAlloc() int { return int(p.maxAlloc.Load()) }

// SetMaxAlloc changes the outstanding-allocation cap (0 disables it).
func (p *Pool) SetMaxAlloc(n int) {
	if n < 0 {
		precondition(`SetMaxAlloc: must be >= 0, got %d`, n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxAlloc.Store(int64(n))
}

// FillCount returns the batch size pulled from the parent context
// when the freelist is empty.
func (p *Pool) FillCount() int { return int(p.fillCount.Load()) }

// SetFillCount changes the refill batch size (must be > 0).
func (p *Pool) SetFillCount(n int) {
	if n <= 0 {
		precondition(`SetFillCount: must be > 0, got %d`, n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fillCount.Store(int64(n))
}

// Stats returns a snapshot of the pool's counters, without taking the
// pool's lock — see the type doc for why that matters.
func (p *Pool) Stats() mctx.PoolStats {
	return mctx.PoolStats{
		ElementSize: p.elementSize,
		Allocated:   int(p.allocated.Load()),
		FreeCount:   int(p.freeCount.Load()),
		FreeMax:     int(p.freeMax.Load()),
		MaxAlloc:    int(p.maxAlloc.Load()),
		FillCount:   int(p.fillCount.Load()),
	}
}

// Get returns one element-sized slice, per the algorithm in spec.md
// §4.2: pop the freelist if non-empty, otherwise refill in one batch
// of FillCount elements from the parent context (amortizing lock
// acquisition across the batch instead of paying it per element).
func (p *Pool) Get() ([]byte, error) {
	p.started.Store(true)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		precondition(`Get: pool already destroyed`)
	}

	if max := p.maxAlloc.Load(); max > 0 && p.allocated.Load() >= max {
		return nil, &mctx.PoolQuotaError{Allocated: int(p.allocated.Load()), MaxAlloc: int(max)}
	}

	var buf []byte
	if n := len(p.freelist); n > 0 {
		buf = p.freelist[n-1]
		p.freelist = p.freelist[:n-1]
		p.freeCount.Add(-1)
	} else {
		var err error
		buf, err = p.refillLocked()
		if err != nil {
			return nil, err
		}
	}

	p.allocated.Add(1)
	return buf, nil
}

// refillLocked pulls FillCount elements from the parent context,
// keeps all but one on the freelist, and returns the last one. Must
// be called with p.mu held. On partial failure (the parent context's
// quota trips mid-batch), whatever was already obtained is returned
// to the context before propagating the error.
func (p *Pool) refillLocked() ([]byte, error) {
	fillCount := int(p.fillCount.Load())
	got := make([][]byte, 0, fillCount)
	for i := 0; i < fillCount; i++ {
		b, err := p.ctx.Get(p.elementSize)
		if err != nil {
			for _, b := range got {
				p.ctx.Put(&b, p.elementSize)
			}
			return nil, err
		}
		got = append(got, b)
	}

	for _, b := range got[:len(got)-1] {
		p.freelist = append(p.freelist, b)
	}
	p.freeCount.Add(int64(len(got) - 1))

	return got[len(got)-1], nil
}

// PutValue is Put for callers who don't need the pointer-clearing
// convention (the GC makes it moot; see SPEC_FULL.md §9).
func (p *Pool) PutValue(buf []byte) {
	p.Put(&buf)
}

// Put returns an element obtained from Get, clearing *bufp. If the
// freelist is under FreeMax it is retained; otherwise it is returned
// directly to the parent context.
func (p *Pool) Put(bufp *[]byte) {
	buf := *bufp
	*bufp = nil
	if buf == nil {
		return
	}
	if len(buf) != p.elementSize {
		precondition(`Put: size mismatch: pool element_size is %d, slice has length %d`, p.elementSize, len(buf))
	}

	p.mu.Lock()
	if int(p.freeCount.Load()) < int(p.freeMax.Load()) {
		p.freelist = append(p.freelist, buf)
		p.freeCount.Add(1)
		p.allocated.Add(-1)
		p.mu.Unlock()
		return
	}
	p.allocated.Add(-1)
	p.mu.Unlock()

	// Returned to the parent outside p.mu. A refill in Get is the one
	// place the pool calls into its parent context with p.mu held.
	p.ctx.Put(&buf, p.elementSize)
}

// Destroy releases the pool: fatal if any element is still checked
// out, otherwise every freelisted element is returned to the parent
// context and the parent's ownership reference is released. Clears
// *pp.
func Destroy(pp **Pool) {
	if pp == nil {
		return
	}
	p := *pp
	*pp = nil
	if p == nil {
		return
	}
	p.destroy()
}

func (p *Pool) destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		precondition(`Destroy: pool already destroyed`)
	}
	if n := p.allocated.Load(); n > 0 {
		p.mu.Unlock()
		precondition(`Destroy: pool has %d outstanding allocation(s)`, n)
	}
	freelist := p.freelist
	p.freelist = nil
	p.destroyed = true
	p.mu.Unlock()

	for _, b := range freelist {
		p.ctx.Put(&b, p.elementSize)
	}
	p.freeCount.Store(0)

	p.ctx.UnregisterPool(p.registryID)
}
