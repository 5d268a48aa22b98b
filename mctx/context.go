package mctx

import "sync"

// Context is a named, reference-counted memory arena. See the package
// doc for the lifecycle; see Get/Put/Allocate/Free/Strdup in alloc.go
// for the allocation surface.
type Context struct {
	mu sync.Mutex

	name    string
	backend Backend
	flags   Flags

	quota quotaState

	records map[uintptr]record
	unsized map[uintptr]unsizedEntry

	pools poolRegistry

	destroyQueue []destroyEntry

	refcount int
	terminal bool
	torndown bool
}

// Create allocates a new Context using the system allocator.
// init_chunk_size and target_size are advisory hints, accepted for API
// stability (see Backend); they default any unspecified target_size
// to a fraction of total system memory rather than truly unlimited,
// unless the process-wide Config or an explicit WithQuota option say
// otherwise.
func Create(initChunkSize, targetSize int, opts ...Option) (*Context, error) {
	return CreateExtended(initChunkSize, targetSize, DefaultBackend(), opts...)
}

// CreateExtended is Create, but with a caller-supplied Backend instead
// of the system allocator.
func CreateExtended(initChunkSize, targetSize int, backend Backend, opts ...Option) (*Context, error) {
	_ = initChunkSize // advisory hint; this implementation has no chunked-arena backend to size

	cfg := DefaultConfig()
	quota := cfg.Quota
	if quota == 0 {
		if targetSize > 0 {
			quota = targetSize
		} else {
			quota = defaultQuotaHint()
		}
	}

	c := &Context{
		backend:  backend,
		flags:    cfg.Flags,
		quota:    newQuotaState(quota),
		refcount: 1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if backend.Alloc == nil || backend.Free == nil {
		return nil, ErrOutOfMemory
	}

	return c, nil
}

// Name returns the context's diagnostic name.
func (c *Context) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetName sets the context's diagnostic name, truncated to 15 bytes.
func (c *Context) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = truncateName(name)
}

// Flags returns the context's current diagnostic flags.
func (c *Context) Flags() Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// SetFlags replaces the context's diagnostic flags.
func (c *Context) SetFlags(flags Flags) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags = flags
}

// Attach increments src's refcount and stores it into *dst, matching
// spec.md's attach(src, &dst). Panics if src has already torn down or
// has been marked terminal by Destroy.
func Attach(src *Context, dst **Context) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.torndown {
		precondition(`Attach: context %q has already been destroyed`, src.name)
	}
	if src.terminal {
		precondition(`Attach: context %q is shutting down`, src.name)
	}
	src.refcount++
	*dst = src
}

// Detach decrements (*h)'s refcount and clears *h. When the refcount
// reaches zero the context tears down: outstanding pools are a fatal
// precondition violation, leaked debug-record entries are reported
// (fatal only if FlagDestroyCheck is set), the destroy queue is
// drained in FIFO order, and the context is marked torn down.
func Detach(h **Context) {
	if h == nil {
		return
	}
	c := *h
	*h = nil
	if c == nil {
		return
	}
	c.release()
}

// Destroy marks the context terminal: no further Attach, pool
// creation, or allocation will succeed. It does not itself release a
// reference — existing holders must still Detach. If the refcount is
// already zero (no holders left), teardown runs immediately.
func (c *Context) Destroy() {
	c.mu.Lock()
	c.terminal = true
	zero := c.refcount == 0
	c.mu.Unlock()
	if zero {
		c.teardown()
	}
}

func (c *Context) release() {
	c.mu.Lock()
	c.refcount--
	if c.refcount < 0 {
		c.mu.Unlock()
		precondition(`Detach: context %q refcount went negative (unbalanced Attach/Detach)`, c.name)
	}
	zero := c.refcount == 0
	c.mu.Unlock()
	if zero {
		c.teardown()
	}
}

// teardown runs the final-act sequence exactly once, regardless of
// whether it was triggered via Detach reaching zero or Destroy being
// called on an already-zero context.
func (c *Context) teardown() {
	c.mu.Lock()
	if c.torndown {
		c.mu.Unlock()
		return
	}

	if n := c.pools.liveCount(); n > 0 {
		name := c.name
		c.mu.Unlock()
		precondition(`context %q torn down with %d outstanding pool(s)`, name, n)
	}

	leaked := len(c.records)
	var dump string
	if leaked > 0 {
		dump = c.statsLocked(true)
	}
	destroyCheck := c.flags.Has(FlagDestroyCheck)
	name := c.name
	queue := c.destroyQueue
	c.destroyQueue = nil
	c.torndown = true
	c.mu.Unlock()

	if leaked > 0 {
		if destroyCheck {
			precondition(`context %q destroyed with %d leaked allocation(s):\n%s`, name, leaked, dump)
		}
		logLeaks(c, dump)
	}

	drainDestroyQueue(name, queue)
}

// AttachPool registers a pool's diagnostic record and increments the
// context's refcount (pools share ownership of their parent, per
// spec.md §3). Returns the registry id to pass to UnregisterPool.
// Fails with ErrShuttingDown if the context's terminal flag is set.
// This is the hook package mpool (or any other pool implementation
// layered on a Context) attaches through at Create.
func (c *Context) AttachPool(rec *PoolRecord) (id int64, err error) {
	c.mu.Lock()
	if c.terminal {
		c.mu.Unlock()
		return 0, ErrShuttingDown
	}
	c.refcount++
	c.mu.Unlock()

	return c.pools.attach(rec), nil
}

// UnregisterPool unregisters a pool's diagnostic record and releases
// the ownership reference taken by AttachPool.
func (c *Context) UnregisterPool(id int64) {
	c.pools.detach(id)
	c.release()
}
