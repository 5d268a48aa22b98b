package mctx

// Get allocates size bytes. The caller is responsible for remembering
// size and passing it back to Put — this is the "sized" allocation
// flavor from spec.md §2. See GetLoc to additionally record a caller
// location when FlagRecord is set.
func (c *Context) Get(size int) ([]byte, error) {
	return c.GetLoc(size, Loc{})
}

// GetLoc is Get, recording loc in the debug-record table (if
// FlagRecord is set) instead of the zero-value sentinel.
func (c *Context) GetLoc(size int, loc Loc) ([]byte, error) {
	if size < 0 {
		precondition(`Get: negative size %d`, size)
	}

	c.mu.Lock()

	if c.terminal {
		c.mu.Unlock()
		return nil, ErrShuttingDown
	}

	checkOverrun := c.flags.Has(FlagCheckOverrun)
	eff := effectiveSize(size, checkOverrun)

	if !c.tryReserveLocked(eff, size) {
		requested, inUse, quota := eff, c.quota.inUse, c.quota.quota
		c.mu.Unlock()
		return nil, &quotaError{requested: requested, inUse: inUse, quota: quota}
	}

	fillAlloc := c.flags.Has(FlagFillOnAlloc)
	record := c.flags.Has(FlagRecord)
	trace := c.flags.Has(FlagTrace)
	c.mu.Unlock()

	// The backend call happens outside the lock (spec.md §5: "Operations
	// never hold the lock across a backend call that could reenter the
	// same context").
	raw := c.backend.alloc(eff)
	if raw == nil {
		c.mu.Lock()
		c.recordUseLocked(-size)
		c.mu.Unlock()
		return nil, ErrOutOfMemory
	}

	// cap extends to eff (not size) so Put can recover the guard region
	// via buf[:cap(buf)] without any separate bookkeeping.
	buf := raw[:size:eff]
	if fillAlloc {
		fillBytes(buf, fillAllocByte)
	}
	if checkOverrun {
		writeGuard(raw, size)
	}

	if record {
		c.mu.Lock()
		c.recordInsertLocked(buf, size, loc)
		c.mu.Unlock()
	}

	if trace {
		logTrace(c, `get`, size, loc)
	}

	return buf, nil
}

// Put returns an allocation obtained from Get, given the same size
// originally requested, and clears *bufp (this package's expression
// of the "clear pointer after free" convention — see SPEC_FULL.md §9).
// A size mismatch is always fatal (panics); a double-free is fatal when
// FlagRecord is set, and an overrun-guard corruption when
// FlagCheckOverrun is set. Without FlagRecord a double-free is not
// detected. See the package error handling design.
func (c *Context) Put(bufp *[]byte, size int) {
	buf := *bufp
	*bufp = nil
	c.put(buf, size)
}

// PutValue is Put for callers who don't need the pointer-clearing
// convention (the GC makes it moot; see SPEC_FULL.md §9).
func (c *Context) PutValue(buf []byte, size int) {
	c.put(buf, size)
}

func (c *Context) put(buf []byte, size int) {
	if size < 0 {
		precondition(`Put: negative size %d`, size)
	}
	if len(buf) != size {
		precondition(`Put: size mismatch: passed %d, slice has length %d`, size, len(buf))
	}

	c.mu.Lock()
	checkOverrun := c.flags.Has(FlagCheckOverrun)
	record := c.flags.Has(FlagRecord)
	fillFree := c.flags.Has(FlagFillOnFree)
	trace := c.flags.Has(FlagTrace)
	c.mu.Unlock()

	// buf's cap was extended to the original effective (guard-included)
	// size by Get, so this recovers the full backend allocation.
	raw := buf[:cap(buf)]
	// spec.md §4.1's put order: verify the overrun guard before
	// touching the debug-record table, so a corrupted allocation is
	// reported as corruption rather than as a record mismatch.
	if checkOverrun {
		verifyGuard(raw, size)
	}

	if record {
		c.mu.Lock()
		func() {
			// Unlock even when recordRemoveLocked panics (double-free or
			// size mismatch), so the context stays usable afterwards.
			defer c.mu.Unlock()
			c.recordRemoveLocked(buf, size)
		}()
	}

	if fillFree {
		fillBytes(buf, fillFreeByte)
	}

	c.backend.free(raw)

	c.mu.Lock()
	c.recordUseLocked(-size)
	c.mu.Unlock()

	if trace {
		logTrace(c, `put`, size, Loc{})
	}
}

// unsizedEntry is what Allocate stashes so Free can recover the
// original backend allocation and the exact number of bytes reserved
// against the quota, without the caller needing to remember size (the
// "unsized" allocation flavor from spec.md §2 — a language-neutral
// stand-in for the C original's hidden size prefix, since Go slices
// already carry a length and there's no need to fight that by hiding
// another one in the bytes themselves).
type unsizedEntry struct {
	raw  []byte
	size int
	eff  int
}

// Allocate is the "unsized" allocation flavor: the context remembers
// size so Free(ptr) doesn't need it back.
func (c *Context) Allocate(size int) ([]byte, error) {
	return c.AllocateLoc(size, Loc{})
}

// AllocateLoc is Allocate, recording loc when FlagRecord is set.
func (c *Context) AllocateLoc(size int, loc Loc) ([]byte, error) {
	if size < 0 {
		precondition(`Allocate: negative size %d`, size)
	}

	c.mu.Lock()
	if c.terminal {
		c.mu.Unlock()
		return nil, ErrShuttingDown
	}
	checkOverrun := c.flags.Has(FlagCheckOverrun)
	eff := effectiveSize(size, checkOverrun)
	if !c.tryReserveLocked(eff, size) {
		requested, inUse, quota := eff, c.quota.inUse, c.quota.quota
		c.mu.Unlock()
		return nil, &quotaError{requested: requested, inUse: inUse, quota: quota}
	}
	fillAlloc := c.flags.Has(FlagFillOnAlloc)
	record := c.flags.Has(FlagRecord)
	trace := c.flags.Has(FlagTrace)
	c.mu.Unlock()

	raw := c.backend.alloc(eff)
	if raw == nil {
		c.mu.Lock()
		c.recordUseLocked(-size)
		c.mu.Unlock()
		return nil, ErrOutOfMemory
	}

	buf := raw[:size:size]
	if fillAlloc {
		fillBytes(buf, fillAllocByte)
	}
	if checkOverrun {
		writeGuard(raw, size)
	}

	c.mu.Lock()
	if c.unsized == nil {
		c.unsized = make(map[uintptr]unsizedEntry)
	}
	c.unsized[ptrKey(buf)] = unsizedEntry{raw: raw, size: size, eff: eff}
	if record {
		c.recordInsertLocked(buf, size, loc)
	}
	c.mu.Unlock()

	if trace {
		logTrace(c, `allocate`, size, loc)
	}

	return buf, nil
}

// FreeValue is Free for callers who don't need the pointer-clearing
// convention (the GC makes it moot; see SPEC_FULL.md §9).
func (c *Context) FreeValue(buf []byte) {
	c.Free(&buf)
}

// Free releases an allocation obtained from Allocate or Strdup, and
// clears *bufp.
func (c *Context) Free(bufp *[]byte) {
	buf := *bufp
	*bufp = nil
	if buf == nil {
		return
	}

	c.mu.Lock()
	key := ptrKey(buf)
	entry, ok := c.unsized[key]
	if !ok {
		c.mu.Unlock()
		precondition(`Free: pointer not obtained from Allocate/Strdup on this context (double-free, cross-context free, or corruption)`)
	}
	delete(c.unsized, key)
	record := c.flags.Has(FlagRecord)
	checkOverrun := c.flags.Has(FlagCheckOverrun)
	fillFree := c.flags.Has(FlagFillOnFree)
	trace := c.flags.Has(FlagTrace)
	c.mu.Unlock()

	// spec.md §4.1's put order: verify the overrun guard before
	// touching the debug-record table, so a corrupted allocation is
	// reported as corruption rather than as a record mismatch.
	if checkOverrun {
		verifyGuard(entry.raw, entry.size)
	}

	c.mu.Lock()
	if record {
		c.recordRemoveLocked(buf, entry.size)
	}
	c.mu.Unlock()

	if fillFree {
		fillBytes(buf, fillFreeByte)
	}

	c.backend.free(entry.raw)

	c.mu.Lock()
	c.recordUseLocked(-entry.size)
	c.mu.Unlock()

	if trace {
		logTrace(c, `free`, entry.size, Loc{})
	}
}

// Strdup allocates len(s)+1 bytes via Allocate and copies s plus a
// trailing NUL, for parity with the C strdup convention this package
// mirrors (see spec.md §4.1).
func (c *Context) Strdup(s string) ([]byte, error) {
	return c.StrdupLoc(s, Loc{})
}

// StrdupLoc is Strdup, recording loc when FlagRecord is set.
func (c *Context) StrdupLoc(s string, loc Loc) ([]byte, error) {
	buf, err := c.AllocateLoc(len(s)+1, loc)
	if err != nil {
		return nil, err
	}
	copy(buf, s)
	buf[len(s)] = 0
	return buf, nil
}
